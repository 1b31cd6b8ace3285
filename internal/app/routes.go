package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prodige/prodige/internal/config"
	"github.com/prodige/prodige/internal/rest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all API endpoints. In degraded mode only the
// status and metrics endpoints work; everything else answers 503.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/api/status", deps.statusHandler).Methods("GET")

	if deps.Mode == ModeDegraded {
		r.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			rest.WriteError(w, http.StatusServiceUnavailable, "storage is unavailable, service is running degraded")
		})
		return
	}

	// Users
	r.HandleFunc("/api/users/register", deps.UserHandler.Register).Methods("POST")
	r.HandleFunc("/api/users/login", deps.UserHandler.Login).Methods("POST")
	r.HandleFunc("/api/users/me", deps.RequireAuth(deps.UserHandler.Me)).Methods("GET")

	// Events
	r.HandleFunc("/api/events", deps.RequireAuth(deps.EventHandler.ListEvents)).Methods("GET")
	r.HandleFunc("/api/events", deps.RequireAuth(deps.EventHandler.CreateEvent)).Methods("POST")
	r.HandleFunc("/api/events/{id}", deps.RequireAuth(deps.EventHandler.GetEvent)).Methods("GET")
	r.HandleFunc("/api/events/{id}", deps.RequireAuth(deps.EventHandler.UpdateEvent)).Methods("PUT")
	r.HandleFunc("/api/events/{id}", deps.RequireAuth(deps.EventHandler.DeleteEvent)).Methods("DELETE")
	r.HandleFunc("/api/events/{id}/conflicts", deps.RequireAuth(deps.EventHandler.GetConflicts)).Methods("GET")
}

type statusResponse struct {
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

func (d *Dependencies) statusHandler(w http.ResponseWriter, _ *http.Request) {
	if d.Mode == ModeDegraded {
		rest.WriteError(w, http.StatusServiceUnavailable, "storage is unavailable, service is running degraded")
		return
	}
	rest.WriteData(w, http.StatusOK, statusResponse{
		Status:    "online",
		Mode:      string(d.Mode),
		Timestamp: time.Now().UTC(),
	})
}
