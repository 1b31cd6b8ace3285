package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prodige/prodige/internal/rest"
	"github.com/prodige/prodige/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Client      string    `json:"client"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	AssignedTo  string    `json:"assignedTo"`
	IsShared    *bool     `json:"isShared"`
}

// ListEvents handles GET /api/events. With both year and month query
// parameters it returns the events intersecting that calendar month;
// otherwise every event visible to the caller.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		year  int
		month time.Month
	)
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")
	if yearStr != "" && monthStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			rest.WriteError(w, http.StatusBadRequest, "month must be a number between 1 and 12")
			return
		}
		year, month = y, time.Month(m)
	}

	events, err := h.service.List(r.Context(), year, month)
	if err != nil {
		writeDomainError(w, err, "failed to list events")
		return
	}
	rest.WriteList(w, http.StatusOK, len(events), events)
}

// GetEvent handles GET /api/events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("no event found with id %s", id))
		return
	}
	rest.WriteData(w, http.StatusOK, e)
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := Event{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		Client:      req.Client,
		Description: req.Description,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		IsShared:    true,
	}
	if req.IsShared != nil {
		draft.IsShared = *req.IsShared
	}

	created, err := h.service.Create(r.Context(), draft)
	if err != nil {
		writeDomainError(w, err, "failed to create event")
		return
	}
	rest.WriteData(w, http.StatusCreated, created)
}

// UpdateEvent handles PUT /api/events/{id} as a partial update: absent
// fields keep their stored values.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("no event found with id %s", id))
		return
	}
	rest.WriteData(w, http.StatusOK, updated)
}

// DeleteEvent handles DELETE /api/events/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, fmt.Sprintf("no event found with id %s", id))
		return
	}
	rest.WriteData(w, http.StatusOK, struct{}{})
}

// GetConflicts handles GET /api/events/{id}/conflicts and lists the visible
// events overlapping the given one.
func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conflicts, err := h.service.Conflicts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, fmt.Sprintf("no event found with id %s", id))
		return
	}
	rest.WriteList(w, http.StatusOK, len(conflicts), conflicts)
}

// writeDomainError maps store/service errors onto the API contract:
// validation 400 (with the full field list), forbidden 403, not found 404,
// missing identity 401, anything else 500.
func writeDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		rest.WriteValidationError(w, "event validation failed", vErr.Fields)
	case errors.Is(err, ErrNotFound):
		rest.WriteError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, ErrForbidden):
		rest.WriteError(w, http.StatusForbidden, "not authorized to access this event")
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "not authorized to access this route")
	default:
		log.Errorf("event request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
