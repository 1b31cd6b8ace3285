package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prodige/prodige/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserDTO is the API representation of a user. The password hash never
// appears here.
type UserDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var invalid *ErrInvalidInput
		switch {
		case errors.As(err, &invalid):
			rest.WriteError(w, http.StatusBadRequest, invalid.Reason)
		case errors.Is(err, ErrEmailTaken):
			rest.WriteError(w, http.StatusBadRequest, "email is already registered")
		default:
			log.Errorf("failed to register user: %v", err)
			rest.WriteError(w, http.StatusInternalServerError, "failed to register user")
		}
		return
	}

	rest.WriteData(w, http.StatusCreated, authResponse{Token: token, User: toDTO(created)})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			rest.WriteError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.Errorf("failed to log user in: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	rest.WriteData(w, http.StatusOK, authResponse{Token: token, User: toDTO(u)})
}

// Me returns the authenticated caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := Current(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "not authorized to access this route")
		return
	}
	rest.WriteData(w, http.StatusOK, toDTO(u))
}

func toDTO(u User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}
