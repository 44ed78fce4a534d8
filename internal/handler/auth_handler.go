package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/auth"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/service"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	sessionService *service.SessionService
	logger         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessionService *service.SessionService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		logger:         logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	output, err := h.sessionService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     output.Token,
		ExpiresAt: output.ExpiresAt,
		User:      output.User,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.GetToken(r.Context())
	if token == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	if err := h.sessionService.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
