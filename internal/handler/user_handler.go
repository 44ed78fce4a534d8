package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/auth"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/service"
)

// UserHandler handles user management requests.
type UserHandler struct {
	userService *service.UserService
	logger      zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes registers user routes. Registration is the only open one.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/users/register", h.handleRegister)
	r.Get("/api/users", h.handleList)
	r.Get("/api/users/{id}", h.handleGet)
	r.Patch("/api/users/{id}", h.handleUpdate)
	r.Delete("/api/users/{id}", h.handleDelete)
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.userService.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.User)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	output, err := h.userService.GetUser(r.Context(), service.GetUserInput{
		Principal: auth.GetPrincipal(r.Context()),
		UserID:    userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.User)
}

type userListResponse struct {
	Users []*domain.User `json:"users"`
	Total int64          `json:"total"`
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, limit := pagination(q)

	output, err := h.userService.ListUsers(r.Context(), service.ListUsersInput{
		Principal:  auth.GetPrincipal(r.Context()),
		Search:     q.Get("search"),
		OrderBy:    q.Get("field"),
		Descending: q.Get("sort") == "desc",
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userListResponse{Users: output.Users, Total: output.Total})
}

type userUpdateRequest struct {
	FirstName *string            `json:"first_name"`
	LastName  *string            `json:"last_name"`
	Email     *string            `json:"email"`
	Role      *domain.Role       `json:"role"`
	Status    *domain.UserStatus `json:"status"`
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.userService.UpdateUser(r.Context(), service.UpdateUserInput{
		Principal: auth.GetPrincipal(r.Context()),
		UserID:    userID,
		Patch: domain.UserPatch{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Role:      req.Role,
			Status:    req.Status,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.User)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	err = h.userService.DeleteUser(r.Context(), service.DeleteUserInput{
		Principal: auth.GetPrincipal(r.Context()),
		UserID:    userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// pagination parses offset and limit query parameters. Invalid or missing
// values fall back to zero; services apply their own defaults.
func pagination(q map[string][]string) (offset, limit int) {
	get := func(name string) int {
		values := q[name]
		if len(values) == 0 {
			return 0
		}
		n, err := strconv.Atoi(values[0])
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return get("offset"), get("limit")
}
