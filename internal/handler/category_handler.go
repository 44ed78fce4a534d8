package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/auth"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/service"
)

// CategoryHandler handles category requests.
type CategoryHandler struct {
	categoryService *service.CategoryService
	logger          zerolog.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService *service.CategoryService, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger.With().Str("handler", "category").Logger(),
	}
}

// RegisterRoutes registers category routes.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/teams/{id}/categories", h.handleList)
	r.Post("/api/teams/{id}/categories", h.handleCreate)
	r.Patch("/api/teams/{id}/categories/{catID}", h.handleUpdate)
	r.Delete("/api/teams/{id}/categories/{catID}", h.handleDelete)
}

type categoryListResponse struct {
	Categories []*domain.Category `json:"categories"`
}

func (h *CategoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	var typeFilter *domain.CategoryType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.CategoryType(raw)
		typeFilter = &t
	}

	output, err := h.categoryService.ListCategories(r.Context(), service.ListCategoriesInput{
		Principal: auth.GetPrincipal(r.Context()),
		TeamID:    teamID,
		Type:      typeFilter,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, categoryListResponse{Categories: output.Categories})
}

type categoryCreateRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Type        domain.CategoryType `json:"type"`
}

func (h *CategoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	var req categoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.categoryService.CreateCategory(r.Context(), service.CreateCategoryInput{
		Principal:   auth.GetPrincipal(r.Context()),
		TeamID:      teamID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.Category)
}

type categoryUpdateRequest struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Type        *domain.CategoryType `json:"type"`
}

func (h *CategoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}
	categoryID, err := pathID(r, "catID")
	if err != nil {
		writeBadRequest(w, "invalid category id")
		return
	}

	var req categoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.categoryService.UpdateCategory(r.Context(), service.UpdateCategoryInput{
		Principal:  auth.GetPrincipal(r.Context()),
		TeamID:     teamID,
		CategoryID: categoryID,
		Patch: domain.CategoryPatch{
			Name:        req.Name,
			Description: req.Description,
			Type:        req.Type,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.Category)
}

func (h *CategoryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}
	categoryID, err := pathID(r, "catID")
	if err != nil {
		writeBadRequest(w, "invalid category id")
		return
	}

	err = h.categoryService.DeleteCategory(r.Context(), service.DeleteCategoryInput{
		Principal:  auth.GetPrincipal(r.Context()),
		TeamID:     teamID,
		CategoryID: categoryID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
