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

// TeamHandler handles team requests.
type TeamHandler struct {
	teamService *service.TeamService
	logger      zerolog.Logger
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *service.TeamService, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		logger:      logger.With().Str("handler", "team").Logger(),
	}
}

// RegisterRoutes registers team routes.
func (h *TeamHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/teams", h.handleCreate)
	r.Patch("/api/teams/{id}", h.handleUpdate)
	r.Get("/api/me/teams", h.handleListMine)
	r.Get("/api/me/teams/{slug}", h.handleGetBySlug)
}

type teamCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *TeamHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req teamCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.teamService.CreateTeam(r.Context(), service.CreateTeamInput{
		Principal:   auth.GetPrincipal(r.Context()),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.Team)
}

type teamUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *TeamHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	var req teamUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.teamService.UpdateTeam(r.Context(), service.UpdateTeamInput{
		Principal: auth.GetPrincipal(r.Context()),
		TeamID:    teamID,
		Patch: domain.TeamPatch{
			Name:        req.Name,
			Description: req.Description,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.Team)
}

type teamListResponse struct {
	Teams []*domain.Team `json:"teams"`
}

func (h *TeamHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	output, err := h.teamService.ListMyTeams(r.Context(), service.ListMyTeamsInput{
		Principal: auth.GetPrincipal(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teamListResponse{Teams: output.Teams})
}

func (h *TeamHandler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	output, err := h.teamService.GetTeamBySlug(r.Context(), service.GetTeamBySlugInput{
		Principal: auth.GetPrincipal(r.Context()),
		Slug:      chi.URLParam(r, "slug"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.Team)
}
