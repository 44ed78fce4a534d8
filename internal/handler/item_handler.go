package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/auth"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/service"
)

// ItemHandler handles item requests, including totals and exports.
type ItemHandler struct {
	itemService   *service.ItemService
	exportService *service.ExportService
	logger        zerolog.Logger
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemService *service.ItemService, exportService *service.ExportService, logger zerolog.Logger) *ItemHandler {
	return &ItemHandler{
		itemService:   itemService,
		exportService: exportService,
		logger:        logger.With().Str("handler", "item").Logger(),
	}
}

// RegisterRoutes registers item routes.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/teams/{id}/items", h.handleList)
	r.Post("/api/teams/{id}/items", h.handleCreate)
	r.Patch("/api/teams/{id}/items/{itemID}", h.handleUpdate)
	r.Delete("/api/teams/{id}/items/{itemID}", h.handleDelete)
	r.Get("/api/teams/{id}/totals", h.handleTotals)
	r.Post("/api/teams/{id}/export", h.handleExport)
}

type itemCreateRequest struct {
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Note       string    `json:"note"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	CategoryID int64     `json:"category_id"`
}

func (h *ItemHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	var req itemCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Date.IsZero() {
		writeBadRequest(w, "date is required")
		return
	}

	output, err := h.itemService.CreateItem(r.Context(), service.CreateItemInput{
		Principal:  auth.GetPrincipal(r.Context()),
		TeamID:     teamID,
		CategoryID: req.CategoryID,
		Date:       req.Date,
		Name:       req.Name,
		Note:       req.Note,
		Quantity:   req.Quantity,
		Price:      req.Price,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, output.Item)
}

type itemUpdateRequest struct {
	Date       *time.Time `json:"date"`
	Name       *string    `json:"name"`
	Note       *string    `json:"note"`
	Quantity   *float64   `json:"quantity"`
	Price      *float64   `json:"price"`
	CategoryID *int64     `json:"category_id"`
}

func (h *ItemHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeBadRequest(w, "invalid item id")
		return
	}

	var req itemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	output, err := h.itemService.UpdateItem(r.Context(), service.UpdateItemInput{
		Principal: auth.GetPrincipal(r.Context()),
		TeamID:    teamID,
		ItemID:    itemID,
		Patch: domain.ItemPatch{
			Date:       req.Date,
			Name:       req.Name,
			Note:       req.Note,
			Quantity:   req.Quantity,
			Price:      req.Price,
			CategoryID: req.CategoryID,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, output.Item)
}

func (h *ItemHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeBadRequest(w, "invalid item id")
		return
	}

	err = h.itemService.DeleteItem(r.Context(), service.DeleteItemInput{
		Principal: auth.GetPrincipal(r.Context()),
		TeamID:    teamID,
		ItemID:    itemID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

type itemListResponse struct {
	Items []*domain.Item `json:"items"`
}

func (h *ItemHandler) handleList(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	q := r.URL.Query()
	offset, limit := pagination(q)

	from, err := queryDate(q.Get("from"))
	if err != nil {
		writeBadRequest(w, "invalid from date")
		return
	}
	to, err := queryDate(q.Get("to"))
	if err != nil {
		writeBadRequest(w, "invalid to date")
		return
	}

	output, err := h.itemService.GetItems(r.Context(), service.GetItemsInput{
		Principal:  auth.GetPrincipal(r.Context()),
		TeamID:     teamID,
		From:       from,
		To:         to,
		Search:     q.Get("search"),
		OrderBy:    q.Get("field"),
		Descending: q.Get("sort") != "asc",
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemListResponse{Items: output.Items})
}

type totalsResponse struct {
	Totals []*domain.CategoryTotal `json:"totals"`
}

func (h *ItemHandler) handleTotals(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	categoryIDs, err := queryIDs(r.URL.Query().Get("category_ids"))
	if err != nil {
		writeBadRequest(w, "invalid category_ids")
		return
	}

	output, err := h.itemService.GetTotalByCategory(r.Context(), service.GetTotalsInput{
		Principal:   auth.GetPrincipal(r.Context()),
		TeamID:      teamID,
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, totalsResponse{Totals: output.Totals})
}

type exportResponse struct {
	Key       string `json:"key"`
	ItemCount int    `json:"item_count"`
}

func (h *ItemHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathID(r, "id")
	if err != nil {
		writeBadRequest(w, "invalid team id")
		return
	}

	output, err := h.exportService.ExportItems(r.Context(), service.ExportItemsInput{
		Principal: auth.GetPrincipal(r.Context()),
		TeamID:    teamID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, exportResponse{Key: output.Key, ItemCount: output.ItemCount})
}

// queryDate parses a date query parameter, accepting RFC3339 or a bare
// calendar date. Returns nil when the parameter is absent.
func queryDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryIDs parses a comma-separated list of numeric ids.
func queryIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
