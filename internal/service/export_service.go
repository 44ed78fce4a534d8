package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/authz"
	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/export"
	"github.com/prn-tf/teamledger/internal/repository"
)

// exportPageSize is how many items are pulled from the store per page
// while building an export.
const exportPageSize = 500

// ExportRecorder receives export outcomes for metrics.
type ExportRecorder interface {
	RecordExport(outcome string)
}

// ExportService streams a team's items to object storage as CSV.
type ExportService struct {
	itemRepo repository.ItemRepository
	teamRepo repository.TeamRepository
	gate     *authz.Gate
	store    export.Store
	prefix   string
	recorder ExportRecorder
	logger   zerolog.Logger
}

// NewExportService creates a new ExportService. A nil store disables
// exporting. The recorder may be nil.
func NewExportService(
	itemRepo repository.ItemRepository,
	teamRepo repository.TeamRepository,
	gate *authz.Gate,
	store export.Store,
	prefix string,
	recorder ExportRecorder,
	logger zerolog.Logger,
) *ExportService {
	return &ExportService{
		itemRepo: itemRepo,
		teamRepo: teamRepo,
		gate:     gate,
		store:    store,
		prefix:   prefix,
		recorder: recorder,
		logger:   logger.With().Str("service", "export").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// ExportItemsInput contains the data needed to export a team's items.
type ExportItemsInput struct {
	Principal *domain.Principal
	TeamID    int64
}

// ExportItemsOutput contains the storage key of the written export.
type ExportItemsOutput struct {
	Key       string
	ItemCount int
}

// =============================================================================
// Service Methods
// =============================================================================

// ExportItems writes every item of the team to the export store as CSV and
// returns the object key. Only the team creator may export.
func (s *ExportService) ExportItems(ctx context.Context, input ExportItemsInput) (*ExportItemsOutput, error) {
	if s.store == nil {
		return nil, ErrExportDisabled
	}

	if err := s.gate.Authorize(input.Principal, []authz.Permission{authz.ReadItem}, input.TeamID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to get team")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.gate.RequireTeamCreator(input.Principal, team); err != nil {
		return nil, err
	}

	items, err := s.collectItems(ctx, input.TeamID)
	if err != nil {
		s.record("error")
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteItemsCSV(&buf, items); err != nil {
		s.logger.Error().Err(err).Int64("team_id", input.TeamID).Msg("failed to build CSV")
		s.record("error")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	key := fmt.Sprintf("%s/%s/items-%s.csv",
		s.prefix, team.Slug, time.Now().UTC().Format("20060102T150405Z"))

	if err := s.store.Put(ctx, key, "text/csv", &buf); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to store export")
		s.record("error")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.record("success")
	s.logger.Info().
		Int64("team_id", input.TeamID).
		Str("key", key).
		Int("items", len(items)).
		Msg("items exported")

	return &ExportItemsOutput{Key: key, ItemCount: len(items)}, nil
}

// collectItems pages through the team's items in a stable order.
func (s *ExportService) collectItems(ctx context.Context, teamID int64) ([]*domain.Item, error) {
	var all []*domain.Item

	for offset := 0; ; offset += exportPageSize {
		page, err := s.itemRepo.List(ctx, teamID, repository.ItemFilter{
			OrderBy: "date",
			Offset:  offset,
			Limit:   exportPageSize,
		})
		if err != nil {
			s.logger.Error().Err(err).Int64("team_id", teamID).Msg("failed to list items")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

func (s *ExportService) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordExport(outcome)
	}
}
