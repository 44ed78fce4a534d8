package authz

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/domain"
)

// DecisionRecorder receives the outcome of every authorization decision.
// The metrics package provides a Prometheus-backed implementation.
type DecisionRecorder interface {
	RecordDecision(allowed bool, reason string)
}

// Gate decides, per operation, whether a principal may proceed. It is
// stateless per call; its collaborators are injected at construction.
type Gate struct {
	recorder DecisionRecorder
	logger   zerolog.Logger
}

// NewGate creates a new Gate. The recorder may be nil.
func NewGate(recorder DecisionRecorder, logger zerolog.Logger) *Gate {
	return &Gate{
		recorder: recorder,
		logger:   logger.With().Str("component", "authz").Logger(),
	}
}

// Authorize applies the protection checks in their fixed order, short-
// circuiting on the first failure:
//
//  1. a principal must be attached to the operation,
//  2. the principal's account must be active,
//  3. the principal's role must grant every required permission,
//  4. for team-scoped operations (teamID != 0), the principal must be a
//     member of the team.
//
// The ordering is a contract: an inactive user hitting a team-scoped
// operation is reported as inactive, not as a non-member.
func (g *Gate) Authorize(p *domain.Principal, required []Permission, teamID int64) error {
	if p == nil {
		return g.deny(nil, domain.ErrUnauthorized)
	}

	if !p.IsActive() {
		return g.deny(p, domain.ErrAccountInactive)
	}

	if !HasPermissions(p.Role, required) {
		return g.deny(p, domain.ErrMissingPermission)
	}

	if teamID != 0 && !p.MemberOf(teamID) {
		return g.deny(p, domain.ErrNotTeamMember)
	}

	g.record(true, "")
	return nil
}

// RequireTeamCreator applies the ownership check for creator-gated
// operations: only the team's creator may proceed. Callers are expected to
// have passed Authorize first, so membership is already established.
func (g *Gate) RequireTeamCreator(p *domain.Principal, team *domain.Team) error {
	if p == nil {
		return g.deny(nil, domain.ErrUnauthorized)
	}
	if !team.IsCreator(p.UserID) {
		return g.deny(p, domain.ErrNotTeamCreator)
	}
	g.record(true, "")
	return nil
}

func (g *Gate) deny(p *domain.Principal, err error) error {
	evt := g.logger.Debug().Str("reason", DenyReason(err))
	if p != nil {
		evt = evt.Int64("user_id", p.UserID)
	}
	evt.Msg("authorization denied")

	g.record(false, DenyReason(err))
	return err
}

func (g *Gate) record(allowed bool, reason string) {
	if g.recorder != nil {
		g.recorder.RecordDecision(allowed, reason)
	}
}

// DenyReason maps an authorization error onto its stable reason code, used
// for metrics labels and API error payloads.
func DenyReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrAccountInactive):
		return "inactive_account"
	case errors.Is(err, domain.ErrMissingPermission):
		return "missing_permission"
	case errors.Is(err, domain.ErrNotTeamMember):
		return "not_a_team_member"
	case errors.Is(err, domain.ErrNotTeamCreator):
		return "not_team_creator"
	default:
		return "denied"
	}
}
