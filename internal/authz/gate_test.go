package authz

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/prn-tf/teamledger/internal/domain"
)

func TestPermissionsFor_AdminSupersetOfUser(t *testing.T) {
	admin := PermissionsFor(domain.RoleAdmin)

	for _, p := range PermissionsFor(domain.RoleUser) {
		found := false
		for _, ap := range admin {
			if ap == p {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("permission %q granted to user but not to admin", p)
		}
	}
}

func TestPermissionsFor_WriteUserIsAdminOnly(t *testing.T) {
	if HasPermissions(domain.RoleUser, []Permission{WriteUser}) {
		t.Error("user role must not hold user:write")
	}
	if !HasPermissions(domain.RoleAdmin, []Permission{WriteUser}) {
		t.Error("admin role must hold user:write")
	}
}

func TestGate_Authorize(t *testing.T) {
	member := &domain.Principal{
		UserID:  1,
		Role:    domain.RoleUser,
		Status:  domain.StatusActive,
		TeamIDs: []int64{10},
	}

	tests := []struct {
		name      string
		principal *domain.Principal
		required  []Permission
		teamID    int64
		wantErr   error
	}{
		{
			name:      "no principal",
			principal: nil,
			required:  []Permission{ReadItem},
			wantErr:   domain.ErrUnauthorized,
		},
		{
			name: "disabled admin is inactive before anything else",
			principal: &domain.Principal{
				UserID: 2,
				Role:   domain.RoleAdmin,
				Status: domain.StatusDisabled,
			},
			required: []Permission{WriteUser},
			teamID:   99,
			wantErr:  domain.ErrAccountInactive,
		},
		{
			name: "initial account is inactive",
			principal: &domain.Principal{
				UserID: 3,
				Role:   domain.RoleUser,
				Status: domain.StatusInitial,
			},
			required: []Permission{ReadItem},
			wantErr:  domain.ErrAccountInactive,
		},
		{
			name:      "user lacks user:write",
			principal: member,
			required:  []Permission{WriteUser},
			wantErr:   domain.ErrMissingPermission,
		},
		{
			name:      "permission check precedes membership check",
			principal: member,
			required:  []Permission{WriteUser},
			teamID:    555, // not a member either
			wantErr:   domain.ErrMissingPermission,
		},
		{
			name:      "not a member of target team",
			principal: member,
			required:  []Permission{WriteCategory},
			teamID:    555,
			wantErr:   domain.ErrNotTeamMember,
		},
		{
			name:      "member allowed",
			principal: member,
			required:  []Permission{WriteCategory},
			teamID:    10,
			wantErr:   nil,
		},
		{
			name:      "non team-scoped operation skips membership",
			principal: member,
			required:  []Permission{WriteTeam},
			teamID:    0,
			wantErr:   nil,
		},
	}

	gate := NewGate(nil, zerolog.Nop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.principal, tt.required, tt.teamID)
			if err != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGate_RequireTeamCreator(t *testing.T) {
	gate := NewGate(nil, zerolog.Nop())
	team := &domain.Team{ID: 10, CreatorID: 1}

	creator := &domain.Principal{UserID: 1, Role: domain.RoleUser, Status: domain.StatusActive, TeamIDs: []int64{10}}
	if err := gate.RequireTeamCreator(creator, team); err != nil {
		t.Errorf("unexpected error for creator: %v", err)
	}

	other := &domain.Principal{UserID: 2, Role: domain.RoleUser, Status: domain.StatusActive, TeamIDs: []int64{10}}
	if err := gate.RequireTeamCreator(other, team); err != domain.ErrNotTeamCreator {
		t.Errorf("expected ErrNotTeamCreator, got %v", err)
	}
}

type recordingRecorder struct {
	allowed int
	denied  map[string]int
}

func (r *recordingRecorder) RecordDecision(allowed bool, reason string) {
	if allowed {
		r.allowed++
		return
	}
	if r.denied == nil {
		r.denied = make(map[string]int)
	}
	r.denied[reason]++
}

func TestGate_RecordsDecisions(t *testing.T) {
	rec := &recordingRecorder{}
	gate := NewGate(rec, zerolog.Nop())

	p := &domain.Principal{UserID: 1, Role: domain.RoleUser, Status: domain.StatusActive, TeamIDs: []int64{10}}

	_ = gate.Authorize(p, []Permission{ReadItem}, 10)
	_ = gate.Authorize(p, []Permission{ReadItem}, 20)
	_ = gate.Authorize(nil, nil, 0)

	if rec.allowed != 1 {
		t.Errorf("expected 1 allow, got %d", rec.allowed)
	}
	if rec.denied["not_a_team_member"] != 1 || rec.denied["unauthorized"] != 1 {
		t.Errorf("unexpected deny counts: %v", rec.denied)
	}
}
