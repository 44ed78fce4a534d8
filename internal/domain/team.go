package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Team is the tenancy boundary of the ledger. Categories and items belong
// to a team, and users reach them only through team membership.
type Team struct {
	// ID is the unique identifier for the team (auto-generated).
	ID int64 `json:"id"`

	// Name is the display name chosen by the creator.
	Name string `json:"name"`

	// Description is an optional free-text description.
	Description string `json:"description,omitempty"`

	// CreatorID is the id of the user who created the team. Category
	// update and delete are restricted to this user.
	CreatorID int64 `json:"creator_id"`

	// Slug is a URL-safe identifier derived from Name at creation time.
	// It is unique across all teams and is never recomputed on rename.
	Slug string `json:"slug"`

	// CreatedAt is the timestamp when the team was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewTeam creates a new Team, deriving its slug from the name.
func NewTeam(name, description string, creatorID int64) *Team {
	return &Team{
		Name:        name,
		Description: description,
		CreatorID:   creatorID,
		Slug:        NewSlug(name),
		CreatedAt:   time.Now().UTC(),
	}
}

// IsCreator reports whether the given user created the team.
func (t *Team) IsCreator(userID int64) bool {
	return t.CreatorID == userID
}

// TeamPatch is a partial update for a Team. The slug is deliberately not
// patchable: it is fixed at creation.
type TeamPatch struct {
	Name        *string
	Description *string
}

// Apply merges the patch onto t and returns the updated copy.
func (p TeamPatch) Apply(t Team) Team {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	return t
}

// translit maps accented latin characters onto their ASCII equivalents
// during slug derivation.
var translit = map[rune]rune{
	'à': 'a', 'á': 'a', 'ä': 'a', 'â': 'a', 'ã': 'a', 'å': 'a', 'ă': 'a', 'ą': 'a',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'đ': 'd', 'ď': 'd',
	'è': 'e', 'é': 'e', 'ě': 'e', 'ė': 'e', 'ë': 'e', 'ê': 'e', 'ę': 'e',
	'ğ': 'g',
	'ì': 'i', 'í': 'i', 'ï': 'i', 'î': 'i', 'į': 'i',
	'ł': 'l',
	'ń': 'n', 'ň': 'n', 'ñ': 'n',
	'ò': 'o', 'ó': 'o', 'ö': 'o', 'ô': 'o', 'ø': 'o',
	'ř': 'r',
	'ś': 's', 'š': 's', 'ș': 's', 'ß': 's',
	'ť': 't', 'ț': 't',
	'ù': 'u', 'ú': 'u', 'ü': 'u', 'û': 'u', 'ů': 'u', 'ű': 'u', 'ū': 'u', 'ų': 'u',
	'ÿ': 'y', 'ý': 'y',
	'ź': 'z', 'ž': 'z', 'ż': 'z',
}

// NewSlug derives a URL-safe slug from a team name: lowercased, accented
// characters transliterated, "&" spelled out, runs of everything else
// collapsed into single hyphens. A random 8-character suffix is appended
// so equal names produce distinct slugs.
func NewSlug(name string) string {
	var b strings.Builder
	hyphen := false
	writeRune := func(r rune) {
		b.WriteRune(r)
		hyphen = false
	}
	writeHyphen := func() {
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			writeRune(r)
		case r == '&':
			writeHyphen()
			b.WriteString("and")
			hyphen = false
			writeHyphen()
		default:
			if t, ok := translit[r]; ok {
				writeRune(t)
			} else {
				writeHyphen()
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	entropy := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if slug == "" {
		return entropy
	}
	return slug + "-" + entropy
}
