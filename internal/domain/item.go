package domain

import (
	"time"
)

// Item is a single expense or income line within a team. Its Total is
// derived from Price and Quantity on every write; values supplied by
// callers for Total are ignored.
type Item struct {
	// ID is the unique identifier for the item (auto-generated).
	ID int64 `json:"id"`

	// Date is when the expense or income occurred.
	Date time.Time `json:"date"`

	// Name is a short label for the item.
	Name string `json:"name"`

	// Note is an optional free-text note.
	Note string `json:"note,omitempty"`

	// Quantity is the number of units, at least 1. Fractional
	// quantities are allowed.
	Quantity float64 `json:"quantity"`

	// Price is the per-unit price, never negative.
	Price float64 `json:"price"`

	// Total is Price multiplied by Quantity. Recomputed whenever price
	// or quantity changes; never accepted from callers.
	Total float64 `json:"total"`

	// CategoryID references a category in the same team.
	CategoryID int64 `json:"category_id"`

	// TeamID is the team the item belongs to.
	TeamID int64 `json:"team_id"`

	// CreatorID is the user who recorded the item.
	CreatorID int64 `json:"creator_id"`

	// CategoryName and CategoryType are resolved from the referenced
	// category on reads and creates, for caller convenience. They are
	// not persisted on the item itself.
	CategoryName string       `json:"category_name,omitempty"`
	CategoryType CategoryType `json:"category_type,omitempty"`
}

// RecomputeTotal derives Total from Price and Quantity.
func (i *Item) RecomputeTotal() {
	i.Total = i.Price * i.Quantity
}

// ValidateAmounts checks the quantity and price bounds.
func (i *Item) ValidateAmounts() error {
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ItemPatch is a partial update for an Item. Nil fields keep their prior
// values. A patched item always has its Total re-derived, so a stale or
// caller-supplied total can never survive an update.
type ItemPatch struct {
	Date       *time.Time
	Name       *string
	Note       *string
	Quantity   *float64
	Price      *float64
	CategoryID *int64
}

// Apply merges the patch onto it, re-derives the total and returns the
// updated copy.
func (p ItemPatch) Apply(it Item) Item {
	if p.Date != nil {
		it.Date = *p.Date
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Note != nil {
		it.Note = *p.Note
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.CategoryID != nil {
		it.CategoryID = *p.CategoryID
	}
	it.RecomputeTotal()
	return it
}

// CategoryTotal is one row of a per-category rollup: the sum of item
// totals for a single category, joined with category metadata. Categories
// without matching items produce no row at all.
type CategoryTotal struct {
	CategoryID int64        `json:"category_id"`
	Name       string       `json:"name"`
	Type       CategoryType `json:"type"`
	Total      float64      `json:"total"`
}
