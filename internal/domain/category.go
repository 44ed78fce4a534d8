package domain

// CategoryType distinguishes expense categories from income categories.
type CategoryType string

const (
	// CategoryExpense marks money leaving the team.
	CategoryExpense CategoryType = "expense"

	// CategoryIncome marks money entering the team.
	CategoryIncome CategoryType = "income"
)

// Valid reports whether the category type is one of the known types.
func (t CategoryType) Valid() bool {
	return t == CategoryExpense || t == CategoryIncome
}

// Category groups items within a team. Category names are unique per team
// regardless of type: a team cannot hold both an expense and an income
// category named "Rent".
type Category struct {
	// ID is the unique identifier for the category (auto-generated).
	ID int64 `json:"id"`

	// Name is the category name, unique within the team.
	Name string `json:"name"`

	// Description is an optional free-text description.
	Description string `json:"description,omitempty"`

	// Type is expense or income.
	Type CategoryType `json:"type"`

	// TeamID is the team the category belongs to.
	TeamID int64 `json:"team_id"`
}

// CategoryPatch is a partial update for a Category. Nil fields keep their
// prior values; the owning team cannot be changed.
type CategoryPatch struct {
	Name        *string
	Description *string
	Type        *CategoryType
}

// Apply merges the patch onto c and returns the updated copy.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	return c
}
