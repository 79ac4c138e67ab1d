package models

// Listing is a single apartment unit as shown on the floorplan page.
// Name is the identity key; a listing keeps its Name for its whole life
// in the active table and into the archive.
type Listing struct {
	Name      string   `json:"name"`
	Floor     string   `json:"floor"`
	Style     *string  `json:"style"`
	PageURL   string   `json:"page_url"`
	Price     int      `json:"price"`
	Details   []string `json:"details"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	DeletedAt int64    `json:"deleted_at,omitempty"` // set on archived copies only
}

// FieldsEqual reports whether two listings carry the same scraped data.
// Timestamps are deliberately excluded: they record when the store saw a
// change, not whether one happened.
func (l *Listing) FieldsEqual(other *Listing) bool {
	if l.Price != other.Price ||
		l.Floor != other.Floor ||
		l.PageURL != other.PageURL {
		return false
	}
	if (l.Style == nil) != (other.Style == nil) {
		return false
	}
	if l.Style != nil && *l.Style != *other.Style {
		return false
	}
	if len(l.Details) != len(other.Details) {
		return false
	}
	for i := range l.Details {
		if l.Details[i] != other.Details[i] {
			return false
		}
	}
	return true
}

// FailedOp identifies a single store operation that failed during a cycle.
type FailedOp struct {
	Name  string `json:"name"`
	Op    string `json:"op"` // "create", "update" or "archive"
	Error string `json:"error"`
}

// CycleOutcome summarises one reconciliation cycle for the caller.
type CycleOutcome struct {
	Fetched   int        `json:"fetched"`
	Skipped   int        `json:"skipped"` // fragments dropped by extraction
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Archived  int        `json:"archived"`
	Failed    []FailedOp `json:"failed,omitempty"`
}

// MarketReport holds the computed aggregates over the active set.
type MarketReport struct {
	TotalActive   int            `json:"total_active"`
	TotalArchived int            `json:"total_archived"`
	AveragePrice  float64        `json:"average_price"`
	MinPrice      int            `json:"min_price"`
	MaxPrice      int            `json:"max_price"`
	MostExpensive *Listing       `json:"most_expensive,omitempty"`
	UnitsByFloor  map[string]int `json:"units_by_floor"`
}
