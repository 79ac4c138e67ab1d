package storage

import (
	"context"

	"apartment-tracker/models"
)

// ListingStore is the interface any persistence backend must satisfy.
// Timestamps on stored listings are assigned by the store, never by callers.
type ListingStore interface {
	// Get looks up one listing in the active table.
	Get(ctx context.Context, name string) (*models.Listing, error)
	// GetAllActive returns every active listing ordered by name ascending.
	// An empty table yields an empty slice, not nil.
	GetAllActive(ctx context.Context) ([]*models.Listing, error)
	// GetAllArchived returns every archived listing, most recently
	// archived first.
	GetAllArchived(ctx context.Context) ([]*models.Listing, error)
	// Create inserts a new active listing. ErrDuplicate if the name is
	// already active.
	Create(ctx context.Context, l *models.Listing) error
	// Update overwrites the mutable fields of an active listing and bumps
	// updated_at. ErrNotFound if the name is not active.
	Update(ctx context.Context, name string, l *models.Listing) error
	// Archive moves an active listing into the archive table in a single
	// transaction, stamping deleted_at. ErrNotFound if the name is not
	// active.
	Archive(ctx context.Context, name string) error
	Close() error
}
