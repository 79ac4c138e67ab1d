package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"apartment-tracker/models"
	"apartment-tracker/storage"
	"apartment-tracker/utils"
)

// Fetcher yields the raw markup fragments for the currently listed units.
// A fetch error is fatal to the cycle; no store mutation happens.
type Fetcher interface {
	Fetch(ctx context.Context) ([]string, error)
}

// SnapshotSink receives the scraped set of each cycle, e.g. for a CSV dump.
type SnapshotSink interface {
	WriteSnapshot(listings []*models.Listing) error
}

// Reconciler runs refresh cycles: fetch the page, extract listings, diff
// them against the persisted active set, and apply the minimal set of
// archive/create/update operations.
//
// Cycles are serialized: a trigger arriving while a cycle is in flight
// queues behind it. Interleaved cycles could race a create against an
// archive on the same name.
type Reconciler struct {
	fetcher   Fetcher
	store     storage.ListingStore
	snapshots SnapshotSink // optional
	logger    *utils.Logger

	mu sync.Mutex
}

// NewReconciler creates a Reconciler. snapshots may be nil.
func NewReconciler(fetcher Fetcher, store storage.ListingStore, snapshots SnapshotSink, logger *utils.Logger) *Reconciler {
	return &Reconciler{
		fetcher:   fetcher,
		store:     store,
		snapshots: snapshots,
		logger:    logger,
	}
}

// RunCycle executes one reconciliation cycle and returns its outcome. The
// returned error is non-nil only for cycle-fatal failures (fetch or reading
// the active set); per-name store failures are collected in the outcome.
func (r *Reconciler) RunCycle(ctx context.Context) (*models.CycleOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome := &models.CycleOutcome{}

	fragments, err := r.fetcher.Fetch(ctx)
	if err != nil {
		// No store mutation on fetch failure.
		return nil, fmt.Errorf("reconciler: fetch: %w", err)
	}
	outcome.Fetched = len(fragments)

	// Last-write-wins on duplicate names within one fetch.
	scraped := make(map[string]*models.Listing, len(fragments))
	for _, fragment := range fragments {
		listing, err := ExtractListing(fragment)
		if err != nil {
			r.logger.Warn("[reconciler] Skipping fragment: %v", err)
			outcome.Skipped++
			continue
		}
		scraped[listing.Name] = listing
	}

	if r.snapshots != nil {
		if err := r.snapshots.WriteSnapshot(sortedByName(scraped)); err != nil {
			r.logger.Warn("[reconciler] Snapshot write failed: %v", err)
		}
	}

	active, err := r.store.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconciler: load active set: %w", err)
	}
	activeByName := make(map[string]*models.Listing, len(active))
	for _, l := range active {
		activeByName[l.Name] = l
	}

	// Archive first so identity slots are free before creates, and so an
	// archive failure never blocks unrelated names.
	for _, l := range active {
		if _, stillListed := scraped[l.Name]; stillListed {
			continue
		}
		if err := r.store.Archive(ctx, l.Name); err != nil {
			r.logger.Error("[reconciler] Archive failed for %q: %v", l.Name, err)
			outcome.Failed = append(outcome.Failed, models.FailedOp{Name: l.Name, Op: "archive", Error: err.Error()})
			continue
		}
		r.logger.Info("[reconciler] Archived %q", l.Name)
		outcome.Archived++
	}

	for _, incoming := range sortedByName(scraped) {
		if _, exists := activeByName[incoming.Name]; exists {
			continue
		}
		if err := r.store.Create(ctx, incoming); err != nil {
			r.logger.Error("[reconciler] Create failed for %q: %v", incoming.Name, err)
			outcome.Failed = append(outcome.Failed, models.FailedOp{Name: incoming.Name, Op: "create", Error: err.Error()})
			continue
		}
		r.logger.Info("[reconciler] Created %q at $%d", incoming.Name, incoming.Price)
		outcome.Created++
	}

	for _, incoming := range sortedByName(scraped) {
		current, exists := activeByName[incoming.Name]
		if !exists {
			continue
		}
		if current.FieldsEqual(incoming) {
			outcome.Unchanged++
			continue
		}
		if err := r.store.Update(ctx, incoming.Name, incoming); err != nil {
			r.logger.Error("[reconciler] Update failed for %q: %v", incoming.Name, err)
			outcome.Failed = append(outcome.Failed, models.FailedOp{Name: incoming.Name, Op: "update", Error: err.Error()})
			continue
		}
		r.logger.Info("[reconciler] Updated %q ($%d -> $%d)", incoming.Name, current.Price, incoming.Price)
		outcome.Updated++
	}

	r.logger.Info("[reconciler] Cycle done — fetched %d, skipped %d, created %d, updated %d, unchanged %d, archived %d, failed %d",
		outcome.Fetched, outcome.Skipped, outcome.Created, outcome.Updated,
		outcome.Unchanged, outcome.Archived, len(outcome.Failed))
	return outcome, nil
}

// sortedByName flattens the scraped set into a deterministic order for
// applying operations and writing snapshots.
func sortedByName(scraped map[string]*models.Listing) []*models.Listing {
	listings := make([]*models.Listing, 0, len(scraped))
	for _, l := range scraped {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings
}
