package storage

import (
	"context"
	"errors"
	"testing"

	"apartment-tracker/models"
)

// openTestStore returns an in-memory store with a controllable clock.
func openTestStore(t *testing.T) (*Store, *int64) {
	t.Helper()

	s := OpenMemory(t)
	clock := int64(1000)
	s.now = func() int64 { return clock }
	return s, &clock
}

func strPtr(s string) *string { return &s }

func sampleListing(name string) *models.Listing {
	return &models.Listing{
		Name:    name,
		Floor:   "Highwood",
		Style:   strPtr("A1"),
		PageURL: "https://www.villagesonmcknight.com/floorplans/highwood",
		Price:   1372,
		Details: []string{"1 Bed", "1 Bath", "720 sqft"},
	}
}

func TestCreateAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, "Unit 101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price != 1372 {
		t.Errorf("price: got %d, want 1372", got.Price)
	}
	if got.Style == nil || *got.Style != "A1" {
		t.Errorf("style: got %v, want A1", got.Style)
	}
	if got.CreatedAt != 1000 || got.UpdatedAt != 1000 {
		t.Errorf("timestamps: got created=%d updated=%d, want 1000/1000", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.Details) != 3 || got.Details[0] != "1 Bed" || got.Details[2] != "720 sqft" {
		t.Errorf("details not preserved in order: %v", got.Details)
	}
}

func TestCreateNilStyleAndEmptyDetails(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	l := sampleListing("Unit 102")
	l.Style = nil
	l.Details = nil
	if err := s.Create(ctx, l); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, "Unit 102")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Style != nil {
		t.Errorf("style: got %q, want nil", *got.Style)
	}
	if got.Details == nil || len(got.Details) != 0 {
		t.Errorf("details: got %v, want empty slice", got.Details)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, sampleListing("Unit 101"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second create: got %v, want ErrDuplicate", err)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Get(context.Background(), "Unit 999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("get missing: got %v, want ErrNotFound", err)
	}
}

func TestUpdateAdvancesOnlyUpdatedAt(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("create: %v", err)
	}

	*clock = 2000
	changed := sampleListing("Unit 101")
	changed.Price = 1450
	if err := s.Update(ctx, "Unit 101", changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Get(ctx, "Unit 101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price != 1450 {
		t.Errorf("price: got %d, want 1450", got.Price)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("created_at changed: got %d, want 1000", got.CreatedAt)
	}
	if got.UpdatedAt != 2000 {
		t.Errorf("updated_at: got %d, want 2000", got.UpdatedAt)
	}
}

func TestUpdateMissing(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.Update(context.Background(), "Unit 999", sampleListing("Unit 999"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}
}

func TestArchiveMovesRow(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("create: %v", err)
	}

	*clock = 3000
	if err := s.Archive(ctx, "Unit 101"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := s.Get(ctx, "Unit 101"); !errors.Is(err, ErrNotFound) {
		t.Errorf("archived listing still active: %v", err)
	}

	archived, err := s.GetAllArchived(ctx)
	if err != nil {
		t.Fatalf("get all archived: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("archive rows: got %d, want 1", len(archived))
	}
	a := archived[0]
	if a.Name != "Unit 101" || a.DeletedAt != 3000 {
		t.Errorf("archived row: name=%q deleted_at=%d", a.Name, a.DeletedAt)
	}
	if a.CreatedAt != 1000 || a.UpdatedAt != 1000 {
		t.Errorf("original timestamps not preserved: created=%d updated=%d", a.CreatedAt, a.UpdatedAt)
	}
}

func TestArchiveMissing(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.Archive(context.Background(), "Unit 999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("archive missing: got %v, want ErrNotFound", err)
	}
}

func TestArchiveTwiceKeepsOneRow(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	*clock = 2000
	if err := s.Archive(ctx, "Unit 101"); err != nil {
		t.Fatalf("first archive: %v", err)
	}

	// Reappears, then vanishes again.
	*clock = 3000
	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("second create: %v", err)
	}
	*clock = 4000
	if err := s.Archive(ctx, "Unit 101"); err != nil {
		t.Fatalf("second archive: %v", err)
	}

	archived, err := s.GetAllArchived(ctx)
	if err != nil {
		t.Fatalf("get all archived: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("archive rows: got %d, want 1", len(archived))
	}
	if archived[0].DeletedAt != 4000 || archived[0].CreatedAt != 3000 {
		t.Errorf("archive row not replaced by latest: created=%d deleted=%d",
			archived[0].CreatedAt, archived[0].DeletedAt)
	}
}

func TestGetAllActiveOrderedByName(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Unit 300", "Unit 100", "Unit 200"} {
		if err := s.Create(ctx, sampleListing(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	active, err := s.GetAllActive(ctx)
	if err != nil {
		t.Fatalf("get all active: %v", err)
	}
	want := []string{"Unit 100", "Unit 200", "Unit 300"}
	if len(active) != len(want) {
		t.Fatalf("active rows: got %d, want %d", len(active), len(want))
	}
	for i, name := range want {
		if active[i].Name != name {
			t.Errorf("active[%d]: got %q, want %q", i, active[i].Name, name)
		}
	}
}

func TestGetAllActiveEmptyIsNotNil(t *testing.T) {
	s, _ := openTestStore(t)

	active, err := s.GetAllActive(context.Background())
	if err != nil {
		t.Fatalf("get all active: %v", err)
	}
	if active == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(active) != 0 {
		t.Errorf("expected no rows, got %d", len(active))
	}
}

func TestGetAllArchivedOrderedByDeletedAt(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Unit 100", "Unit 200"} {
		if err := s.Create(ctx, sampleListing(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		*clock = int64(2000 + i*1000)
		if err := s.Archive(ctx, name); err != nil {
			t.Fatalf("archive %s: %v", name, err)
		}
	}

	archived, err := s.GetAllArchived(ctx)
	if err != nil {
		t.Fatalf("get all archived: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("archive rows: got %d, want 2", len(archived))
	}
	if archived[0].Name != "Unit 200" || archived[1].Name != "Unit 100" {
		t.Errorf("archive order: got [%s, %s], want newest first",
			archived[0].Name, archived[1].Name)
	}
}

func TestRecreateAfterArchive(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("create: %v", err)
	}
	*clock = 2000
	if err := s.Archive(ctx, "Unit 101"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	*clock = 3000
	if err := s.Create(ctx, sampleListing("Unit 101")); err != nil {
		t.Fatalf("re-create after archive: %v", err)
	}

	active, _ := s.GetAllActive(ctx)
	archived, _ := s.GetAllArchived(ctx)
	if len(active) != 1 || len(archived) != 1 {
		t.Fatalf("got %d active / %d archived, want 1 / 1", len(active), len(archived))
	}
	if active[0].CreatedAt != 3000 {
		t.Errorf("re-created listing should get a fresh created_at, got %d", active[0].CreatedAt)
	}
	if archived[0].CreatedAt != 1000 || archived[0].DeletedAt != 2000 {
		t.Errorf("archived copy was touched by re-create: created=%d deleted=%d",
			archived[0].CreatedAt, archived[0].DeletedAt)
	}
}
