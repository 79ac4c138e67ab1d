package services

import (
	"testing"

	"apartment-tracker/models"
	"apartment-tracker/utils"
)

func sampleActive() []*models.Listing {
	return []*models.Listing{
		{Name: "Unit 101", Floor: "Highwood", Price: 1372},
		{Name: "Unit 102", Floor: "Highwood", Price: 1450},
		{Name: "Unit 201", Floor: "Lakeside", Price: 1005},
		{Name: "Unit 202", Floor: "Lakeside", Price: 1610},
	}
}

func sampleArchived() []*models.Listing {
	return []*models.Listing{
		{Name: "Unit 301", Floor: "Highwood", Price: 1200, DeletedAt: 2000},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))
	r := svc.Generate(sampleActive(), sampleArchived())
	if r.TotalActive != 4 {
		t.Errorf("TotalActive: got %d, want 4", r.TotalActive)
	}
	if r.TotalArchived != 1 {
		t.Errorf("TotalArchived: got %d, want 1", r.TotalArchived)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))
	r := svc.Generate(sampleActive(), nil)
	wantAvg := 1359.25
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 1005 {
		t.Errorf("MinPrice: got %d, want 1005", r.MinPrice)
	}
	if r.MaxPrice != 1610 {
		t.Errorf("MaxPrice: got %d, want 1610", r.MaxPrice)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))
	r := svc.Generate(sampleActive(), nil)
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.Name != "Unit 202" {
		t.Errorf("MostExpensive: got %q, want %q", r.MostExpensive.Name, "Unit 202")
	}
}

func TestInsightFloorGrouping(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))
	r := svc.Generate(sampleActive(), nil)
	if r.UnitsByFloor["Highwood"] != 2 {
		t.Errorf("Highwood count: got %d, want 2", r.UnitsByFloor["Highwood"])
	}
	if r.UnitsByFloor["Lakeside"] != 2 {
		t.Errorf("Lakeside count: got %d, want 2", r.UnitsByFloor["Lakeside"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewLogger(false))
	r := svc.Generate(nil, nil)
	if r.TotalActive != 0 || r.MostExpensive != nil {
		t.Errorf("expected empty report for empty input, got %+v", r)
	}
}
