package services

import (
	"fmt"
	"strings"

	"apartment-tracker/models"
	"apartment-tracker/utils"
)

// InsightService computes aggregate market stats over the listing tables.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate builds a MarketReport from the active and archived sets.
func (s *InsightService) Generate(active, archived []*models.Listing) *models.MarketReport {
	report := &models.MarketReport{
		UnitsByFloor: make(map[string]int),
	}

	report.TotalActive = len(active)
	report.TotalArchived = len(archived)
	if len(active) == 0 {
		return report
	}

	report.MinPrice = active[0].Price
	report.MaxPrice = active[0].Price
	report.MostExpensive = active[0]

	var total int
	for _, l := range active {
		total += l.Price
		if l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if l.Price > report.MaxPrice {
			report.MaxPrice = l.Price
			report.MostExpensive = l
		}
		if l.Floor != "" {
			report.UnitsByFloor[l.Floor]++
		}
	}
	report.AveragePrice = round2(float64(total) / float64(len(active)))

	return report
}

// Print writes a human-readable report to stdout.
func (s *InsightService) Print(r *models.MarketReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  APARTMENT AVAILABILITY REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Available units : \033[1m%d\033[0m\n", r.TotalActive)
	fmt.Printf("  Off-market units: \033[1m%d\033[0m\n", r.TotalArchived)
	fmt.Println()

	fmt.Printf("\033[1;33m  Rent Statistics (per month)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.TotalActive > 0 {
		fmt.Printf("  Average rent : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum rent : \033[1;32m$%d\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum rent : \033[1;32m$%d\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No units currently available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Unit\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s — \033[1;31m$%d/month\033[0m (%s)\n",
			r.MostExpensive.Name, r.MostExpensive.Price, r.MostExpensive.Floor)
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Units by Floor Plan\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.UnitsByFloor) == 0 {
		fmt.Printf("  No floor plan data\n")
	} else {
		for floor, count := range r.UnitsByFloor {
			bar := strings.Repeat("█", count)
			fmt.Printf("  %-30s %s (%d)\n", floor, bar, count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
