package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"apartment-tracker/models"
)

// SnapshotWriter dumps the scraped set of each cycle to a CSV file, useful
// for inspecting what the source page looked like when a cycle ran. Each
// cycle rewrites the file. It is safe for concurrent use.
type SnapshotWriter struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotWriter creates the snapshot writer for the given path.
// Intermediate directories are created automatically.
func NewSnapshotWriter(path string) (*SnapshotWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &SnapshotWriter{path: path}, nil
}

// WriteSnapshot replaces the snapshot file with the given listings.
func (w *SnapshotWriter) WriteSnapshot(listings []*models.Listing) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		"name", "floor", "style", "price", "page_url", "details", "scraped_at",
	}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	scrapedAt := time.Now().Format(time.RFC3339)
	for _, l := range listings {
		style := ""
		if l.Style != nil {
			style = *l.Style
		}
		row := []string{
			l.Name,
			l.Floor,
			style,
			strconv.Itoa(l.Price),
			l.PageURL,
			strings.Join(l.Details, "; "),
			scrapedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
