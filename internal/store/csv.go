package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/oyilmaz/priceradar/internal/models"
)

// Output column headers, matching the sheets the batch has always
// produced for its Turkish-market consumers.
const nameHeader = "ürün ismi"

var priceHeaders = map[models.Marketplace]string{
	models.MarketplaceTeknosa:     "teknosa fiyatı",
	models.MarketplaceHepsiburada: "hepsiburada fiyatı",
	models.MarketplaceTrendyol:    "trendyol fiyatı",
	models.MarketplaceAmazon:      "amazon fiyatı",
}

// CSVStore keeps the merged sheet in memory and checkpoints it to a
// CSV file with an atomic replace. An existing file is loaded on
// startup so reruns preserve previously found prices.
type CSVStore struct {
	mu     sync.Mutex
	path   string
	rows   []*Row
	index  map[string]int
	logger *slog.Logger
}

func NewCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{
		path:   path,
		index:  make(map[string]int),
		logger: slog.Default().With("component", "store"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVStore) Merge(_ context.Context, results []*models.ResolvedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, result := range results {
		if result == nil || result.ProductName == "" {
			continue
		}
		s.row(result.ProductName).apply(result)
	}
	return nil
}

func (s *CSVStore) row(name string) *Row {
	if i, ok := s.index[name]; ok {
		return s.rows[i]
	}
	r := newRow(name)
	s.index[name] = len(s.rows)
	s.rows = append(s.rows, r)
	return r
}

// Flush writes the sheet to a temp file and renames it into place, so
// a crash mid-write never truncates the previous checkpoint.
func (s *CSVStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{nameHeader}
	for _, m := range models.BatchOrder {
		header = append(header, priceHeaders[m])
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range s.rows {
		record := []string{row.ProductName}
		for _, m := range models.BatchOrder {
			record = append(record, formatPrice(row.Prices[m]))
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint file: %w", err)
	}

	s.logger.Debug("checkpoint written", "path", s.path, "rows", len(s.rows))
	return nil
}

func (s *CSVStore) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func (s *CSVStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open existing results: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read existing results: %w", err)
	}
	if len(records) < 2 {
		return nil
	}

	header := records[0]
	columns := make(map[models.Marketplace]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for m, want := range priceHeaders {
			if h == want {
				columns[m] = i
			}
		}
	}

	for _, record := range records[1:] {
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		row := s.row(strings.TrimSpace(record[0]))
		for m, i := range columns {
			if i >= len(record) {
				continue
			}
			if value, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64); err == nil {
				row.Prices[m] = &value
			}
		}
	}

	s.logger.Info("existing results loaded",
		"path", filepath.Base(s.path),
		"rows", len(s.rows))
	return nil
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
