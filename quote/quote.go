// quote/quote.go
package quote

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/wfunc/quotebot/models"
)

// ErrEmptyCorpus is returned when the corpus contains no records.
var ErrEmptyCorpus = errors.New("quote corpus is empty")

// Source holds the quote corpus and hands out random records.
// The corpus is loaded once and never mutated afterwards.
type Source struct {
	records []models.QuoteRecord
}

// NewSource wraps an already-loaded corpus.
func NewSource(records []models.QuoteRecord) *Source {
	return &Source{records: records}
}

// LoadCSV reads the corpus from a CSV file with a
// character,line,ep_code,ep_name header row.
func LoadCSV(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	records, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	return &Source{records: records}, nil
}

func parseCSV(r io.Reader) ([]models.QuoteRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Skip the header row
	var records []models.QuoteRecord
	for _, row := range rows[1:] {
		records = append(records, models.QuoteRecord{
			Character:   row[0],
			Line:        row[1],
			EpisodeCode: row[2],
			EpisodeName: row[3],
		})
	}
	return records, nil
}

// Len returns the number of records in the corpus.
func (s *Source) Len() int {
	return len(s.records)
}

// Select returns a uniformly random record. Selection is with
// replacement; repeats across rounds are expected.
func (s *Source) Select() (models.QuoteRecord, error) {
	if len(s.records) == 0 {
		return models.QuoteRecord{}, ErrEmptyCorpus
	}
	return s.records[rand.Intn(len(s.records))], nil
}
