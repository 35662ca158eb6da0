// persistence/jsonfile.go
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/wfunc/quotebot/models"
)

// JSONFileStore keeps rounds and scores in two human-inspectable JSON
// documents, one map per file. Every mutation re-reads the document,
// applies the change and replaces the whole file under the store's
// mutex, fsynced and renamed into place before returning. A missing
// file is the empty state, not an error.
type JSONFileStore struct {
	roundsPath string
	scoresPath string
	roundMutex sync.Mutex
	scoreMutex sync.Mutex
}

// NewJSONFileStore creates a store backed by the two given file paths.
// Parent directories are created if needed.
func NewJSONFileStore(roundsPath, scoresPath string) (*JSONFileStore, error) {
	for _, p := range []string{roundsPath, scoresPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	return &JSONFileStore{
		roundsPath: roundsPath,
		scoresPath: scoresPath,
	}, nil
}

func readDocument[V any](path string) (map[string]V, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]V), nil
		}
		return nil, err
	}

	doc := make(map[string]V)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// writeDocument replaces the document atomically: the new content is
// written to a sibling temp file, fsynced, then renamed over the
// target. A crash mid-write leaves the previous version intact.
func writeDocument[V any](path string, doc map[string]V) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// --- RoundStore ---

func (s *JSONFileStore) Create(roundID string, record models.QuoteRecord) error {
	s.roundMutex.Lock()
	defer s.roundMutex.Unlock()

	rounds, err := readDocument[models.Round](s.roundsPath)
	if err != nil {
		return err
	}

	if _, exists := rounds[roundID]; exists {
		return ErrDuplicateRound
	}

	rounds[roundID] = models.Round{QuoteRecord: record}
	return writeDocument(s.roundsPath, rounds)
}

func (s *JSONFileStore) Get(roundID string) (models.Round, bool, error) {
	s.roundMutex.Lock()
	defer s.roundMutex.Unlock()

	rounds, err := readDocument[models.Round](s.roundsPath)
	if err != nil {
		return models.Round{}, false, err
	}

	round, exists := rounds[roundID]
	return round, exists, nil
}

func (s *JSONFileStore) Resolve(roundID string, resolvedBy string) (models.QuoteRecord, bool, error) {
	s.roundMutex.Lock()
	defer s.roundMutex.Unlock()

	rounds, err := readDocument[models.Round](s.roundsPath)
	if err != nil {
		return models.QuoteRecord{}, false, err
	}

	round, exists := rounds[roundID]
	if !exists {
		return models.QuoteRecord{}, false, ErrRoundNotFound
	}

	if round.Answered {
		return round.QuoteRecord, true, nil
	}

	round.Answered = true
	if resolvedBy != "" {
		round.AnsweredBy = resolvedBy
	}
	rounds[roundID] = round

	if err := writeDocument(s.roundsPath, rounds); err != nil {
		return models.QuoteRecord{}, false, err
	}
	return round.QuoteRecord, false, nil
}

func (s *JSONFileStore) CountOpen() (int, error) {
	s.roundMutex.Lock()
	defer s.roundMutex.Unlock()

	rounds, err := readDocument[models.Round](s.roundsPath)
	if err != nil {
		return 0, err
	}

	var open int
	for _, round := range rounds {
		if !round.Answered {
			open++
		}
	}
	return open, nil
}

// --- ScoreStore ---

func (s *JSONFileStore) Adjust(userID, displayName string, delta int) (int, error) {
	s.scoreMutex.Lock()
	defer s.scoreMutex.Unlock()

	scores, err := readDocument[models.ScoreEntry](s.scoresPath)
	if err != nil {
		return 0, err
	}

	entry := scores[userID]
	entry.DisplayName = displayName
	entry.Score += delta
	scores[userID] = entry

	if err := writeDocument(s.scoresPath, scores); err != nil {
		return 0, err
	}
	return entry.Score, nil
}

func (s *JSONFileStore) ReadAll() ([]models.ScoreEntry, error) {
	s.scoreMutex.Lock()
	defer s.scoreMutex.Unlock()

	scores, err := readDocument[models.ScoreEntry](s.scoresPath)
	if err != nil {
		return nil, err
	}

	if len(scores) == 0 {
		return nil, ErrNoScores
	}

	entries := make([]models.ScoreEntry, 0, len(scores))
	for userID, entry := range scores {
		entry.UserID = userID
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *JSONFileStore) Close() error {
	return nil
}
