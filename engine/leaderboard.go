// engine/leaderboard.go
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wfunc/quotebot/models"
	"github.com/wfunc/quotebot/persistence"
)

const (
	leaderboardHeader = ":coffee: The scores are:"
	noScoresMessage   = "No scores recorded yet..."
)

// Leaderboard reads the score store and renders the current standings.
func (e *Engine) Leaderboard() (string, error) {
	entries, err := e.scores.ReadAll()
	if err != nil {
		if err == persistence.ErrNoScores {
			return noScoresMessage, nil
		}
		return "", err
	}
	return FormatLeaderboard(entries), nil
}

// FormatLeaderboard renders score entries as "name: score" lines,
// highest score first. Ties keep their input order.
func FormatLeaderboard(entries []models.ScoreEntry) string {
	sorted := make([]models.ScoreEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	lines := make([]string, 0, len(sorted)+1)
	lines = append(lines, leaderboardHeader)
	for _, entry := range sorted {
		lines = append(lines, fmt.Sprintf("%s: %d", entry.DisplayName, entry.Score))
	}
	return strings.Join(lines, "\n")
}
