// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/quotebot/models"
)

// RoundStore 回合存储接口
//
// Implementations own the round collection exclusively and must
// serialize their own read-modify-write cycles; callers never compose
// a read and a write themselves.
type RoundStore interface {
	// Create stores a new open round under roundID. Returns
	// ErrDuplicateRound if the ID is already tracked.
	Create(roundID string, record models.QuoteRecord) error

	// Get looks up a round without mutating anything.
	Get(roundID string) (models.Round, bool, error)

	// Resolve atomically marks a round answered. resolvedBy is the
	// guesser's user ID, or empty for a reveal (AnsweredBy stays
	// unset). If the round was already answered the call is a no-op
	// and alreadyResolved is true; two concurrent calls on the same
	// round never both observe alreadyResolved=false.
	Resolve(roundID string, resolvedBy string) (record models.QuoteRecord, alreadyResolved bool, err error)

	// CountOpen reports how many rounds are still unanswered, so the
	// open-round gauge can be seeded from durable state on startup.
	CountOpen() (int, error)

	Close() error
}

// ScoreStore 积分存储接口
type ScoreStore interface {
	// Adjust atomically applies delta to the user's score, creating
	// the entry at zero first if absent, and unconditionally updates
	// the display name. Returns the resulting score.
	Adjust(userID, displayName string, delta int) (int, error)

	// ReadAll returns every score entry. Returns ErrNoScores when
	// nothing has ever been recorded. A store file that exists but
	// holds zero entries is reported as ErrNoScores as well; the two
	// states are deliberately unified.
	ReadAll() ([]models.ScoreEntry, error)

	Close() error
}

// 错误定义
var (
	ErrDuplicateRound = errors.New("round already exists")
	ErrRoundNotFound  = errors.New("round not found")
	ErrNoScores       = errors.New("no scores recorded")
)
