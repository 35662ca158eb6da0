package engine

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wfunc/quotebot/logger"
	"github.com/wfunc/quotebot/models"
	"github.com/wfunc/quotebot/persistence"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fixedSource is a test double for the QuoteSource interface.
type fixedSource struct {
	record models.QuoteRecord
	err    error
}

func (s *fixedSource) Select() (models.QuoteRecord, error) {
	return s.record, s.err
}

var rossQuote = models.QuoteRecord{
	Character:   "ROSS",
	Line:        "We were on a break!",
	EpisodeCode: "S03E15",
	EpisodeName: "The One Where Ross and Rachel Take a Break",
}

func newTestEngine(t *testing.T) (*Engine, *persistence.JSONFileStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := persistence.NewJSONFileStore(
		filepath.Join(dir, "history.json"),
		filepath.Join(dir, "scores.json"),
	)
	if err != nil {
		t.Fatalf("NewJSONFileStore failed: %v", err)
	}
	return NewEngine(&fixedSource{record: rossQuote}, store, store), store
}

func scoreOf(t *testing.T, store *persistence.JSONFileStore, userID string) int {
	t.Helper()
	entries, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Score
		}
	}
	t.Fatalf("No score entry for %s", userID)
	return 0
}

func TestPostNewRound_ReturnsLine(t *testing.T) {
	eng, _ := newTestEngine(t)

	line, record, err := eng.PostNewRound()
	if err != nil {
		t.Fatalf("PostNewRound failed: %v", err)
	}
	if line != rossQuote.Line {
		t.Errorf("Expected the quote line, got %q", line)
	}
	if record != rossQuote {
		t.Errorf("Expected the full record back, got %+v", record)
	}
}

func TestTrackRound_Duplicate(t *testing.T) {
	eng, _ := newTestEngine(t)

	if err := eng.TrackRound("msg1", rossQuote); err != nil {
		t.Fatalf("TrackRound failed: %v", err)
	}

	err := eng.TrackRound("msg1", rossQuote)
	if err == nil {
		t.Fatal("Duplicate TrackRound should be surfaced, not swallowed")
	}
}

func TestHandleGuess_UntrackedRound(t *testing.T) {
	eng, _ := newTestEngine(t)

	reply, err := eng.HandleGuess("unknown", "user1", "rachel", "ROSS")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if reply.Text != "" {
		t.Errorf("Guess on an untracked round should produce no reply, got %q", reply.Text)
	}
}

func TestHandleGuess_SubstringMatchWins(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)

	// "OS" is inside "ROSS"; the loose substring rule counts it
	reply, err := eng.HandleGuess("msg1", "user1", "rachel", "os")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if !strings.Contains(reply.Text, "The answer is ROSS") {
		t.Errorf("Expected a success reply naming ROSS, got %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "+1 to rachel") {
		t.Errorf("Success reply should credit the guesser, got %q", reply.Text)
	}
	if !reply.Resolved || !reply.Correct {
		t.Errorf("Winning guess should report Resolved and Correct, got %+v", reply)
	}

	if got := scoreOf(t, store, "user1"); got != 1 {
		t.Errorf("Expected score 1 for the winner, got %d", got)
	}

	round, _, _ := store.Get("msg1")
	if !round.Answered || round.AnsweredBy != "user1" {
		t.Errorf("Round should be resolved by user1, got %+v", round)
	}
}

func TestHandleGuess_IncorrectCostsAPoint(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)

	reply, err := eng.HandleGuess("msg1", "user1", "joey", "CHANDLER")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if reply.Text != ":x: Incorrect, -1 to joey" {
		t.Errorf("Unexpected failure reply: %q", reply.Text)
	}
	if reply.Resolved || reply.Correct {
		t.Errorf("Incorrect guess should not resolve anything, got %+v", reply)
	}

	if got := scoreOf(t, store, "user1"); got != -1 {
		t.Errorf("First recorded score can be -1, got %d", got)
	}

	round, _, _ := store.Get("msg1")
	if round.Answered {
		t.Error("An incorrect guess must not resolve the round")
	}
}

func TestHandleGuess_ClosedRound(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)
	eng.HandleGuess("msg1", "user1", "rachel", "ross")

	reply, err := eng.HandleGuess("msg1", "user2", "joey", "ross")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if reply.Text != ":x: This quote has already been answered" {
		t.Errorf("Expected the closed-round reply, got %q", reply.Text)
	}

	// Closed-round guesses never touch the score store
	entries, _ := store.ReadAll()
	if len(entries) != 1 {
		t.Errorf("Expected only the winner's entry, got %+v", entries)
	}
}

func TestHandleGuess_RevealOpenRound(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)

	reply, err := eng.HandleGuess("msg1", "user1", "rachel", "!answer")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if reply.Text != ":bulb: The answer is ROSS, from S03E15 - The One Where Ross and Rachel Take a Break" {
		t.Errorf("Unexpected reveal reply: %q", reply.Text)
	}
	if !reply.Resolved || reply.Correct {
		t.Errorf("Reveal on an open round resolves without credit, got %+v", reply)
	}

	round, _, _ := store.Get("msg1")
	if !round.Answered {
		t.Error("Reveal should resolve the round")
	}
	if round.AnsweredBy != "" {
		t.Errorf("Reveal must not set AnsweredBy, got %q", round.AnsweredBy)
	}

	if _, err := store.ReadAll(); err != persistence.ErrNoScores {
		t.Error("Reveal must not create any score entry")
	}
}

func TestHandleGuess_RepeatReveal(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)
	eng.HandleGuess("msg1", "user1", "rachel", "ross")

	// A reveal on a resolved round re-discloses without side effects
	reply, err := eng.HandleGuess("msg1", "user2", "joey", "!ANSWER")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if !strings.HasPrefix(reply.Text, ":bulb: The answer is ROSS") {
		t.Errorf("Repeat reveal should still disclose, got %q", reply.Text)
	}
	if reply.Resolved {
		t.Error("Repeat reveal must not report a fresh resolution")
	}

	round, _, _ := store.Get("msg1")
	if round.AnsweredBy != "user1" {
		t.Errorf("Repeat reveal must not change AnsweredBy, got %q", round.AnsweredBy)
	}

	if got := scoreOf(t, store, "user1"); got != 1 {
		t.Errorf("Repeat reveal must not change scores, got %d", got)
	}
}

func TestHandleGuess_RevealBeatsSubstringMatch(t *testing.T) {
	// "!ANSWERS" would never substring-match, but make the command
	// precedence explicit with a name that contains the command text
	eng, store := newTestEngine(t)
	record := rossQuote
	record.Character = "MR. !ANSWER MAN"
	eng.TrackRound("msg1", record)

	reply, err := eng.HandleGuess("msg1", "user1", "rachel", "!ANSWER")
	if err != nil {
		t.Fatalf("HandleGuess failed: %v", err)
	}
	if !strings.HasPrefix(reply.Text, ":bulb:") {
		t.Errorf("Command prefix must take priority over matching, got %q", reply.Text)
	}

	round, _, _ := store.Get("msg1")
	if round.AnsweredBy != "" {
		t.Error("Reveal path must not credit the sender")
	}
}

func TestHandleGuess_ConcurrentCorrectGuesses(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)

	guessers := []struct {
		id    string
		name  string
		guess string
	}{
		{"user1", "rachel", "ROSS"},
		{"user2", "joey", "ROS"},
	}

	var wg sync.WaitGroup
	replies := make([]Reply, len(guessers))
	for i, g := range guessers {
		wg.Add(1)
		go func(i int, id, name, guess string) {
			defer wg.Done()
			reply, err := eng.HandleGuess("msg1", id, name, guess)
			if err != nil {
				t.Errorf("HandleGuess failed: %v", err)
			}
			replies[i] = reply
		}(i, g.id, g.name, g.guess)
	}
	wg.Wait()

	var wins, rejections int
	for _, reply := range replies {
		switch {
		case reply.Correct:
			wins++
		case reply.Text == ":x: This quote has already been answered":
			rejections++
		default:
			t.Errorf("Unexpected reply: %+v", reply)
		}
	}
	if wins != 1 || rejections != 1 {
		t.Fatalf("Exactly one guesser should win: wins=%d rejections=%d", wins, rejections)
	}

	round, _, _ := store.Get("msg1")
	winner := round.AnsweredBy
	if winner != "user1" && winner != "user2" {
		t.Fatalf("AnsweredBy should name the winner, got %q", winner)
	}

	// Only the winner is credited; the loser's score is untouched
	entries, _ := store.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("Expected one score entry, got %+v", entries)
	}
	if entries[0].UserID != winner || entries[0].Score != 1 {
		t.Errorf("Winner should have exactly +1, got %+v", entries[0])
	}
}

func TestHandleGuess_ScoreIsSumOfDeltas(t *testing.T) {
	eng, store := newTestEngine(t)
	eng.TrackRound("msg1", rossQuote)
	eng.TrackRound("msg2", rossQuote)
	eng.TrackRound("msg3", rossQuote)

	eng.HandleGuess("msg1", "user1", "rachel", "CHANDLER") // -1
	eng.HandleGuess("msg2", "user1", "rachel", "MONICA")   // -1 (different round)
	eng.HandleGuess("msg1", "user1", "rachel", "ROSS")     // +1
	eng.HandleGuess("msg1", "user1", "rachel", "ROSS")     // closed, 0
	eng.HandleGuess("msg3", "user1", "rachel", "!ANSWER")  // reveal, 0

	if got := scoreOf(t, store, "user1"); got != -1 {
		t.Errorf("Score should be the sum of applied deltas (-1-1+1), got %d", got)
	}
}
