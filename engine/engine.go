// engine/engine.go
package engine

import (
	"fmt"
	"strings"

	"github.com/wfunc/quotebot/logger"
	"github.com/wfunc/quotebot/models"
	"github.com/wfunc/quotebot/persistence"
)

// RevealCommand discloses the answer when sent as a reply to a
// tracked round. The prefix check takes absolute priority over
// guess matching.
const RevealCommand = "!ANSWER"

// Reply is the outcome of judging one guess. An empty Text means
// silence: the message was not a reply to a tracked round. Resolved
// is true only on the call that transitioned the round to answered;
// Correct additionally means a guesser was credited.
type Reply struct {
	Text     string
	Resolved bool
	Correct  bool
}

// QuoteSource provides the next quote to post.
type QuoteSource interface {
	Select() (models.QuoteRecord, error)
}

// Engine drives the round lifecycle: it creates rounds from the quote
// source, judges guesses against open rounds and applies scoring. All
// state lives in the injected stores; the engine itself is stateless
// and safe for concurrent use.
type Engine struct {
	source QuoteSource
	rounds persistence.RoundStore
	scores persistence.ScoreStore
}

func NewEngine(source QuoteSource, rounds persistence.RoundStore, scores persistence.ScoreStore) *Engine {
	return &Engine{
		source: source,
		rounds: rounds,
		scores: scores,
	}
}

// PostNewRound selects the quote for a new round. The caller posts the
// line to the channel and hands the resulting message ID back via
// TrackRound; the round only exists once the posted message does.
func (e *Engine) PostNewRound() (string, models.QuoteRecord, error) {
	record, err := e.source.Select()
	if err != nil {
		return "", models.QuoteRecord{}, err
	}
	return record.Line, record, nil
}

// TrackRound registers a freshly posted quote message as an open round.
func (e *Engine) TrackRound(roundID string, record models.QuoteRecord) error {
	if err := e.rounds.Create(roundID, record); err != nil {
		return fmt.Errorf("track round %s: %w", roundID, err)
	}
	logger.Log.Infof("Tracking new round %s: %q", roundID, record.Line)
	return nil
}

// HandleGuess judges a reply to a tracked round and returns the reply
// to send. A reply with empty Text means silence: the message was not
// a reply to anything we track.
//
// Decision order matters and mirrors the game rules: the reveal
// command always wins, then the closed-round check, then substring
// matching, then the incorrect-guess penalty. Incorrect guesses on a
// closed round never reach the penalty branch.
func (e *Engine) HandleGuess(roundID, guesserID, guesserName, rawText string) (Reply, error) {
	round, found, err := e.rounds.Get(roundID)
	if err != nil {
		return Reply{}, err
	}
	if !found {
		return Reply{}, nil
	}

	// Uppercase for comparison only; rawText is kept for logging
	text := strings.ToUpper(strings.TrimSpace(rawText))

	if strings.HasPrefix(text, RevealCommand) {
		record, alreadyResolved, err := e.rounds.Resolve(roundID, "")
		if err != nil {
			return Reply{}, err
		}
		logger.Log.Infof("Answer to %q is %s - reveal requested by %s", record.Line, record.Character, guesserName)
		return Reply{
			Text: fmt.Sprintf(":bulb: The answer is %s, from %s - %s",
				record.Character, record.EpisodeCode, record.EpisodeName),
			Resolved: !alreadyResolved,
		}, nil
	}

	if round.Answered {
		logger.Log.Infof("Quote has already been answered - rejecting guess from %s", guesserName)
		return Reply{Text: ":x: This quote has already been answered"}, nil
	}

	// Substring containment is the matching rule, looseness included:
	// a single letter of the name counts as a correct guess.
	if strings.Contains(strings.ToUpper(round.Character), text) {
		record, alreadyResolved, err := e.rounds.Resolve(roundID, guesserID)
		if err != nil {
			return Reply{}, err
		}
		if alreadyResolved {
			// Lost the race to a concurrent guess or reveal; no points
			logger.Log.Infof("Quote has already been answered - rejecting guess from %s", guesserName)
			return Reply{Text: ":x: This quote has already been answered"}, nil
		}

		if _, err := e.scores.Adjust(guesserID, guesserName, 1); err != nil {
			return Reply{}, err
		}
		logger.Log.Infof("Answer %q from %s matches %q", rawText, guesserName, record.Character)
		return Reply{
			Text: fmt.Sprintf(":white_check_mark: The answer is %s, from %s - %s. +1 to %s :trophy: ",
				record.Character, record.EpisodeCode, record.EpisodeName, guesserName),
			Resolved: true,
			Correct:  true,
		}, nil
	}

	if _, err := e.scores.Adjust(guesserID, guesserName, -1); err != nil {
		return Reply{}, err
	}
	logger.Log.Infof("Incorrect answer %q submitted by %s", rawText, guesserName)
	return Reply{Text: fmt.Sprintf(":x: Incorrect, -1 to %s", guesserName)}, nil
}
