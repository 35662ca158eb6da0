// bot/bot.go
package bot

import (
	"strings"
	"time"

	"github.com/wfunc/quotebot/engine"
	"github.com/wfunc/quotebot/logger"
	"github.com/wfunc/quotebot/monitor"
	"github.com/wfunc/quotebot/transport"
)

// Command prefixes recognized anywhere in the game channel.
const (
	cmdNewQuote = "!FRIENDS"
	cmdScores   = "!SCORE"
)

// Gateway is the slice of the transport client the bot needs.
type Gateway interface {
	Events() <-chan transport.Message
	PostToChannel(channelID, text string) (string, error)
	ReplyToMessage(messageID, text string) error
}

// Bot binds gateway events to the round engine: it filters messages,
// handles the command surface and sends replies. Guess handling runs
// one goroutine per message, so concurrent guesses on the same round
// exercise the stores' atomic resolution.
type Bot struct {
	gateway   Gateway
	engine    *engine.Engine
	channelID string
	monitor   *monitor.Monitor
}

// NewBot creates a bot for the given game channel. monitor may be nil.
func NewBot(gateway Gateway, eng *engine.Engine, channelID string, mon *monitor.Monitor) *Bot {
	return &Bot{
		gateway:   gateway,
		engine:    eng,
		channelID: channelID,
		monitor:   mon,
	}
}

// Run consumes gateway events until the connection dies.
func (b *Bot) Run() {
	for msg := range b.gateway.Events() {
		go b.handleMessage(msg)
	}
	logger.Log.Info("Gateway event stream closed")
}

// PostQuote starts a new round: pick a quote, post it, then track the
// round under the message ID the gateway assigned. Two-phase because
// the round ID only exists once the message does.
func (b *Bot) PostQuote() error {
	line, record, err := b.engine.PostNewRound()
	if err != nil {
		return err
	}

	messageID, err := b.gateway.PostToChannel(b.channelID, line)
	if err != nil {
		return err
	}
	logger.Log.Infof("Sent quote: %q", line)

	if err := b.engine.TrackRound(messageID, record); err != nil {
		return err
	}

	if b.monitor != nil {
		b.monitor.IncRoundsPosted()
	}
	return nil
}

func (b *Bot) handleMessage(msg transport.Message) {
	// Ignore our own messages and any other channel
	if msg.AuthorSelf || msg.ChannelID != b.channelID {
		return
	}

	start := time.Now()
	if b.monitor != nil {
		b.monitor.IncMessagesReceived()
	}

	text := strings.ToUpper(strings.TrimSpace(msg.Content))

	switch {
	case strings.HasPrefix(text, cmdNewQuote):
		logger.Log.Infof("New quote requested by %s", msg.AuthorName)
		if err := b.PostQuote(); err != nil {
			logger.Log.Errorf("Failed to post quote: %v", err)
		}

	case strings.HasPrefix(text, cmdScores):
		logger.Log.Infof("Scores requested by %s", msg.AuthorName)
		b.sendScores()

	case msg.ReplyTo != "":
		b.handleGuess(msg, start)
	}
}

func (b *Bot) handleGuess(msg transport.Message, start time.Time) {
	reply, err := b.engine.HandleGuess(msg.ReplyTo, msg.AuthorID, msg.AuthorName, msg.Content)
	if err != nil {
		// The guesser gets no reply rather than internal error text
		logger.Log.Errorf("Failed to handle guess from %s: %v", msg.AuthorName, err)
		return
	}
	if reply.Text == "" {
		// Not a reply to a tracked round
		return
	}

	if err := b.gateway.ReplyToMessage(msg.ID, reply.Text); err != nil {
		logger.Log.Errorf("Failed to send reply: %v", err)
	}

	if b.monitor != nil {
		if reply.Resolved {
			b.monitor.DecOpenRounds()
		}
		if reply.Correct {
			b.monitor.IncCorrectGuesses()
		}
		b.monitor.ObserveGuessLatency(time.Since(start))
	}
}

func (b *Bot) sendScores() {
	board, err := b.engine.Leaderboard()
	if err != nil {
		logger.Log.Errorf("Failed to read scores: %v", err)
		return
	}

	if _, err := b.gateway.PostToChannel(b.channelID, board); err != nil {
		logger.Log.Errorf("Failed to send scores: %v", err)
	}
}
