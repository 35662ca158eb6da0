// models/models.go
package models

// QuoteRecord is a single entry from the quote corpus. Records are
// immutable once loaded; rounds copy them by value so an open round
// stays valid even if the corpus is reloaded.
type QuoteRecord struct {
	Character   string `json:"character"`
	Line        string `json:"line"`
	EpisodeCode string `json:"ep_code"`
	EpisodeName string `json:"ep_name"`
}

// Round is one posted quote challenge, keyed by the ID of the chat
// message that posted it. Answered is one-way: once true it never
// reverts. AnsweredBy is set only when a correct guess resolves the
// round, never on a reveal.
type Round struct {
	QuoteRecord
	Answered   bool   `json:"answered"`
	AnsweredBy string `json:"answered_by,omitempty"`
}

// ScoreEntry is a user's running tally plus the display name seen on
// their most recent scoring event.
type ScoreEntry struct {
	UserID      string `json:"-"`
	DisplayName string `json:"name"`
	Score       int    `json:"score"`
}
