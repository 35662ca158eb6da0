package transport

// Gateway frame ops. One JSON frame per websocket message.
const (
	OpIdentify = "identify"
	OpReady    = "ready"
	OpPing     = "ping"
	OpPong     = "pong"
	OpMessage  = "message"
	OpPost     = "post"
	OpReceipt  = "receipt"
	OpReply    = "reply"
)

// Frame is the wire representation of a single gateway event. Fields
// are populated depending on Op; unknown fields are ignored.
type Frame struct {
	Op string `json:"op"`

	// identify
	Token string `json:"token,omitempty"`

	// message / receipt / reply
	MessageID  string `json:"message_id,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	AuthorSelf bool   `json:"author_self,omitempty"`
	Content    string `json:"content,omitempty"`
	ReplyTo    string `json:"reply_to,omitempty"`

	// post/receipt correlation
	Nonce string `json:"nonce,omitempty"`
}
