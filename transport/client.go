// transport/client.go
package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/quotebot/logger"
)

var (
	ErrReceiptTimeout = errors.New("timed out waiting for post receipt")
	ErrClosed         = errors.New("gateway connection closed")
)

// receiptTimeout bounds how long PostToChannel waits for the gateway
// to acknowledge a post with a message ID.
const receiptTimeout = 10 * time.Second

const heartbeatInterval = 30 * time.Second

// Message is an incoming channel message delivered by the gateway.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	AuthorSelf bool
	Content    string
	ReplyTo    string
}

// Client wraps a gateway connection with post/receipt correlation and
// an incoming-event stream. Posting returns the message ID the gateway
// assigned, which the game uses as the round ID.
type Client struct {
	conn      Connection
	events    chan Message
	pending   map[string]chan string // nonce -> receipt message ID
	mutex     sync.Mutex
	closeChan chan struct{}
	closeOnce sync.Once
}

// Dial connects to the gateway, identifies with the token and starts
// the read and heartbeat loops.
func Dial(url, token string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	client := NewClient(NewWSConnection(conn))
	if err := client.conn.WriteFrame(&Frame{Op: OpIdentify, Token: token}); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewClient starts a client on an established connection. Split from
// Dial so tests can drive a fake Connection.
func NewClient(conn Connection) *Client {
	client := &Client{
		conn:      conn,
		events:    make(chan Message, 64),
		pending:   make(map[string]chan string),
		closeChan: make(chan struct{}),
	}
	go client.readLoop()
	go client.heartbeat()
	return client
}

// Events delivers incoming channel messages. The channel is closed
// when the gateway connection dies.
func (c *Client) Events() <-chan Message {
	return c.events
}

// PostToChannel sends a message and waits for the gateway's receipt
// carrying the assigned message ID.
func (c *Client) PostToChannel(channelID, text string) (string, error) {
	nonce := uuid.New().String()

	receipt := make(chan string, 1)
	c.mutex.Lock()
	c.pending[nonce] = receipt
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		delete(c.pending, nonce)
		c.mutex.Unlock()
	}()

	err := c.conn.WriteFrame(&Frame{
		Op:        OpPost,
		ChannelID: channelID,
		Content:   text,
		Nonce:     nonce,
	})
	if err != nil {
		return "", err
	}

	select {
	case messageID := <-receipt:
		return messageID, nil
	case <-time.After(receiptTimeout):
		return "", ErrReceiptTimeout
	case <-c.closeChan:
		return "", ErrClosed
	}
}

// ReplyToMessage sends text as a threaded reply to an existing message.
func (c *Client) ReplyToMessage(messageID, text string) error {
	return c.conn.WriteFrame(&Frame{
		Op:      OpReply,
		ReplyTo: messageID,
		Content: text,
	})
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		frame, err := c.conn.ReadFrame()
		if err != nil {
			select {
			case <-c.closeChan:
			default:
				logger.Log.Errorf("Gateway read failed: %v", err)
			}
			return
		}

		switch frame.Op {
		case OpReady:
			logger.Log.Info("Gateway connection ready")
		case OpPing:
			c.conn.WriteFrame(&Frame{Op: OpPong})
		case OpPong:
			// heartbeat ack
		case OpReceipt:
			c.mutex.Lock()
			receipt, exists := c.pending[frame.Nonce]
			c.mutex.Unlock()
			if exists {
				receipt <- frame.MessageID
			}
		case OpMessage:
			c.events <- Message{
				ID:         frame.MessageID,
				ChannelID:  frame.ChannelID,
				AuthorID:   frame.AuthorID,
				AuthorName: frame.AuthorName,
				AuthorSelf: frame.AuthorSelf,
				Content:    frame.Content,
				ReplyTo:    frame.ReplyTo,
			}
		default:
			logger.Log.Infof("Unknown gateway op: %s", frame.Op)
		}
	}
}

func (c *Client) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteFrame(&Frame{Op: OpPing}); err != nil {
				return
			}
		case <-c.closeChan:
			return
		}
	}
}
