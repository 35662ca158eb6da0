// client/main.go
//
// Development gateway simulator. Runs a websocket server speaking the
// bot's gateway protocol so the bot can be exercised locally without a
// real chat service. Type a line to send it as a channel message, or
// "reply <message-id> <text>" to send it as a threaded reply (that is
// how you guess). The bot's posts and replies are printed with their
// assigned message IDs.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	opIdentify = "identify"
	opReady    = "ready"
	opPing     = "ping"
	opPong     = "pong"
	opMessage  = "message"
	opPost     = "post"
	opReceipt  = "receipt"
	opReply    = "reply"
)

type frame struct {
	Op         string `json:"op"`
	Token      string `json:"token,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	AuthorSelf bool   `json:"author_self,omitempty"`
	Content    string `json:"content,omitempty"`
	ReplyTo    string `json:"reply_to,omitempty"`
	Nonce      string `json:"nonce,omitempty"`
}

var (
	addr      = flag.String("addr", "localhost:8090", "listen address")
	channelID = flag.String("channel", "general", "simulated channel ID")
	upgrader  = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

type gateway struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func (g *gateway) send(f *frame) {
	g.sendMutex.Lock()
	defer g.sendMutex.Unlock()

	data, err := json.Marshal(f)
	if err != nil {
		log.Fatalf("Marshal failed: %v", err)
	}
	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("Write failed: %v", err)
	}
}

func (g *gateway) readLoop() {
	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			log.Fatalf("Bot disconnected: %v", err)
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("Bad frame from bot: %v", err)
			continue
		}

		switch f.Op {
		case opPing:
			g.send(&frame{Op: opPong})
		case opPost:
			messageID := uuid.New().String()
			log.Printf("BOT POSTED [%s]: %s", messageID, f.Content)
			g.send(&frame{Op: opReceipt, Nonce: f.Nonce, MessageID: messageID})
			// The bot sees its own message like any other member would
			g.send(&frame{
				Op:         opMessage,
				MessageID:  messageID,
				ChannelID:  *channelID,
				AuthorID:   "bot",
				AuthorName: "quotebot",
				AuthorSelf: true,
				Content:    f.Content,
			})
		case opReply:
			log.Printf("BOT REPLIED to [%s]: %s", f.ReplyTo, f.Content)
		}
	}
}

func (g *gateway) stdinLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg := frame{
			Op:         opMessage,
			MessageID:  uuid.New().String(),
			ChannelID:  *channelID,
			AuthorID:   "user1",
			AuthorName: "tester",
			Content:    line,
		}

		// "reply <message-id> <text>" turns the line into a guess
		if fields := strings.SplitN(line, " ", 3); len(fields) == 3 && fields[0] == "reply" {
			msg.ReplyTo = fields[1]
			msg.Content = fields[2]
		}

		g.send(&msg)
	}
}

func handleBot(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	g := &gateway{conn: conn}

	// Wait for the bot to identify before declaring the session ready
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Fatalf("Read failed: %v", err)
	}
	var identify frame
	if err := json.Unmarshal(data, &identify); err != nil || identify.Op != opIdentify {
		log.Fatalf("Expected identify, got: %s", data)
	}
	log.Printf("Bot identified with token %q, channel is %q", identify.Token, *channelID)
	g.send(&frame{Op: opReady})

	go g.stdinLoop()
	g.readLoop()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	http.HandleFunc("/gateway", handleBot)
	log.Printf("Gateway simulator listening on ws://%s/gateway", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
