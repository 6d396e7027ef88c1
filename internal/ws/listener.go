package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"campus-forum/internal/cache"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Cap for the reconnect backoff.
	maxBackoff = 30 * time.Second
)

// Event is a change notification pushed by the backend's event feed.
type Event struct {
	Type   string `json:"type"`
	PostID string `json:"postId"`
}

// Listener consumes the backend's websocket event feed and invalidates the
// local cache when another client changes a post's comments, keeping
// caches eventually consistent without polling.
type Listener struct {
	url   string
	token string
	store cache.Store
}

func NewListener(url, token string, store cache.Store) *Listener {
	return &Listener{
		url:   url,
		token: token,
		store: store,
	}
}

// Run connects and consumes events until ctx is cancelled, reconnecting
// with capped backoff after failures.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := l.consume(ctx); err != nil {
			log.Printf("Event feed connection lost: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("Connected to event feed at %s", l.url)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go l.pingLoop(ctx, conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("Skipping malformed event payload: %v", err)
			continue
		}
		l.handle(event)
	}
}

func (l *Listener) handle(event Event) {
	switch event.Type {
	case "comment.created", "comment.deleted", "reaction.changed":
		if event.PostID == "" {
			return
		}
		l.store.Invalidate(event.PostID)
	default:
		// Other event kinds (announcements, moderation) are not cache
		// concerns here.
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
