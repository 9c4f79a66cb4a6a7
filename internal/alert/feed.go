package alert

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedPingInterval = 30 * time.Second
)

// Feed streams opportunities from a Hub to WebSocket clients as JSON.
type Feed struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader

	pingInterval time.Duration
}

// NewFeed creates a Feed serving subscriptions of hub.
func NewFeed(hub *Hub, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: feedPingInterval,
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("feed upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	sub := f.hub.Subscribe()
	defer f.hub.Unsubscribe(sub)

	f.logger.Debug("feed client connected", "remote", r.RemoteAddr)

	// Incoming frames are discarded; reading surfaces the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(f.pingInterval)
	defer ping.Stop()

	for {
		select {
		case opp, ok := <-sub:
			if !ok {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second),
				)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(opp); err != nil {
				f.logger.Debug("feed write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(feedWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				return
			}
		case <-done:
			f.logger.Debug("feed client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}
