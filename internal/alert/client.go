package alert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/arbwatch/internal/model"
)

// ErrFeedClosed is reported when the server closes the feed normally.
var ErrFeedClosed = errors.New("feed closed by server")

// FeedClient consumes an opportunity feed.
type FeedClient struct {
	conn   *websocket.Conn
	logger *slog.Logger

	messages chan model.Opportunity
	errors   chan error
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial connects to the feed at url (ws:// or wss://).
func Dial(ctx context.Context, url string, logger *slog.Logger) (*FeedClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &FeedClient{
		conn:     conn,
		logger:   logger,
		messages: make(chan model.Opportunity, DefaultSubscriberBuffer),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	go c.readLoop()

	logger.Debug("feed connected", "url", url)
	return c, nil
}

// Messages returns decoded opportunities. The channel is closed when the
// connection ends.
func (c *FeedClient) Messages() <-chan model.Opportunity {
	return c.messages
}

// Errors returns at most one terminal connection error.
func (c *FeedClient) Errors() <-chan error {
	return c.errors
}

// Close sends a close frame and closes the connection.
func (c *FeedClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func (c *FeedClient) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					err = ErrFeedClosed
				}
				select {
				case c.errors <- err:
				default:
				}
			}
			return
		}

		var opp model.Opportunity
		if err := json.Unmarshal(data, &opp); err != nil {
			c.logger.Warn("malformed feed message", "error", err)
			continue
		}

		select {
		case c.messages <- opp:
		case <-c.done:
			return
		}
	}
}
