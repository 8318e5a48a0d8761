// Package feed is the live market event stream client. It maintains one
// websocket connection to the event host and fans every decoded event out to
// all registered listeners, one message at a time.
package feed

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	handshakeTimeout = 10 * time.Second
	reconnectDelay   = 2 * time.Second
)

// Listener receives every event the feed delivers. Listeners run on the feed
// dispatch goroutine; a listener that blocks delays delivery to everyone.
type Listener func(event types.MarketEvent)

// Stream is the live feed as seen by the engine.
type Stream interface {
	// Connect validates the host and opens the connection. Fatal on a
	// malformed host scheme.
	Connect(ctx context.Context) error
	// AddListener registers a listener. Must be called before Connect.
	AddListener(listener Listener)
	// Close tears the connection down and stops dispatch.
	Close() error
}

// Client is the websocket implementation of Stream.
type Client struct {
	host string
	log  *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	listeners []Listener
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient creates a feed client for the given host.
func NewClient(host string, log *logger.Logger) *Client {
	return &Client{
		host:      host,
		log:       log,
		conn:      nil,
		listeners: nil,
		done:      make(chan struct{}),
	}
}

// AddListener implements Stream.
func (c *Client) AddListener(listener Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, listener)
}

// Connect implements Stream.
func (c *Client) Connect(ctx context.Context) error {
	parsed, err := url.Parse(c.host)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidFeedHost, err, "malformed feed host %q", c.host)
	}

	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return errors.Newf(errors.ErrCodeInvalidFeedHost, "feed host %q must use ws or wss scheme", c.host)
	}

	if err := c.dial(ctx); err != nil {
		return err
	}

	c.wg.Add(1)
	go c.readLoop(ctx)

	c.log.Info("Connected to event feed",
		zap.String("host", c.host),
	)

	return nil
}

// Close implements Stream.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		if c.conn != nil {
			closeErr = c.conn.Close()
		}
		c.mu.Unlock()

		c.wg.Wait()
	})

	return closeErr
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.host, nil)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeFeedConnectFailed, err, "failed to connect to feed %s", c.host)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return nil
}

// readLoop reads messages until the client is closed, redialing after read
// failures so a feed hiccup does not kill the engine.
func (c *Client) readLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			default:
			}

			c.log.Warn("Feed read failed, reconnecting",
				zap.Error(err),
			)

			if !c.redial(ctx) {
				return
			}

			continue
		}

		event, err := types.DecodeEvent(raw)
		if err != nil {
			// Unknown or malformed messages are dropped; the feed may
			// introduce new event types before the engine learns them.
			c.log.Warn("Dropping undecodable feed message",
				zap.Error(err),
			)

			continue
		}

		c.dispatch(event)
	}
}

func (c *Client) redial(ctx context.Context) bool {
	for {
		select {
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(reconnectDelay):
		}

		if err := c.dial(ctx); err != nil {
			c.log.Warn("Feed reconnect failed",
				zap.Error(err),
			)

			continue
		}

		return true
	}
}

func (c *Client) dispatch(event types.MarketEvent) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Verify Client implements the Stream interface.
var _ Stream = (*Client)(nil)
