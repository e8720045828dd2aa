package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	applogger "SentiTrade/pkg/logger"
)

// Client implements a SentimentStream over the provider's WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	assets         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a sentiment feed client for the configured assets.
func New(apiKey, websocketURL string, assets []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.SentimentStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		assets:         assets,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	if c.l != nil {
		c.l.Info("feed connected", applogger.String("url", c.websocketURL))
	}
	return nil
}

// Subscribe subscribes to sentiment updates for configured assets.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	conn, ok := c.conn, c.connected
	c.mu.Unlock()
	if conn == nil || !ok {
		return fmt.Errorf("feed not connected")
	}
	for _, a := range c.assets {
		msg := map[string]string{"type": "subscribe", "channel": "sentiment", "asset": a}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", a, err)
		}
		if c.l != nil {
			c.l.Info("feed subscribed", applogger.String("asset", a))
		}
	}
	return nil
}

type feedSample struct {
	Asset   string  `json:"asset"`
	Score   float64 `json:"score"`
	Trusted int     `json:"trusted_sources"`
	Source  string  `json:"source"`
	T       int64   `json:"t"` // ms
}

type feedMessage struct {
	Type string       `json:"type"`
	Data []feedSample `json:"data"`
}

// Read streams sentiment samples and errors. The error channel carries one
// value then both channels close; callers drive Reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.SentimentSample, <-chan error) {
	samples := make(chan *models.SentimentSample, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(samples)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-sentiment frames
					continue
				}
				if m.Type != "sentiment" {
					continue
				}
				for _, d := range m.Data {
					s := &models.SentimentSample{
						Asset:          d.Asset,
						Timestamp:      d.T / 1000,
						Score:          d.Score,
						TrustedSources: d.Trusted,
						Source:         d.Source,
					}
					select {
					case samples <- s:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return samples, errs
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
