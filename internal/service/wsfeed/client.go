package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	applogger "VolSignals/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a TickStream backed by a WebSocket feed. After Connect it
// subscribes to every configured instrument and signal; the server pushes
//
//	{"type":"tick","data":[{"instrument":"VXX","ts":"...","price":21.4,"signals":{"COR1M":12.1}}]}
type Client struct {
	apiKey       string
	websocketURL string
	topics       []string
	pingInterval time.Duration
	l            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(apiKey, websocketURL string, topics []string, pingInterval time.Duration, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:       apiKey,
		websocketURL: websocketURL,
		topics:       topics,
		pingInterval: pingInterval,
		l:            l,
	}
}

// Connect dials the feed and subscribes.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("ws feed url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("ws feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.l.Info("ws feed connected", applogger.String("url", u.Host))
	return c.subscribe()
}

func (c *Client) subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("ws feed not connected")
	}
	for _, t := range c.topics {
		msg := map[string]string{"type": "subscribe", "symbol": t}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
		c.l.Debug("ws feed subscribed", applogger.String("symbol", t))
	}
	return nil
}

type feedMessage struct {
	Type string            `json:"type"`
	Data []models.LiveTick `json:"data"`
}

// Read streams ticks until the connection fails or ctx is done. A read
// failure is delivered on the error channel before both channels close.
func (c *Client) Read(ctx context.Context) (<-chan *models.LiveTick, <-chan error) {
	ticks := make(chan *models.LiveTick, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	readCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn == conn && conn != nil {
					_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer cancel()
		defer close(ticks)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("ws feed conn nil")
			return
		}
		go func() {
			<-readCtx.Done()
			if ctx.Err() != nil {
				_ = conn.Close()
			}
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("ws feed read: %w", err)
				}
				return
			}
			var m feedMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "tick" {
				continue
			}
			for i := range m.Data {
				t := m.Data[i]
				select {
				case ticks <- &t:
				case <-ctx.Done():
					return
				default:
					c.l.Warn("ws feed backpressure, tick dropped", applogger.String("instrument", t.Instrument))
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects. The caller owns the delay between attempts.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	return c.Connect(ctx)
}

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

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

var _ drepo.TickStream = (*Client)(nil)
