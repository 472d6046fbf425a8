package stagelink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stagelink-ai/stagelink-go/pkg/core"
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

const defaultConnectTimeout = 15 * time.Second

// WebSocketDialer dials the service's live websocket endpoint.
type WebSocketDialer struct {
	// URL is the service endpoint; http(s) schemes are rewritten to ws(s).
	URL string

	// Header carries extra handshake headers (for example Authorization).
	Header http.Header

	// Timeout bounds the dial plus hello/ack exchange. Zero means the
	// default of 15s; a context deadline takes precedence.
	Timeout time.Duration
}

// Dial opens the websocket, sends the hello frame, and waits for the
// service's session_ack before handing the connection over.
func (d *WebSocketDialer) Dial(ctx context.Context, hello protocol.ClientHello) (Connection, error) {
	wsURL, err := websocketEndpoint(d.URL)
	if err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "GET", URL: wsURL, Err: err}
	}

	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	messageType, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read session_ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if messageType != websocket.TextMessage {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first frame type %d", messageType)
	}

	var ack protocol.ServerSessionAck
	if err := json.Unmarshal(payload, &ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("decode session_ack: %w", err)
	}
	if ack.Type != protocol.TypeSessionAck {
		_ = conn.Close()
		return nil, core.NewAPIError(fmt.Sprintf("unexpected first frame type %q", ack.Type))
	}

	c := &wsConnection{
		conn:         conn,
		sessionID:    ack.SessionID,
		agents:       ack.Agents,
		capabilities: ack.Capabilities,
		packets:      make(chan *types.Packet, 256),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func websocketEndpoint(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", core.NewValidationError("invalid service URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket scheme.
	default:
		return "", core.NewValidationError("service URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

// wsConnection is the gorilla/websocket-backed Connection.
type wsConnection struct {
	conn *websocket.Conn

	sessionID    string
	agents       []types.Agent
	capabilities types.Capabilities

	packets chan *types.Packet
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

func (c *wsConnection) Packets() <-chan *types.Packet {
	return c.packets
}

func (c *wsConnection) Agents(ctx context.Context) ([]types.Agent, error) {
	// The roster arrives with the session_ack; no extra round trip.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return append([]types.Agent(nil), c.agents...), nil
}

func (c *wsConnection) Capabilities() types.Capabilities {
	return c.capabilities
}

func (c *wsConnection) SessionID() string {
	return c.sessionID
}

func (c *wsConnection) Send(frame any) error {
	if c.closed.Load() {
		return core.NewNetworkError("connection is closed", nil)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *wsConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *wsConnection) Err() error {
	<-c.done
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *wsConnection) setErr(err error) {
	if err == nil {
		return
	}
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *wsConnection) readLoop() {
	defer close(c.done)
	defer close(c.packets)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.closed.Load() {
				return
			}
			c.setErr(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.setErr(fmt.Errorf("decode frame envelope: %w", err))
			return
		}
		if envelope.Type != protocol.TypePacket {
			continue
		}

		var frame protocol.ServerPacket
		if err := json.Unmarshal(data, &frame); err != nil {
			c.setErr(fmt.Errorf("decode packet: %w", err))
			return
		}

		select {
		case c.packets <- &frame.Packet:
		default:
			// Avoid deadlocking the read loop if the consumer stalls.
		}
	}
}
