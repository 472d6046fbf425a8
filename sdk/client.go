// Package stagelink provides the Go client SDK for the Stagelink
// conversational-agent service.
//
// The Client owns the connection/session lifecycle: it fetches a session
// credential, dials the service, loads the character roster, demultiplexes
// inbound events (emotion, phoneme, history, ready, disconnect, ping) into
// published state, and exposes the command surface applications drive an
// avatar with: Open, Close, SendText, StartRecording, StopRecording.
//
// State is published as immutable snapshots; subscribe to Updates for change
// notifications instead of polling.
package stagelink

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

// Client is the session lifecycle controller and the SDK entry point. One
// Client manages at most one live session at a time; Close followed by Open
// starts a fresh session with an archived transcript.
type Client struct {
	// Configuration (immutable after NewClient).
	tokenURL       string
	serviceURL     string
	scene          string
	character      string
	capabilities   types.Capabilities
	tokenTimeout   time.Duration
	tokenRetries   uint64
	connectTimeout time.Duration

	httpClient *http.Client
	dialer     Dialer
	recorder   Recorder
	player     Player
	logger     *slog.Logger
	tracer     trace.Tracer

	// mu linearizes every lifecycle transition and session mutation; both
	// command handlers and inbound-event callbacks funnel through it.
	mu       sync.Mutex
	state    ConnectionState
	chatting bool
	sess     *session
	gen      uint64

	history     []types.HistoryItem
	prevHistory []types.HistoryItem

	emotions     map[string]types.EmotionEvent
	emotionEvent *types.EmotionEvent
	phonemes     []types.PhonemeInfo

	updates chan Snapshot
}

// NewClient creates a Client. Configure at least the token URL, service URL,
// and scene; everything else has working defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		capabilities: types.DefaultCapabilities(),
		recorder:     NopRecorder{},
		player:       NopPlayer{},
		logger:       slog.Default(),
		tracer:       noop.NewTracerProvider().Tracer("stagelink"),
		state:        StateInit,
		emotions:     make(map[string]types.EmotionEvent),
		updates:      make(chan Snapshot, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	if c.dialer == nil {
		c.dialer = &WebSocketDialer{URL: c.serviceURL, Timeout: c.connectTimeout}
	}
	return c
}

// Snapshot returns an immutable copy of the published state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Updates yields state snapshots after each change. The channel is buffered
// and never blocks the controller; intermediate snapshots may be dropped
// under load but the latest state is always observable via Snapshot.
func (c *Client) Updates() <-chan Snapshot {
	return c.updates
}

// State returns the current lifecycle state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Chatting reports whether a conversation is in progress.
func (c *Client) Chatting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatting
}

// IsRecording reports whether microphone capture is active.
func (c *Client) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.sess.recording
}

// Character returns the selected character, or nil when none matched the
// configured identifier.
func (c *Client) Character() *types.Agent {
	return c.Snapshot().Character
}

// Characters returns the roster loaded for the current session.
func (c *Client) Characters() []types.Agent {
	return c.Snapshot().Characters
}

// ChatHistory returns the current conversation transcript.
func (c *Client) ChatHistory() []types.HistoryItem {
	return c.Snapshot().ChatHistory
}

// PrevChatHistory returns the transcript archived at close boundaries.
func (c *Client) PrevChatHistory() []types.HistoryItem {
	return c.Snapshot().PrevChatHistory
}

// Emotions returns the per-interaction emotion map.
func (c *Client) Emotions() map[string]types.EmotionEvent {
	return c.Snapshot().Emotions
}

// EmotionEvent returns the most recently received emotion event.
func (c *Client) EmotionEvent() *types.EmotionEvent {
	return c.Snapshot().EmotionEvent
}

// Phonemes returns the phoneme descriptors for the current utterance.
func (c *Client) Phonemes() []types.PhonemeInfo {
	return c.Snapshot().Phonemes
}
