package stagelink

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTokenURL sets the endpoint the client fetches session credentials from.
func WithTokenURL(url string) ClientOption {
	return func(c *Client) { c.tokenURL = url }
}

// WithServiceURL sets the realtime service endpoint. http(s) schemes are
// rewritten to ws(s) when dialing.
func WithServiceURL(url string) ClientOption {
	return func(c *Client) { c.serviceURL = url }
}

// WithScene sets the scene identifier sent in the session hello.
func WithScene(scene string) ClientOption {
	return func(c *Client) { c.scene = scene }
}

// WithCharacter selects the character by resource identifier once the roster
// is loaded. Empty means no selection.
func WithCharacter(id string) ClientOption {
	return func(c *Client) { c.character = id }
}

// WithCapabilities overrides the capability set requested for the session.
func WithCapabilities(caps types.Capabilities) ClientOption {
	return func(c *Client) { c.capabilities = caps }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer used to span lifecycle commands.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) { c.tracer = t }
}

// WithHTTPClient sets the HTTP client used for token fetches.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithDialer replaces the transport used to reach the service. Overrides
// WithServiceURL and WithConnectTimeout.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// WithRecorder sets the microphone capture adapter.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// WithPlayer sets the audio playback adapter.
func WithPlayer(p Player) ClientOption {
	return func(c *Client) { c.player = p }
}

// WithConnectTimeout bounds the websocket dial and hello exchange.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.connectTimeout = d }
}

// WithTokenTimeout bounds a single token fetch attempt.
func WithTokenTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.tokenTimeout = d }
}

// WithTokenRetries enables retrying failed token fetches up to n additional
// attempts with fibonacci backoff. Zero, the default, means a single attempt.
func WithTokenRetries(n uint64) ClientOption {
	return func(c *Client) { c.tokenRetries = n }
}
