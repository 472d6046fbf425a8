package stagelink

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

// fakeConn is a scripted Connection for lifecycle tests.
type fakeConn struct {
	mu   sync.Mutex
	sent []any

	packets   chan *types.Packet
	closeOnce sync.Once

	agents       []types.Agent
	agentsErr    error
	agentsGate   chan struct{}
	capabilities types.Capabilities

	sendErr error
	termErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		packets:      make(chan *types.Packet, 16),
		capabilities: types.DefaultCapabilities(),
	}
}

func (f *fakeConn) Packets() <-chan *types.Packet { return f.packets }

func (f *fakeConn) Agents(ctx context.Context) ([]types.Agent, error) {
	if f.agentsGate != nil {
		select {
		case <-f.agentsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.agentsErr != nil {
		return nil, f.agentsErr
	}
	return f.agents, nil
}

func (f *fakeConn) Capabilities() types.Capabilities { return f.capabilities }

func (f *fakeConn) SessionID() string { return "sess_test" }

func (f *fakeConn) Send(frame any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.packets) })
	return nil
}

func (f *fakeConn) Err() error { return f.termErr }

// deliver pushes one packet into the inbound stream.
func (f *fakeConn) deliver(p *types.Packet) { f.packets <- p }

// fail terminates the stream with an error, as a broken transport would.
func (f *fakeConn) fail(err error) {
	f.termErr = err
	f.closeOnce.Do(func() { close(f.packets) })
}

// sentFrames returns a copy of everything sent so far.
func (f *fakeConn) sentFrames() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent...)
}

type fakeDialer struct {
	mu     sync.Mutex
	conn   Connection
	err    error
	hellos []protocol.ClientHello
}

func (d *fakeDialer) Dial(_ context.Context, hello protocol.ClientHello) (Connection, error) {
	d.mu.Lock()
	d.hellos = append(d.hellos, hello)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) dialedHellos() []protocol.ClientHello {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.ClientHello(nil), d.hellos...)
}

type fakeRecorder struct {
	mu         sync.Mutex
	startCalls int
	stopCalls  int
	startErr   error

	// startGate, when set, blocks Start until released so tests can schedule
	// work inside the acquisition window.
	startGate chan struct{}
}

func (r *fakeRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	r.startCalls++
	gate := r.startGate
	err := r.startErr
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *fakeRecorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
	return nil
}

func (r *fakeRecorder) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalls, r.stopCalls
}

type fakePlayer struct {
	mu          sync.Mutex
	stops       int
	clears      int
	workarounds int
}

func (p *fakePlayer) StopPlayback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) ClearQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
}

func (p *fakePlayer) PlayWorkaround() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workarounds++
	return nil
}

func (p *fakePlayer) workaroundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workarounds
}

// newTokenServer serves a static session token payload.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok_test","type":"Bearer","session_id":"sess_test"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestClient wires a client to scripted fakes plus a live token server.
func newTestClient(t *testing.T, conn *fakeConn, extra ...ClientOption) (*Client, *fakeDialer, *fakeRecorder, *fakePlayer) {
	t.Helper()
	srv := newTokenServer(t)
	dialer := &fakeDialer{conn: conn}
	recorder := &fakeRecorder{}
	player := &fakePlayer{}
	opts := []ClientOption{
		WithTokenURL(srv.URL),
		WithScene("scenes/test"),
		WithDialer(dialer),
		WithRecorder(recorder),
		WithPlayer(player),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	opts = append(opts, extra...)
	return NewClient(opts...), dialer, recorder, player
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
