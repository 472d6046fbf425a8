package stagelink

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/stagelink-ai/stagelink-go/pkg/core"
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

// session is the live handle and per-session state for one open connection.
// It is owned exclusively by the Client; all mutation happens under c.mu.
type session struct {
	conn Connection

	character    *types.Agent
	agents       []types.Agent
	capabilities types.Capabilities

	recording bool
	acquiring bool

	// workaroundPlayed ensures the autoplay workaround sound fires at most
	// once per session.
	workaroundPlayed bool

	seq int64
}

// Open establishes a session: token fetch, connection dial, roster load and
// character selection. Allowed only from INIT or READY.
//
// Token and roster calls carry deadlines; on failure the state machine
// returns to where it started rather than sticking in OPENING. A service
// ready packet may land while the roster load is still pending; both writers
// funnel through the same mutex and the OPEN transition is idempotent, so
// the session always ends OPEN regardless of which side finishes last.
func (c *Client) Open(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "stagelink.Open")
	defer span.End()

	c.mu.Lock()
	if c.state != StateInit && c.state != StateReady {
		c.mu.Unlock()
		return core.NewPreconditionError(fmt.Sprintf("open is not allowed from state %s", c.state))
	}
	prev := c.state
	c.setStateLocked(StateOpening)
	c.history = nil
	c.chatting = true
	c.publishLocked()
	c.mu.Unlock()

	token, err := c.fetchToken(ctx)
	if err != nil {
		c.abortOpen(prev)
		return c.asNetworkError("fetch session token", err)
	}

	hello := protocol.ClientHello{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.ProtocolVersion1,
		Token:           token.Token,
		SessionID:       token.SessionID,
		Scene:           c.scene,
		Capabilities:    c.capabilities,
	}
	conn, err := c.dialer.Dial(ctx, hello)
	if err != nil {
		c.abortOpen(prev)
		return c.asNetworkError("dial service", err)
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.sess = &session{conn: conn, capabilities: conn.Capabilities()}
	c.mu.Unlock()

	// Start consuming inbound packets before the roster load so a ready
	// packet racing the load is observed, not lost.
	go c.pump(gen, conn)

	agents, err := conn.Agents(ctx)
	if err != nil {
		_ = conn.Close()
		c.mu.Lock()
		if c.gen == gen {
			c.sess = nil
			c.gen++
		}
		c.mu.Unlock()
		c.abortOpen(prev)
		return c.asNetworkError("load character roster", err)
	}

	c.mu.Lock()
	if c.gen == gen && c.sess != nil {
		c.sess.agents = agents
		c.sess.character = selectAgent(agents, c.character)
		c.setStateLocked(StateOpen)
		c.publishLocked()
	}
	c.mu.Unlock()
	return nil
}

// abortOpen rolls the state machine back after a failed establishment.
func (c *Client) abortOpen(prev ConnectionState) {
	c.mu.Lock()
	c.chatting = false
	c.setStateLocked(prev)
	c.publishLocked()
	c.mu.Unlock()
}

// asNetworkError wraps transport-layer failures as network errors while
// passing already-canonical errors through untouched.
func (c *Client) asNetworkError(op string, err error) error {
	if core.IsType(err, core.ErrNetwork) || core.IsType(err, core.ErrAuthentication) || core.IsType(err, core.ErrValidation) {
		return err
	}
	return core.NewNetworkError(op, err)
}

// selectAgent picks the first roster entry whose resource id matches the
// configured character id, or nil when absent.
func selectAgent(agents []types.Agent, id string) *types.Agent {
	if id == "" {
		return nil
	}
	for i := range agents {
		if agents[i].ResourceID() == id {
			agent := agents[i]
			return &agent
		}
	}
	return nil
}

// pump feeds inbound packets into the demultiplexer until the connection
// ends. A transport failure while the session is still current moves the
// state machine to ERROR; Close recovers to READY.
func (c *Client) pump(gen uint64, conn Connection) {
	for p := range conn.Packets() {
		c.handlePacket(gen, p)
	}
	if err := conn.Err(); err != nil {
		c.mu.Lock()
		if c.gen == gen && c.sess != nil {
			c.logger.Error("connection failed", "error", err)
			c.setStateLocked(StateError)
			c.publishLocked()
		}
		c.mu.Unlock()
	}
}

// Close tears the session down: stops playback and capture, archives the
// chat history, releases the connection, and returns the controller to
// READY. Calling Close before any Open is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateInit {
		c.mu.Unlock()
		return nil
	}

	c.chatting = false
	c.player.StopPlayback()
	c.player.ClearQueue()

	sess := c.sess
	if sess != nil && sess.recording {
		if err := c.recorder.Stop(); err != nil {
			c.logger.Warn("capture stop failed", "error", err)
		}
		sess.recording = false
	}

	if len(c.history) > 0 {
		c.prevHistory = append(c.prevHistory, c.history...)
	}
	c.history = nil

	c.sess = nil
	c.gen++
	c.setStateLocked(StateReady)
	c.publishLocked()
	c.mu.Unlock()

	if sess != nil && sess.conn != nil {
		if err := sess.conn.Send(protocol.ClientControl{Type: protocol.TypeEndSession}); err != nil {
			c.logger.Debug("end session signal failed", "error", err)
		}
		return sess.conn.Close()
	}
	return nil
}

// SendText forwards one user text turn. Requires an open session; the
// autoplay workaround sound plays exactly once per session, strictly before
// the first text is forwarded.
func (c *Client) SendText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if c.state != StateOpen || sess == nil {
		return core.NewPreconditionError("text sent before connection was open")
	}

	if !sess.workaroundPlayed {
		if err := c.player.PlayWorkaround(); err != nil {
			c.logger.Warn("workaround sound failed", "error", err)
		}
		sess.workaroundPlayed = true
	}

	if err := sess.conn.Send(protocol.ClientText{Type: protocol.TypeText, Text: text}); err != nil {
		return core.NewNetworkError("send text", err)
	}
	return nil
}

// StartRecording signals an audio session to the service and acquires the
// capture device. A no-op unless the session is open and not already
// recording. The recording flag flips true only after the device is
// acquired; an acquisition failure is logged, the audio session is closed
// again, and the flag stays false.
func (c *Client) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	if c.state != StateOpen || sess == nil || sess.recording || sess.acquiring {
		c.mu.Unlock()
		return nil
	}
	sess.acquiring = true
	gen := c.gen
	if err := sess.conn.Send(protocol.ClientAudioSession{Type: protocol.TypeAudioSessionStart}); err != nil {
		sess.acquiring = false
		c.mu.Unlock()
		c.logger.Warn("audio session start failed", "error", err)
		return nil
	}
	c.mu.Unlock()

	// Suspension point: other commands and inbound events may run here.
	captureErr := c.recorder.Start(ctx)

	c.mu.Lock()
	if c.gen != gen || c.sess != sess {
		// Session was closed or replaced while acquiring.
		c.mu.Unlock()
		if captureErr == nil {
			if err := c.recorder.Stop(); err != nil {
				c.logger.Warn("capture stop failed", "error", err)
			}
		}
		return nil
	}
	sess.acquiring = false
	if captureErr != nil {
		conn := sess.conn
		c.mu.Unlock()
		c.logger.Warn("capture start failed", "error", core.NewDeviceError("acquire capture device", captureErr))
		if err := conn.Send(protocol.ClientAudioSession{Type: protocol.TypeAudioSessionEnd}); err != nil {
			c.logger.Warn("audio session end failed", "error", err)
		}
		return nil
	}
	sess.recording = true
	c.publishLocked()
	c.mu.Unlock()
	return nil
}

// StopRecording stops capture and closes the audio session. A no-op when
// not recording: no capture-stop, no signal, no state mutation.
func (c *Client) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if sess == nil || !sess.recording {
		return nil
	}

	if err := c.recorder.Stop(); err != nil {
		c.logger.Warn("capture stop failed", "error", err)
	}
	if err := sess.conn.Send(protocol.ClientAudioSession{Type: protocol.TypeAudioSessionEnd}); err != nil {
		c.logger.Warn("audio session end failed", "error", err)
	}
	sess.recording = false
	c.publishLocked()
	return nil
}

// SendAudio forwards one captured PCM chunk. Requires an open session;
// chunks arriving while not recording are dropped.
func (c *Client) SendAudio(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if c.state != StateOpen || sess == nil {
		return core.NewPreconditionError("audio sent before connection was open")
	}
	if !sess.recording {
		return nil
	}

	sess.seq++
	frame := protocol.ClientAudioFrame{
		Type:    protocol.TypeAudioFrame,
		Seq:     sess.seq,
		DataB64: base64.StdEncoding.EncodeToString(pcm),
	}
	if err := sess.conn.Send(frame); err != nil {
		return core.NewNetworkError("send audio frame", err)
	}
	return nil
}

// Interrupt asks the service to cancel in-flight responses. Requires an
// open session with the interruptions capability enabled.
func (c *Client) Interrupt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if c.state != StateOpen || sess == nil {
		return core.NewPreconditionError("interrupt requested before connection was open")
	}
	if !sess.capabilities.Interruptions {
		return core.NewPreconditionError("interruptions are not enabled for this session")
	}
	if err := sess.conn.Send(protocol.ClientControl{Type: protocol.TypeCancelResponses}); err != nil {
		return core.NewNetworkError("send cancel responses", err)
	}
	return nil
}
