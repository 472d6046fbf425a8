package stagelink

import (
	"time"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

// PacketKind classifies one inbound packet for routing.
type PacketKind int

const (
	KindOther PacketKind = iota
	KindEmotion
	KindPhoneme
	KindHistory
	KindReady
	KindDisconnect
	KindPing
)

// String returns the classification name.
func (k PacketKind) String() string {
	switch k {
	case KindEmotion:
		return "emotion"
	case KindPhoneme:
		return "phoneme"
	case KindHistory:
		return "history"
	case KindReady:
		return "ready"
	case KindDisconnect:
		return "disconnect"
	case KindPing:
		return "ping"
	default:
		return "other"
	}
}

// classifyPacket routes a packet by its declared payload kind. Pure function;
// an emotion payload only counts when an interaction identifier accompanies
// it, since the emotion map is keyed by interaction.
func classifyPacket(p *types.Packet) PacketKind {
	switch {
	case p == nil:
		return KindOther
	case p.Control != nil && p.Control.Action == types.ControlReady:
		return KindReady
	case p.Control != nil && p.Control.Action == types.ControlDisconnect:
		return KindDisconnect
	case p.Emotions != nil && p.PacketId.InteractionID != "":
		return KindEmotion
	case len(p.Phonemes) > 0:
		return KindPhoneme
	case p.History != nil:
		return KindHistory
	case p.Ping != nil && p.Ping.Type == types.PingPongPing:
		return KindPing
	default:
		return KindOther
	}
}

// handlePacket routes one inbound packet into the controller's state slots.
// gen guards against packets from a connection that has since been released.
func (c *Client) handlePacket(gen uint64, p *types.Packet) {
	c.mu.Lock()

	if c.gen != gen || c.sess == nil {
		c.mu.Unlock()
		return
	}

	kind := classifyPacket(p)
	var replyConn Connection

	switch kind {
	case KindReady:
		c.setStateLocked(StateOpen)
	case KindDisconnect:
		// The connection read loop observes the actual close and moves the
		// state machine; the control packet itself is informational.
		c.logger.Info("service signaled disconnect", "description", p.Control.Description)
	case KindEmotion:
		c.emotions[p.PacketId.InteractionID] = *p.Emotions
		ev := *p.Emotions
		c.emotionEvent = &ev
	case KindPhoneme:
		c.phonemes = append([]types.PhonemeInfo(nil), p.Phonemes...)
	case KindHistory:
		c.history = append([]types.HistoryItem(nil), p.History...)
	case KindPing:
		replyConn = c.sess.conn
	default:
		c.logger.Debug("unhandled packet", "kind", kind.String())
	}

	c.publishLocked()
	c.mu.Unlock()

	if replyConn != nil {
		c.answerPing(replyConn, p)
	}
}

// answerPing echoes a service latency probe and reports the locally
// perceived latency when the probe carried a timestamp.
func (c *Client) answerPing(conn Connection, p *types.Packet) {
	pong := protocol.ClientPong{
		Type: protocol.TypePong,
		Report: types.PingPongReport{
			Type:          types.PingPongPong,
			PingPacketID:  p.Ping.PingPacketID,
			PingTimestamp: p.Ping.PingTimestamp,
		},
	}
	if err := conn.Send(pong); err != nil {
		c.logger.Warn("pong send failed", "error", err)
		return
	}

	if p.Ping.PingTimestamp.IsZero() {
		return
	}
	report := protocol.ClientLatencyReport{
		Type: protocol.TypeLatencyReport,
		Report: types.PerceivedLatencyReport{
			Latency:   time.Since(p.Ping.PingTimestamp).String(),
			Precision: types.PrecisionFine,
		},
	}
	if err := conn.Send(report); err != nil {
		c.logger.Warn("latency report send failed", "error", err)
	}
}
