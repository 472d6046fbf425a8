// Package protocol defines the JSON frames exchanged with the
// conversational-agent service over a live connection. Frames are
// discriminated by a top-level "type" field.
package protocol

import (
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

const (
	ProtocolVersion1 = "1"

	// Client frame types.
	TypeHello             = "hello"
	TypeText              = "text"
	TypeAudioSessionStart = "audio_session_start"
	TypeAudioSessionEnd   = "audio_session_end"
	TypeAudioFrame        = "audio_frame"
	TypePong              = "pong"
	TypeLatencyReport     = "perceived_latency"
	TypeCancelResponses   = "cancel_responses"
	TypeEndSession        = "end_session"

	// Server frame types.
	TypeSessionAck = "session_ack"
	TypePacket     = "packet"
)

// AudioFormat describes the negotiated capture audio shape.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// ClientHello opens a session. It carries the session credential, the scene
// to load, and the capability set the client can consume.
type ClientHello struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Token           string             `json:"token"`
	SessionID       string             `json:"session_id,omitempty"`
	Scene           string             `json:"scene"`
	Capabilities    types.Capabilities `json:"capabilities"`
	AudioIn         AudioFormat        `json:"audio_in,omitzero"`
}

// ClientText forwards one user text turn to the current character.
type ClientText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientAudioSession brackets a stretch of captured audio. Start and end
// share one frame shape distinguished by Type.
type ClientAudioSession struct {
	Type string `json:"type"`
}

// ClientAudioFrame carries one captured PCM chunk, base64 in JSON.
type ClientAudioFrame struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	DataB64 string `json:"data_b64"`
}

// ClientPong answers a service ping; PingPacketID echoes the probe.
type ClientPong struct {
	Type   string               `json:"type"`
	Report types.PingPongReport `json:"report"`
}

// ClientLatencyReport submits a perceived-latency measurement.
type ClientLatencyReport struct {
	Type   string                       `json:"type"`
	Report types.PerceivedLatencyReport `json:"report"`
}

// ClientControl covers the bare control verbs (cancel_responses,
// end_session).
type ClientControl struct {
	Type          string   `json:"type"`
	InteractionID string   `json:"interaction_id,omitempty"`
	UtteranceIDs  []string `json:"utterance_ids,omitempty"`
}

// ServerSessionAck is the first frame after a successful hello. It carries
// the character roster for the scene and the capability set the service
// actually enabled.
type ServerSessionAck struct {
	Type         string             `json:"type"`
	SessionID    string             `json:"session_id,omitempty"`
	Agents       []types.Agent      `json:"agents,omitempty"`
	Capabilities types.Capabilities `json:"capabilities,omitzero"`
}

// ServerPacket wraps one inbound event packet.
type ServerPacket struct {
	Type   string       `json:"type"`
	Packet types.Packet `json:"packet"`
}
