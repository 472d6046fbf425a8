package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// PingPongType discriminates latency probe packets. The service may emit the
// enum as a string or, for forward compatibility, as a bare number.
type PingPongType string

const (
	PingPongUnspecified PingPongType = "UNSPECIFIED"
	PingPongPing        PingPongType = "PING"
	PingPongPong        PingPongType = "PONG"
)

var pingPongByNumber = map[int]PingPongType{
	0: PingPongUnspecified,
	1: PingPongPing,
	2: PingPongPong,
}

// UnmarshalJSON accepts either the string form or the numeric wire form.
// Unknown numeric values decode as UNSPECIFIED rather than failing, so newer
// service versions do not break older clients.
func (t *PingPongType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = PingPongType(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ping pong type must be string or number: %w", err)
	}
	if v, ok := pingPongByNumber[n]; ok {
		*t = v
	} else {
		*t = PingPongUnspecified
	}
	return nil
}

// PingPongReport is the payload of a latency probe packet.
type PingPongReport struct {
	Type          PingPongType `json:"type,omitempty"`
	PingPacketID  string       `json:"ping_packet_id,omitempty"`
	PingTimestamp time.Time    `json:"ping_timestamp,omitzero"`
}

// LatencyPrecision qualifies how a perceived latency value was measured.
// Same string-or-number wire tolerance as PingPongType.
type LatencyPrecision string

const (
	PrecisionUnspecified LatencyPrecision = "UNSPECIFIED"
	PrecisionFine        LatencyPrecision = "FINE"
	PrecisionEstimated   LatencyPrecision = "ESTIMATED"
	PrecisionPushToTalk  LatencyPrecision = "PUSH_TO_TALK"
	PrecisionNonSpeech   LatencyPrecision = "NON_SPEECH"
)

var precisionByNumber = map[int]LatencyPrecision{
	0: PrecisionUnspecified,
	1: PrecisionFine,
	2: PrecisionEstimated,
	3: PrecisionPushToTalk,
	4: PrecisionNonSpeech,
}

// UnmarshalJSON accepts either the string form or the numeric wire form.
func (p *LatencyPrecision) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = LatencyPrecision(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("latency precision must be string or number: %w", err)
	}
	if v, ok := precisionByNumber[n]; ok {
		*p = v
	} else {
		*p = PrecisionUnspecified
	}
	return nil
}

// PerceivedLatencyReport reports user-perceived response latency back to the
// service for quality tracking.
type PerceivedLatencyReport struct {
	Latency   string           `json:"latency,omitempty"`
	Precision LatencyPrecision `json:"precision,omitempty"`
}

// NarratedAction is a stage-direction style description emitted alongside an
// utterance, e.g. "waves and smiles".
type NarratedAction struct {
	Content string `json:"content,omitempty"`
}
