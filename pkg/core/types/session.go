package types

import "time"

// SessionToken is the short-lived credential returned by a token endpoint.
type SessionToken struct {
	Token          string    `json:"token"`
	Type           string    `json:"type,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	ExpirationTime time.Time `json:"expiration_time,omitzero"`
}

// Capabilities are the optional protocol features negotiated at session
// start. The service only emits events for enabled capabilities.
type Capabilities struct {
	Emotions        bool `json:"emotions"`
	Phonemes        bool `json:"phonemes"`
	Interruptions   bool `json:"interruptions"`
	NarratedActions bool `json:"narrated_actions"`
}

// DefaultCapabilities enables everything the SDK can consume.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Emotions:        true,
		Phonemes:        true,
		Interruptions:   true,
		NarratedActions: true,
	}
}
