package types

import "time"

// PacketId identifies one inbound packet and the interaction it belongs to.
// All fields are optional strings; the service omits what does not apply.
type PacketId struct {
	PacketID       string `json:"packet_id,omitempty"`
	UtteranceID    string `json:"utterance_id,omitempty"`
	InteractionID  string `json:"interaction_id,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ControlAction is the discriminator carried by control packets.
type ControlAction string

const (
	ControlReady      ControlAction = "READY"
	ControlDisconnect ControlAction = "DISCONNECT"
	ControlWarning    ControlAction = "WARNING"
	ControlInterrupt  ControlAction = "INTERRUPTION_END"
)

// ControlEvent signals a session-level condition from the service.
type ControlEvent struct {
	Action      ControlAction `json:"action"`
	Description string        `json:"description,omitempty"`
}

// EmotionBehavior is the service's coarse emotion label.
type EmotionBehavior string

// EmotionStrength qualifies how strongly the behavior is expressed.
type EmotionStrength string

// EmotionEvent is the most recent emotion reading for one interaction.
type EmotionEvent struct {
	Behavior EmotionBehavior `json:"behavior,omitempty"`
	Strength EmotionStrength `json:"strength,omitempty"`
	Joy      float64         `json:"joy,omitempty"`
	Fear     float64         `json:"fear,omitempty"`
	Trust    float64         `json:"trust,omitempty"`
	Surprise float64         `json:"surprise,omitempty"`
}

// PhonemeInfo is one phoneme descriptor within an utterance, used to drive
// avatar lip sync.
type PhonemeInfo struct {
	Phoneme     string  `json:"phoneme,omitempty"`
	StartOffset float64 `json:"start_offset_s,omitempty"`
}

// TextEvent carries an utterance text fragment.
type TextEvent struct {
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`
}

// HistoryItem is one turn record in the conversation transcript.
type HistoryItem struct {
	ID            string    `json:"id,omitempty"`
	Author        string    `json:"author,omitempty"`
	Text          string    `json:"text,omitempty"`
	InteractionID string    `json:"interaction_id,omitempty"`
	Date          time.Time `json:"date,omitzero"`
}

// Packet is one inbound event from the service. Exactly one payload field is
// populated per packet; the rest are nil.
type Packet struct {
	PacketId PacketId  `json:"packet_id,omitzero"`
	Date     time.Time `json:"date,omitzero"`

	Control  *ControlEvent   `json:"control,omitempty"`
	Emotions *EmotionEvent   `json:"emotions,omitempty"`
	Phonemes []PhonemeInfo   `json:"phonemes,omitempty"`
	History  []HistoryItem   `json:"history,omitempty"`
	Text     *TextEvent      `json:"text,omitempty"`
	Action   *NarratedAction `json:"narrated_action,omitempty"`
	Ping     *PingPongReport `json:"ping,omitempty"`
	Agents   []Agent         `json:"agents,omitempty"`
}
