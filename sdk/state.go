package stagelink

import (
	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

// ConnectionState is the lifecycle controller's state machine value. It
// governs which commands are currently valid.
type ConnectionState int

const (
	// StateInit is the state before the first Open.
	StateInit ConnectionState = iota
	// StateOpening is the window while a session is being established.
	StateOpening
	// StateOpen means a live session exists and commands may flow.
	StateOpen
	// StateReady is the idle state after a Close; Open may be called again.
	StateReady
	// StateError is terminal for the session; Close recovers to Ready.
	StateError
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateOpening:
		return "OPENING"
	case StateOpen:
		return "OPEN"
	case StateReady:
		return "READY"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is an immutable view of the controller's published state. Slices
// and maps are copies; mutating a snapshot never affects the controller.
type Snapshot struct {
	State     ConnectionState
	Chatting  bool
	Recording bool

	Character  *types.Agent
	Characters []types.Agent

	ChatHistory     []types.HistoryItem
	PrevChatHistory []types.HistoryItem

	Emotions     map[string]types.EmotionEvent
	EmotionEvent *types.EmotionEvent
	Phonemes     []types.PhonemeInfo
}

// snapshotLocked builds a Snapshot; callers hold c.mu.
func (c *Client) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           c.state,
		Chatting:        c.chatting,
		ChatHistory:     append([]types.HistoryItem(nil), c.history...),
		PrevChatHistory: append([]types.HistoryItem(nil), c.prevHistory...),
		Phonemes:        append([]types.PhonemeInfo(nil), c.phonemes...),
		Emotions:        make(map[string]types.EmotionEvent, len(c.emotions)),
	}
	for id, ev := range c.emotions {
		snap.Emotions[id] = ev
	}
	if c.emotionEvent != nil {
		ev := *c.emotionEvent
		snap.EmotionEvent = &ev
	}
	if c.sess != nil {
		snap.Recording = c.sess.recording
		snap.Characters = append([]types.Agent(nil), c.sess.agents...)
		if c.sess.character != nil {
			ch := *c.sess.character
			snap.Character = &ch
		}
	}
	return snap
}

// publishLocked pushes the current snapshot to subscribers without blocking;
// when the channel is full the update is dropped, the next one supersedes it.
func (c *Client) publishLocked() {
	select {
	case c.updates <- c.snapshotLocked():
	default:
	}
}

// setStateLocked transitions the state machine. Transitions are idempotent:
// setting the current state again is a no-op, which is what makes the
// Open-completion and ready-event writers safe to race.
func (c *Client) setStateLocked(next ConnectionState) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Debug("state changed", "from", prev.String(), "to", next.String())
}
