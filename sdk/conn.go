package stagelink

import (
	"context"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
	"github.com/stagelink-ai/stagelink-go/pkg/protocol"
)

// Connection is the live transport to the conversational-agent service. The
// lifecycle controller depends only on this interface; the wire encoding
// behind it is opaque. A gorilla/websocket implementation is provided via
// WebSocketDialer.
type Connection interface {
	// Packets yields inbound event packets in the order the transport
	// emits them. The channel closes when the connection ends.
	Packets() <-chan *types.Packet

	// Agents returns the character roster for the session's scene.
	Agents(ctx context.Context) ([]types.Agent, error)

	// Capabilities returns the capability set the service enabled.
	Capabilities() types.Capabilities

	// SessionID returns the service-assigned session identifier, if any.
	SessionID() string

	// Send writes one client frame. Safe for concurrent use.
	Send(frame any) error

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// Err returns the terminal connection error, or nil after a clean
	// close. Valid once Packets() is closed.
	Err() error
}

// Dialer builds a Connection from a session hello. Tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, hello protocol.ClientHello) (Connection, error)
}
