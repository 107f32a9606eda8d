// internal/game/connection.go
package game

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/monopoly-online/session-service/internal/protocol"
)

// Connection is a single player's live presence. The transport layer owns
// the actual WebSocket; game code only ever pushes envelopes onto Out,
// where a per-connection write pump drains them in order.
type Connection struct {
	ID  uuid.UUID
	Out chan protocol.Envelope
}

// NewConnection allocates a connection with a fresh ID and a buffered
// outbound queue.
func NewConnection() *Connection {
	return &Connection{
		ID:  uuid.New(),
		Out: make(chan protocol.Envelope, 32),
	}
}

// Write pushes an envelope onto the outbound queue without blocking.
// A full or closed queue drops the message; the write pump owning the
// other end preserves per-connection send order for everything queued.
func (c *Connection) Write(env protocol.Envelope) {
	select {
	case c.Out <- env:
	default:
		log.Warnf("connection %s: outbound queue full or closed, dropped %s", c.ID, env.Type)
	}
}

// WriteError sends an ERROR envelope to this connection only.
func (c *Connection) WriteError(code int, message string) {
	c.Write(protocol.ErrorEvent(code, message))
}
