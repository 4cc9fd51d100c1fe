package chat

import "time"

// Conn is the write side of one member's connection as seen by the chat
// core. Implementations must be safe for concurrent use: Send must not block
// on another connection's I/O, and a failed or closed connection reports
// itself through IsOpen.
type Conn interface {
	// Send enqueues one serialized frame for delivery. It returns an error
	// when the connection is closed or cannot accept the frame; the caller
	// treats that as a per-recipient failure, never as a fatal one.
	Send(payload []byte) error

	// IsOpen reports whether the connection is still writable. It is
	// re-checked at read time and never cached by the registry.
	IsOpen() bool

	// Close tears the connection down. Closing twice is a no-op.
	Close() error
}

// Member is an identity currently joined to the channel. The member entry
// exclusively owns its connection handle while joined.
type Member struct {
	UUID     string
	Username string
	Age      int

	conn         Conn
	lastActivity time.Time
}

// MemberInfo is a point-in-time presence view of a member.
type MemberInfo struct {
	UUID         string
	Username     string
	Age          int
	LastActivity time.Time
}

func (m *Member) info() MemberInfo {
	return MemberInfo{
		UUID:         m.UUID,
		Username:     m.Username,
		Age:          m.Age,
		LastActivity: m.lastActivity,
	}
}
