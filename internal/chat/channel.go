package chat

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/proto"
)

// Channel is the single process-wide chat channel: the member registry plus
// the broadcast fan-out. It exclusively owns the membership set; all
// mutation flows through its methods, serialized by one mutex. The lock is
// never held across network writes.
type Channel struct {
	name string
	log  *zerolog.Logger

	mu      sync.Mutex
	members map[string]*Member
}

// NewChannel creates the channel. It lives for the whole process.
func NewChannel(name string, logger *zerolog.Logger) *Channel {
	return &Channel{
		name:    name,
		log:     logger,
		members: make(map[string]*Member),
	}
}

// Name returns the channel's display name.
func (c *Channel) Name() string {
	return c.name
}

// Len returns the current member count.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.members)
}

// Admit inserts or replaces the member for the identity. An identity owns at
// most one live connection: when a member already exists, its previous
// handle is closed before being replaced, so a reconnect displaces the stale
// session.
func (c *Channel) Admit(uuid, username string, age int, conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.members[uuid]; ok && prev.conn != conn {
		_ = prev.conn.Close()
		c.log.Debug().Str("uuid", uuid).Msg("displaced previous connection")
	}

	c.members[uuid] = &Member{
		UUID:         uuid,
		Username:     username,
		Age:          age,
		conn:         conn,
		lastActivity: time.Now(),
	}
}

// Touch advances the member's last-activity instant to now. It returns false
// when the identity is not a member, which callers treat as "not a member",
// not as a failure.
func (c *Channel) Touch(uuid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.members[uuid]
	if !ok {
		return false
	}
	m.lastActivity = time.Now()
	return true
}

// Remove detaches the identity from the channel and reports whether it was a
// member. Removing a non-member is a no-op. The connection handle is
// detached, not closed: a logged-out client keeps its socket and returns to
// the unauthenticated state.
func (c *Channel) Remove(uuid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.members[uuid]; !ok {
		return false
	}
	delete(c.members, uuid)
	return true
}

// Snapshot returns a point-in-time presence listing, ordered by username.
// The lock is held only for the duration of the copy.
func (c *Channel) Snapshot() []MemberInfo {
	c.mu.Lock()
	infos := make([]MemberInfo, 0, len(c.members))
	for _, m := range c.members {
		infos = append(infos, m.info())
	}
	c.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Username < infos[j].Username })
	return infos
}

// Publish serializes the envelope {event, data} exactly once and delivers it
// to every member whose connection reports open at the moment of iteration.
// Each delivery is attempted independently: a dead or failing recipient is
// skipped and left for the reaper, and never aborts delivery to the rest.
// It returns the number of successful deliveries.
func (c *Channel) Publish(event string, data any) int {
	payload, err := json.Marshal(proto.Outbound{Event: event, Data: data})
	if err != nil {
		c.log.Error().Err(err).Str("event", event).Msg("encode broadcast")
		return 0
	}

	// Copy the live handles under the lock, write outside it.
	c.mu.Lock()
	conns := make([]Conn, 0, len(c.members))
	for _, m := range c.members {
		if m.conn.IsOpen() {
			conns = append(conns, m.conn)
		}
	}
	c.mu.Unlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err != nil {
			c.log.Debug().Err(err).Str("event", event).Msg("skip unwritable recipient")
			continue
		}
		delivered++
	}
	return delivered
}

// ReapStale atomically removes every member whose connection is no longer
// open or whose last activity is older than the threshold, closing their
// handles, and returns their presence infos. A second call right after
// returns nothing for the same members.
func (c *Channel) ReapStale(threshold time.Duration) []MemberInfo {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var reaped []MemberInfo
	for uuid, m := range c.members {
		if m.conn.IsOpen() && now.Sub(m.lastActivity) <= threshold {
			continue
		}
		_ = m.conn.Close()
		delete(c.members, uuid)
		reaped = append(reaped, m.info())
	}
	return reaped
}

// CloseAll closes every member connection and empties the registry. Used at
// process shutdown.
func (c *Channel) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for uuid, m := range c.members {
		_ = m.conn.Close()
		delete(c.members, uuid)
	}
}
