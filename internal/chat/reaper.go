package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/proto"
)

// SessionInvalidator invalidates an identity's persisted session when its
// member is evicted.
type SessionInvalidator interface {
	InvalidateSession(ctx context.Context, userID string) error
}

// Reaper periodically evicts members whose connection has died or whose
// last activity exceeds the inactivity threshold. It shares the channel's
// mutual-exclusion domain, so a sweep never races an admit or removal for
// the same identity.
type Reaper struct {
	channel   *Channel
	sessions  SessionInvalidator
	interval  time.Duration
	threshold time.Duration
	log       *zerolog.Logger
}

// NewReaper builds a reaper sweeping the channel every interval, evicting
// members idle for longer than threshold.
func NewReaper(channel *Channel, sessions SessionInvalidator, interval, threshold time.Duration, logger *zerolog.Logger) *Reaper {
	return &Reaper{
		channel:   channel,
		sessions:  sessions,
		interval:  interval,
		threshold: threshold,
		log:       logger,
	}
}

// Run sweeps on a fixed period until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep removes all currently stale members and announces each departure
// exactly once. Sweep order across members is unspecified. Every stale
// member is removed before any announcement goes out, so members reaped in
// the same sweep do not hear each other leave. Logout removes one member
// and then broadcasts, so the remaining members still hear it.
func (r *Reaper) Sweep(ctx context.Context) {
	for _, m := range r.channel.ReapStale(r.threshold) {
		if err := r.sessions.InvalidateSession(ctx, m.UUID); err != nil {
			r.log.Error().Err(err).Str("uuid", m.UUID).Msg("invalidate session of reaped member")
		}

		r.channel.Publish(proto.EventSystemMessage, proto.SystemMessageData{Msg: m.Username + " left."})
		r.channel.Publish(proto.EventUserLeft, proto.UserLeftData{UUID: m.UUID})

		r.log.Info().Str("uuid", m.UUID).Str("username", m.Username).Msg("reaped inactive member")
	}
}
