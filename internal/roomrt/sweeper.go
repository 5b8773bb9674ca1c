package roomrt

import (
	"context"
	"log/slog"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/metrics"
)

// sweepInterval is the lifecycle worker's tick period.
const sweepInterval = 60 * time.Second

// Sweeper periodically evicts Rooms that have been empty beyond the
// configured idle timeout. If idleTimeout is 0, Run returns immediately
// without starting the ticker and rooms are retained indefinitely.
type Sweeper struct {
	registry    *Registry
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewSweeper builds a Sweeper over registry with the given idle timeout.
func NewSweeper(registry *Registry, idleTimeout time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{registry: registry, idleTimeout: idleTimeout, logger: logger}
}

// Run blocks, ticking every 60s until ctx is canceled, evicting Rooms whose
// empty_since is at least idleTimeout in the past. Eviction races with a
// concurrent Join are resolved by Registry.Remove's compare-and-delete:
// the Join may re-create the Room (Revival) or may have already cleared
// empty_since and win.
func (s *Sweeper) Run(ctx context.Context) {
	if s.idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	now := time.Now().UTC()
	for _, room := range s.registry.Snapshot() {
		emptySince := room.EmptySince()
		if emptySince == nil {
			continue
		}
		if now.Sub(*emptySince) >= s.idleTimeout {
			s.registry.Remove(room.Code, room)
			metrics.RoomEvictions.Inc()
			if s.logger != nil {
				s.logger.Info("evicted idle room", "room_code", room.Code, "empty_for", now.Sub(*emptySince))
			}
		}
	}
}
