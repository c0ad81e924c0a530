package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper owns the periodic expired-session purge. It is started by the app
// lifecycle and stops when its context is cancelled, so embedding or
// restarting the app never leaks a second timer.
type Sweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(sessions *SessionService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Sweep failures are logged and the loop
// keeps going; a broken sweep must never take the process down.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			purged, err := s.sessions.CleanupExpired(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if purged > 0 {
				s.logger.Info("expired sessions purged", "count", purged)
			}
		}
	}
}
