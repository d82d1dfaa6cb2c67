package user

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sweeper periodically deletes used or expired codes, expired tokens and abandoned OAuth states.
type Sweeper struct {
	repo     Repository
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Sweeper{repo: repo, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("verification sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce runs every cleanup statement even if an earlier one fails.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	now := s.now()
	codes, errCodes := s.repo.DeleteStaleCodes(ctx, now)
	tokens, errTokens := s.repo.DeleteExpiredTokens(ctx, now)
	states, errStates := s.repo.DeleteExpiredOAuthStates(ctx, now)

	if codes > 0 || tokens > 0 || states > 0 {
		s.logger.Info("verification sweep", "codes", codes, "tokens", tokens, "oauth_states", states)
	} else {
		s.logger.Debug("verification sweep found nothing to delete")
	}
	return errors.Join(errCodes, errTokens, errStates)
}
