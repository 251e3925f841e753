package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/sitelog/pkg/logger"
)

// ErrNotStarted is returned by operations that need Start first.
var ErrNotStarted = errors.New("service not started")

// NextRun returns the first top-of-hour plus offset strictly after now.
func NextRun(now time.Time, offset time.Duration) time.Time {
	next := now.UTC().Truncate(time.Hour).Add(offset)
	for !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}

// RunScheduler archives the previous hour once per hour until ctx ends.
// Failed runs are logged and the loop carries on.
func (s *Service) RunScheduler(ctx context.Context) error {
	job := s.Job()
	if job == nil {
		return ErrNotStarted
	}
	offset := time.Duration(s.cfg.ArchiveOffsetSeconds) * time.Second
	l := s.logger.Named("scheduler")

	for {
		next := NextRun(s.clock(), offset)
		l.Debug(ctx, "next archive run", logger.String("at", next.Format(time.RFC3339)))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		res, err := job.RunPreviousHour(ctx)
		if err != nil {
			l.Error(ctx, "archive run failed", logger.Error(err))
			continue
		}
		l.Info(ctx, "archive run finished",
			logger.String("outcome", res.Outcome),
			logger.Int("files", len(res.ArchivedFiles)),
		)
	}
}
