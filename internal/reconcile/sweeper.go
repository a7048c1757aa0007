package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"dogemint/internal/domain"
	"dogemint/internal/metrics"
)

// Sweeper is the periodic reconciliation job: it expires overdue sessions
// that nobody polls, and returns step jobs whose RUNNING lease lapsed (a
// crashed worker) back to the queue. Lazy expiry on the read path stays the
// primary mechanism; the sweep is the backstop.
type Sweeper struct {
	log      zerolog.Logger
	sessions domain.SessionRepository
	jobs     domain.StepJobRepository
	lease    time.Duration
	cron     *cron.Cron
}

// NewSweeper constructs a sweeper with the given job lease.
func NewSweeper(log zerolog.Logger, sessions domain.SessionRepository, jobs domain.StepJobRepository, lease time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		sessions: sessions,
		jobs:     jobs,
		lease:    lease,
	}
}

// Start schedules the sweep on the cron spec and begins running.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("spec", spec).Msg("reconciler started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info().Msg("reconciler stopped")
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.sessions.ExpireOverdue(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("expiry sweep failed")
	} else if expired > 0 {
		metrics.SessionsExpired.Add(float64(expired))
		s.log.Info().Int64("count", expired).Msg("expired overdue sessions")
	}

	requeued, err := s.jobs.RequeueStale(ctx, s.lease)
	if err != nil {
		s.log.Error().Err(err).Msg("stale job sweep failed")
	} else if requeued > 0 {
		s.log.Warn().Int64("count", requeued).Msg("requeued stale step jobs")
	}
}
