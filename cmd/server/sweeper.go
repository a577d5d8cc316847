package main

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"portfoliotracker/pkg/portfolio"
)

// sessionSweeper drops idle sessions on a cron schedule.
type sessionSweeper struct {
	cron     *cron.Cron
	sessions *portfolio.SessionStore
	logger   *slog.Logger
}

// newSessionSweeper registers the sweep. Schedules use the standard cron
// parser plus descriptors such as "@every 5m".
func newSessionSweeper(sessions *portfolio.SessionStore, schedule string, logger *slog.Logger) (*sessionSweeper, error) {
	s := &sessionSweeper{
		cron:     cron.New(),
		sessions: sessions,
		logger:   logger.With("component", "session_sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	s.logger.Info("job registered", "schedule", schedule)
	return s, nil
}

func (s *sessionSweeper) sweep() {
	removed := s.sessions.Sweep()
	if removed > 0 {
		s.logger.Info("idle sessions dropped", "removed", removed, "live", s.sessions.Len())
		return
	}
	s.logger.Debug("sweep complete", "live", s.sessions.Len())
}

func (s *sessionSweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *sessionSweeper) Stop() {
	<-s.cron.Stop().Done()
}
