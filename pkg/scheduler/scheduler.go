package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ttc-bot/pkg/stats"

	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
)

type Refresher interface {
	IsRefreshing() bool
	RefreshStats(ctx context.Context, fullRebuild bool) (*stats.CacheData, error)
}

// Scheduler runs incremental refreshes on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	ctx       context.Context
	cancel    context.CancelFunc
	startup   sync.WaitGroup
}

// New schedules the refresh job. An empty spec disables the schedule.
func New(spec string, refresher Refresher) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		ctx:       ctx,
		cancel:    cancel,
	}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start starts the cron loop. With refreshNow an incremental refresh is started
// right away in the background.
func (s *Scheduler) Start(refreshNow bool) {
	s.cron.Start()
	if refreshNow {
		s.startup.Go(s.run)
	}
	slog.Info("ttc: refresh scheduler started", slog.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels a refresh started by the scheduler and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.startup.Wait()
}

func (s *Scheduler) run() {
	if s.refresher.IsRefreshing() {
		slog.Info("ttc: skipping scheduled refresh, cache already being updated")
		return
	}
	if _, err := s.refresher.RefreshStats(s.ctx, false); err != nil {
		if errors.Is(err, stats.ErrAlreadyRunning) {
			return
		}
		slog.Error("ttc: error while running scheduled refresh", tint.Err(err))
	}
}
