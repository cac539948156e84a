package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	appbilling "github.com/utilitybill/backend/internal/application/billing"
	"github.com/utilitybill/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DefaultOverdueSweepSchedule runs the sweep hourly
const DefaultOverdueSweepSchedule = "@every 1h"

// OverdueSweeper runs one overdue sweep as of the given instant
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, asOf time.Time) (*appbilling.SweepResult, error)
}

// OverdueSweepConfig holds configuration for the overdue sweep schedule
type OverdueSweepConfig struct {
	Enabled    bool
	Schedule   string        // cron expression or descriptor such as "@every 1h"
	JobTimeout time.Duration // zero means no timeout
	Location   *time.Location
}

// OverdueSweepConfigFrom maps the scheduler section of the app config
func OverdueSweepConfigFrom(cfg config.SchedulerConfig) OverdueSweepConfig {
	return OverdueSweepConfig{
		Enabled:    cfg.OverdueSweepEnabled,
		Schedule:   cfg.OverdueSweepCron,
		JobTimeout: cfg.JobTimeout,
		Location:   time.UTC,
	}
}

// SweepRun describes the last completed sweep
type SweepRun struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Examined     int           `json:"examined"`
	Transitioned int           `json:"transitioned"`
	Failed       int           `json:"failed"`
	Error        string        `json:"error,omitempty"`
}

// OverdueSweepScheduler triggers the overdue sweep on a cron schedule.
// At most one sweep runs at a time; a tick that fires while the previous
// sweep is still running is skipped.
type OverdueSweepScheduler struct {
	config  OverdueSweepConfig
	sweeper OverdueSweeper
	logger  *zap.Logger
	now     func() time.Time

	cron    *cron.Cron
	running atomic.Bool

	mu        sync.Mutex
	started   bool
	baseCtx   context.Context
	cancel    context.CancelFunc
	lastRun   *SweepRun
	runsTotal int
}

// NewOverdueSweepScheduler creates a new scheduler for the overdue sweep
func NewOverdueSweepScheduler(cfg OverdueSweepConfig, sweeper OverdueSweeper, logger *zap.Logger) *OverdueSweepScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultOverdueSweepSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &OverdueSweepScheduler{
		config:  cfg,
		sweeper: sweeper,
		logger:  logger,
		now:     time.Now,
	}
}

// Start registers the cron entry and starts the cron runner.
// It is a no-op when the sweep is disabled or already started.
func (s *OverdueSweepScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Overdue sweep scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.cron = cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithChain(cron.Recover(cronLogger{s.logger.Sugar()})),
	)
	if _, err := s.cron.AddFunc(s.config.Schedule, s.tick); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, s.config.Schedule, err)
	}

	// the base context outlives the request that started the scheduler
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron.Start()
	s.started = true

	s.logger.Info("Overdue sweep scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Time("next_run", s.cron.Entries()[0].Next),
	)
	return nil
}

// Stop stops scheduling new sweeps, cancels a running one and waits for it
// to return, bounded by ctx.
func (s *OverdueSweepScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	stopped := s.cron.Stop()
	s.mu.Unlock()

	cancel()
	select {
	case <-stopped.Done():
		s.logger.Info("Overdue sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *OverdueSweepScheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			s.logger.Warn("Skipping overdue sweep tick, previous sweep still running")
			return
		}
		s.logger.Error("Scheduled overdue sweep failed", zap.Error(err))
	}
}

// RunOnce runs a sweep now, as of the current time
func (s *OverdueSweepScheduler) RunOnce(ctx context.Context) (*appbilling.SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer s.running.Store(false)

	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	startedAt := s.now()
	result, err := s.sweeper.SweepOverdue(ctx, startedAt)

	run := &SweepRun{StartedAt: startedAt, Duration: time.Since(startedAt)}
	if result != nil {
		run.Examined = result.Examined
		run.Transitioned = result.Transitioned
		run.Failed = len(result.Failures)
	}
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.lastRun = run
	s.runsTotal++
	s.mu.Unlock()

	fields := []zap.Field{
		zap.Time("as_of", startedAt),
		zap.Int("examined", run.Examined),
		zap.Int("transitioned", run.Transitioned),
		zap.Int("failed", run.Failed),
		zap.Duration("duration", run.Duration),
	}
	if err != nil {
		s.logger.Error("Overdue sweep finished with error", append(fields, zap.Error(err))...)
		return result, err
	}
	s.logger.Info("Overdue sweep finished", fields...)
	return result, nil
}

// LastRun returns the last completed sweep, or nil if none ran yet
func (s *OverdueSweepScheduler) LastRun() *SweepRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	run := *s.lastRun
	return &run
}

// RunsTotal returns how many sweeps completed since the scheduler was created
func (s *OverdueSweepScheduler) RunsTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runsTotal
}

// IsRunning reports whether a sweep is in progress
func (s *OverdueSweepScheduler) IsRunning() bool {
	return s.running.Load()
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
