package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type crawler interface {
	CrawlAll(ctx context.Context) (*CycleStats, error)
}

// JobMetrics receives per-cycle outcomes. Satisfied by
// worker.WorkerMetrics.
type JobMetrics interface {
	RecordCycleRun(status string)
	RecordCycleDuration(seconds float64)
	RecordFeedsProcessed(count int)
	RecordLastSuccess()
}

// Scheduler drives the pipeline on cron cadences: the crawl cycle, the
// cluster-merge pass and the compaction pass each get their own entry.
// SkipIfStillRunning is the re-entrancy guard; a cycle outlasting its
// interval suppresses the next tick instead of stacking.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	crawler crawler
	maint   *Maintenance
	jobs    JobMetrics

	// base context for scheduled jobs, cancelled on Stop.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds the scheduler. maint may be nil to run crawl-only.
func NewScheduler(cfg Config, crawler crawler, maint *Maintenance) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
		),
		cfg:     cfg,
		crawler: crawler,
		maint:   maint,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetJobMetrics attaches cycle-level metrics. Call before Start.
func (s *Scheduler) SetJobMetrics(jobs JobMetrics) {
	s.jobs = jobs
}

// Start registers the entries and starts the cron loop. The first crawl
// runs after one full interval; callers wanting an immediate cycle invoke
// RunCycle themselves.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(everySpec(s.cfg.RefreshInterval), s.RunCycle); err != nil {
		return fmt.Errorf("Start: crawl entry: %w", err)
	}

	if s.maint != nil {
		if _, err := s.cron.AddFunc(everySpec(s.cfg.MergeInterval), s.runMerge); err != nil {
			return fmt.Errorf("Start: merge entry: %w", err)
		}
		if _, err := s.cron.AddFunc(everySpec(s.cfg.CompactionInterval), s.runCompaction); err != nil {
			return fmt.Errorf("Start: compaction entry: %w", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler started",
		slog.Duration("refresh_interval", s.cfg.RefreshInterval),
		slog.Duration("merge_interval", s.cfg.MergeInterval),
		slog.Duration("compaction_interval", s.cfg.CompactionInterval))
	return nil
}

// Stop cancels scheduled work and waits for the running job, if any, to
// finish. First step of the shutdown sequence.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunCycle executes one crawl cycle now.
func (s *Scheduler) RunCycle() {
	stats, err := s.crawler.CrawlAll(s.ctx)
	if err != nil {
		slog.Error("crawl cycle failed", slog.String("error", err.Error()))
		if s.jobs != nil {
			s.jobs.RecordCycleRun("failure")
		}
		return
	}

	if s.jobs != nil {
		s.jobs.RecordCycleRun("success")
		s.jobs.RecordCycleDuration(stats.Duration.Seconds())
		s.jobs.RecordFeedsProcessed(stats.Feeds)
		s.jobs.RecordLastSuccess()
	}
}

func (s *Scheduler) runMerge() {
	if _, err := s.maint.MergeClusters(s.ctx); err != nil {
		slog.Error("cluster merge pass failed", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) runCompaction() {
	s.maint.Compact(s.ctx)
}

// everySpec renders an interval as a cron @every spec, floored to one
// second (cron/v3 rejects finer intervals).
func everySpec(interval time.Duration) string {
	if interval < time.Second {
		interval = time.Second
	}
	return "@every " + interval.Truncate(time.Second).String()
}

// cronLogger adapts the default slog logger to the cron.Logger interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Info("cron: "+msg, slog.Any("details", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, slog.Any("error", err), slog.Any("details", keysAndValues))
}
