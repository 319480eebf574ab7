package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubCrawler struct {
	stats *CycleStats
	err   error
	calls int
}

func (c *stubCrawler) CrawlAll(context.Context) (*CycleStats, error) {
	c.calls++
	return c.stats, c.err
}

type stubJobs struct {
	runs      []string
	durations []float64
	feeds     int
	successes int
}

func (j *stubJobs) RecordCycleRun(status string)        { j.runs = append(j.runs, status) }
func (j *stubJobs) RecordCycleDuration(seconds float64) { j.durations = append(j.durations, seconds) }
func (j *stubJobs) RecordFeedsProcessed(count int)      { j.feeds += count }
func (j *stubJobs) RecordLastSuccess()                  { j.successes++ }

func TestRunCycle_RecordsSuccess(t *testing.T) {
	crawler := &stubCrawler{stats: &CycleStats{Feeds: 4, Duration: 90 * time.Second}}
	jobs := &stubJobs{}
	s := NewScheduler(DefaultConfig(), crawler, nil)
	s.SetJobMetrics(jobs)

	s.RunCycle()

	assert.Equal(t, 1, crawler.calls)
	assert.Equal(t, []string{"success"}, jobs.runs)
	assert.Equal(t, []float64{90}, jobs.durations)
	assert.Equal(t, 4, jobs.feeds)
	assert.Equal(t, 1, jobs.successes)
}

func TestRunCycle_RecordsFailure(t *testing.T) {
	jobs := &stubJobs{}
	s := NewScheduler(DefaultConfig(), &stubCrawler{err: errors.New("db down")}, nil)
	s.SetJobMetrics(jobs)

	s.RunCycle()

	assert.Equal(t, []string{"failure"}, jobs.runs)
	assert.Empty(t, jobs.durations)
	assert.Zero(t, jobs.successes)
}

func TestRunCycle_NilMetricsIsSafe(t *testing.T) {
	crawler := &stubCrawler{stats: &CycleStats{}}
	s := NewScheduler(DefaultConfig(), crawler, nil)

	assert.NotPanics(t, func() { s.RunCycle() })
	assert.Equal(t, 1, crawler.calls)
}
