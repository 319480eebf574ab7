package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/infra/notifier"
	"newswatch/internal/observability/metrics"
)

// alertStore is the slice of the alert repository the dispatcher uses.
type alertStore interface {
	Create(ctx context.Context, alert *entity.Alert) error
	Get(ctx context.Context, id int64) (*entity.Alert, error)
	UpdateStatus(ctx context.Context, id int64, status entity.AlertStatus, sentAt *time.Time, results []entity.ChannelResult) error
	IncrementResend(ctx context.Context, id int64) error
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListPending(ctx context.Context, limit int) ([]*entity.Alert, error)
}

// articleMarker flips the alert_sent flag once an article is admitted.
type articleMarker interface {
	MarkAlertSent(ctx context.Context, id int64) error
}

// Dispatcher turns unique articles into alerts: admission gate, priority
// derivation, channel selection, then fan-out delivery with persisted
// per-channel results. Alerts are created in the store before delivery,
// so a crash mid-dispatch leaves a replayable pending record.
type Dispatcher struct {
	cfg      Config
	alerts   alertStore
	articles articleMarker
	channels map[entity.AlertChannel]notifier.Channel
	trusted  map[string]bool
	cooldown *cooldownIndex
	now      func() time.Time

	queue chan *entity.Alert
}

// NewDispatcher wires the dispatcher with the enabled channels. Disabled
// channels are simply not passed in.
func NewDispatcher(cfg Config, alerts alertStore, articles articleMarker, channels ...notifier.Channel) *Dispatcher {
	byName := make(map[entity.AlertChannel]notifier.Channel, len(channels))
	for _, channel := range channels {
		byName[channel.Name()] = channel
	}
	trusted := make(map[string]bool, len(cfg.TrustedSources))
	for _, source := range cfg.TrustedSources {
		trusted[source] = true
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Dispatcher{
		cfg:      cfg,
		alerts:   alerts,
		articles: articles,
		channels: byName,
		trusted:  trusted,
		cooldown: newCooldownIndex(),
		now:      time.Now,
		queue:    make(chan *entity.Alert, cfg.QueueSize),
	}
}

// HandleUnique is the unique-article hook plugged into the dedup engine.
// Admission failures are logged and counted, never propagated; alerting
// problems must not stall duplicate detection.
func (d *Dispatcher) HandleUnique(ctx context.Context, article *entity.Article) {
	alert, err := d.Admit(ctx, article)
	if err != nil {
		slog.Error("alert admission failed",
			slog.Int64("article_id", article.ID),
			slog.String("error", err.Error()))
		return
	}
	if alert == nil {
		return
	}

	select {
	case d.queue <- alert:
		metrics.UpdateAlertQueueDepth(len(d.queue))
	default:
		// Full queue: the alert stays pending in the store and is
		// picked up by the next ReplayPending run.
		slog.Warn("alert queue full, leaving alert pending",
			slog.Int64("alert_id", alert.ID))
	}
}

// Admit runs the admission gate and, when the article passes, persists a
// pending alert. Returns (nil, nil) for articles filtered by the gate.
//
// Gate order matters: the rate limit reflects store state, the cooldown
// is process-local, the quality score is pure. Decisions reflect the
// state of the store at admission time.
func (d *Dispatcher) Admit(ctx context.Context, article *entity.Article) (*entity.Alert, error) {
	now := d.now()

	created, err := d.alerts.CountCreatedSince(ctx, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("Admit: rate count: %w", err)
	}
	if created >= d.cfg.MaxAlertsPerHour {
		metrics.RecordAlertSuppressed("rate_limit")
		slog.Info("alert suppressed by hourly rate limit",
			slog.Int64("article_id", article.ID),
			slog.Int("created_last_hour", created))
		return nil, nil
	}

	key := cooldownKey(article)
	if d.cooldown.Recent(key, now, d.cfg.Cooldown) {
		metrics.RecordAlertSuppressed("cooldown")
		slog.Info("alert suppressed by cooldown",
			slog.Int64("article_id", article.ID),
			slog.String("key", key))
		return nil, nil
	}

	if score := qualityScore(article, d.trusted, now); score < d.cfg.MinQualityScore {
		metrics.RecordAlertSuppressed("quality")
		slog.Info("alert suppressed by quality gate",
			slog.Int64("article_id", article.ID),
			slog.Int("score", score))
		return nil, nil
	}

	priority := derivePriority(article)
	alert := &entity.Alert{
		ArticleID:   article.ID,
		Title:       article.Title,
		Summary:     article.Summary,
		Source:      article.Source,
		Category:    article.Category,
		Priority:    priority,
		URL:         article.URL,
		PublishedAt: article.PublishedAt,
		Entities:    article.Entities,
		Tags:        article.Tags,
		Channels:    d.selectChannels(priority, article.Category),
		Status:      entity.AlertPending,
		CreatedAt:   now,
	}
	if err := alert.Validate(); err != nil {
		return nil, fmt.Errorf("Admit: %w", err)
	}
	if err := d.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("Admit: create: %w", err)
	}

	d.cooldown.Record(key, now)
	metrics.RecordAlertCreated(string(priority))

	if d.articles != nil {
		if err := d.articles.MarkAlertSent(ctx, article.ID); err != nil {
			slog.Warn("failed to mark article alerted",
				slog.Int64("article_id", article.ID),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("alert admitted",
		slog.Int64("alert_id", alert.ID),
		slog.Int64("article_id", article.ID),
		slog.String("priority", string(priority)),
		slog.Int("channels", len(alert.Channels)))
	return alert, nil
}

// selectChannels picks delivery channels from the enabled set: webhook
// always, email only for high priority, slack only for business and
// technology stories.
func (d *Dispatcher) selectChannels(priority entity.Priority, category string) []entity.AlertChannel {
	var selected []entity.AlertChannel
	if _, ok := d.channels[entity.ChannelWebhook]; ok {
		selected = append(selected, entity.ChannelWebhook)
	}
	if _, ok := d.channels[entity.ChannelEmail]; ok && priority == entity.PriorityHigh {
		selected = append(selected, entity.ChannelEmail)
	}
	if _, ok := d.channels[entity.ChannelSlack]; ok && (category == "business" || category == "technology") {
		selected = append(selected, entity.ChannelSlack)
	}
	return selected
}

// Dispatch fans the alert out to its selected channels concurrently,
// each delivery bounded by the channel timeout, and persists the result
// vector. The alert ends `sent` iff at least one channel succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *entity.Alert) error {
	results := make([]entity.ChannelResult, len(alert.Channels))

	var wg sync.WaitGroup
	for i, name := range alert.Channels {
		channel, ok := d.channels[name]
		if !ok {
			results[i] = entity.ChannelResult{Channel: name, Success: false, Error: "channel not configured"}
			metrics.RecordChannelSkipped(string(name))
			continue
		}

		wg.Add(1)
		go func(i int, channel notifier.Channel) {
			defer wg.Done()
			results[i] = d.deliver(ctx, channel, alert)
		}(i, channel)
	}
	wg.Wait()

	alert.Results = results
	status := entity.AlertFailed
	if alert.AnySuccess() {
		status = entity.AlertSent
	}
	sentAt := d.now()
	alert.Status = status
	alert.SentAt = &sentAt

	if err := d.alerts.UpdateStatus(ctx, alert.ID, status, &sentAt, results); err != nil {
		return fmt.Errorf("Dispatch: %w", err)
	}

	slog.Info("alert dispatched",
		slog.Int64("alert_id", alert.ID),
		slog.String("status", string(status)),
		slog.Int("channels", len(results)))
	return nil
}

// deliver runs one channel delivery under the per-channel timeout.
func (d *Dispatcher) deliver(ctx context.Context, channel notifier.Channel, alert *entity.Alert) entity.ChannelResult {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	start := d.now()
	err := channel.Send(ctx, alert)
	metrics.RecordChannelDelivery(string(channel.Name()), err == nil, time.Since(start))

	result := entity.ChannelResult{Channel: channel.Name(), Success: err == nil}
	if err != nil {
		result.Error = err.Error()
		result.StatusCode = notifier.StatusCodeOf(err)
	}
	return result
}

// Run drains the dispatch queue until the context is cancelled. The
// cooldown index is pruned hourly.
func (d *Dispatcher) Run(ctx context.Context) {
	gc := time.NewTicker(time.Hour)
	defer gc.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-d.queue:
			if err := d.Dispatch(ctx, alert); err != nil {
				slog.Error("alert dispatch failed",
					slog.Int64("alert_id", alert.ID),
					slog.String("error", err.Error()))
			}
			metrics.UpdateAlertQueueDepth(len(d.queue))
		case <-gc.C:
			pruned := d.cooldown.Prune(d.now(), d.cfg.Cooldown)
			if pruned > 0 {
				slog.Debug("pruned cooldown index", slog.Int("entries", pruned))
			}
		}
	}
}

// ReplayPending re-enqueues alerts left pending by a previous run.
// Returns the number queued.
func (d *Dispatcher) ReplayPending(ctx context.Context) (int, error) {
	pending, err := d.alerts.ListPending(ctx, d.cfg.QueueSize)
	if err != nil {
		return 0, fmt.Errorf("ReplayPending: %w", err)
	}

	queued := 0
	for _, alert := range pending {
		select {
		case d.queue <- alert:
			queued++
		default:
			// Remaining alerts stay pending for the next replay.
			slog.Warn("alert queue full during replay",
				slog.Int("queued", queued),
				slog.Int("pending", len(pending)))
			return queued, nil
		}
	}
	if queued > 0 {
		slog.Info("queued pending alerts for replay", slog.Int("count", queued))
	}
	return queued, nil
}

// Resend re-dispatches a previously failed alert. Operator-initiated;
// bumps resend_count.
func (d *Dispatcher) Resend(ctx context.Context, alertID int64) error {
	alert, err := d.alerts.Get(ctx, alertID)
	if err != nil {
		return fmt.Errorf("Resend: %w", err)
	}
	if alert == nil {
		return fmt.Errorf("Resend: %w", entity.ErrNotFound)
	}
	if err := d.alerts.IncrementResend(ctx, alertID); err != nil {
		return fmt.Errorf("Resend: %w", err)
	}
	return d.Dispatch(ctx, alert)
}

// DispatchTest sends a synthetic alert through one named channel without
// persisting anything. Backs the admin "test alert" operation.
func (d *Dispatcher) DispatchTest(ctx context.Context, name entity.AlertChannel) entity.ChannelResult {
	channel, ok := d.channels[name]
	if !ok {
		return entity.ChannelResult{Channel: name, Success: false, Error: "channel not configured"}
	}

	now := d.now()
	test := &entity.Alert{
		ArticleID:   -1,
		Title:       "Test alert",
		Summary:     "This is a test alert. No action is required.",
		Source:      "newswatch",
		Category:    "technology",
		Priority:    entity.PriorityLow,
		PublishedAt: now,
		Status:      entity.AlertPending,
		CreatedAt:   now,
	}
	return d.deliver(ctx, channel, test)
}
