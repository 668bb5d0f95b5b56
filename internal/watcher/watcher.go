// Package watcher archives events whose registration deadline has passed.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/assocbot/core/logger"
	"github.com/m3rciful/assocbot/internal/notify"
	"github.com/m3rciful/assocbot/internal/storage"
)

// DefaultInterval is the time between sweeps.
const DefaultInterval = 60 * time.Second

const msgExpired = "⏱️ مهلت ثبت‌نام رویداد '%s' تمام شد و به آرشیو منتقل شد."

// Broadcaster delivers notices to admins.
type Broadcaster interface {
	Broadcast(ctx context.Context, m notify.Notice) int
}

// Watcher periodically deactivates expired events and tells the admins.
type Watcher struct {
	events   storage.Events
	notifier Broadcaster
	interval time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

// New returns a stopped watcher. A zero interval means DefaultInterval.
func New(events storage.Events, notifier Broadcaster, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		events:   events,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Tick runs one sweep. Each archived event is announced once because the
// deactivation is a single conditional update.
func (w *Watcher) Tick(ctx context.Context) (int, error) {
	flipped, err := w.events.DeactivateExpired(ctx, w.now().Unix())
	if err != nil {
		return 0, err
	}
	for _, ev := range flipped {
		logger.Info(ctx, logger.CompWatch, "event.archived",
			slog.Int64("event_id", ev.ID),
		)
		if w.notifier != nil {
			w.notifier.Broadcast(ctx, notify.Notice{Text: fmt.Sprintf(msgExpired, ev.Title)})
		}
	}
	return len(flipped), nil
}

// Start schedules the sweep. The job uses ctx for storage calls.
func (w *Watcher) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, func() {
		if _, err := w.Tick(ctx); err != nil {
			logger.Error(ctx, logger.CompWatch, "tick.failed", slog.String("err", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("schedule watcher: %w", err)
	}
	w.cron.Start()
	logger.Info(ctx, logger.CompWatch, "watcher.started", slog.Duration("interval", w.interval))
	return nil
}

// Stop halts scheduling and returns a context done when a running sweep
// finishes.
func (w *Watcher) Stop() context.Context {
	return w.cron.Stop()
}
