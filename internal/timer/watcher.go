package timer

import (
	"context"
	"log/slog"
	"time"
)

const defaultWatchInterval = time.Second

// Watcher polls the store for expired timers and hands them to the
// announce callback. The interactive loop runs one of these so a timer
// going off interrupts whatever else is happening.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	interval time.Duration
	announce func(Timer)
}

// NewWatcher creates a watcher. announce is called once per expired
// timer, in fire order.
func NewWatcher(store *Store, announce func(Timer), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		logger:   logger,
		interval: defaultWatchInterval,
		announce: announce,
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		expired, err := w.store.CollectExpired()
		if err != nil {
			w.logger.Error("collect expired timers", "error", err)
			continue
		}
		for _, t := range expired {
			w.logger.Info("timer fired", "id", t.ID, "label", t.Label)
			w.announce(t)
		}
	}
}

// Announcement renders the message spoken when a timer fires.
func Announcement(t Timer) string {
	if t.Label != "" {
		return "Your timer '" + t.Label + "' is going off."
	}
	return "Your timer is going off."
}
