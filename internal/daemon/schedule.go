package daemon

import (
	"context"
	"time"

	"automerge/internal/catalog"
	"automerge/internal/logging"
	"automerge/internal/tasks"
)

func (d *Daemon) scheduleLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.execute(ctx, d.merge, tasks.MergeKey, TriggerInterval, newRunID())
		}
	}
}

// changeWatcher tracks the set of movie ids seen so far. The first poll
// only primes the set.
type changeWatcher struct {
	store  catalog.Store
	known  map[string]struct{}
	primed bool
}

func newChangeWatcher(store catalog.Store) *changeWatcher {
	return &changeWatcher{store: store, known: make(map[string]struct{})}
}

// poll returns the ids that appeared since the previous poll.
func (w *changeWatcher) poll(ctx context.Context) ([]string, error) {
	records, err := w.store.ListRecords(ctx, catalog.Query{})
	if err != nil {
		return nil, err
	}
	current := make(map[string]struct{}, len(records))
	var added []string
	for _, r := range records {
		current[r.ID] = struct{}{}
		if _, ok := w.known[r.ID]; !ok && w.primed {
			added = append(added, r.ID)
		}
	}
	w.known = current
	w.primed = true
	return added, nil
}

// watchLoop merges once the catalog has been quiet for mergeDelay after new
// movies appear. Further additions during the delay restart it.
func (d *Daemon) watchLoop(ctx context.Context, watcher *changeWatcher) {
	defer d.wg.Done()
	logger := logging.NewComponentLogger(d.logger, "watcher")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(d.mergeDelay)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	check := func() {
		added, err := watcher.poll(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.WarnWithContext(logger, "catalog poll failed", "watch_poll_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "new movies are not merged until the next successful poll"),
				)
			}
			return
		}
		if len(added) == 0 {
			return
		}
		logger.Info("new movies detected",
			logging.Int("count", len(added)),
			logging.Duration("delay", d.mergeDelay),
			logging.String(logging.FieldEventType, "movies_added"),
		)
		timer.Reset(d.mergeDelay)
		fire = timer.C
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		case <-fire:
			fire = nil
			d.execute(ctx, d.merge, tasks.MergeKey, TriggerChange, newRunID())
		}
	}
}
