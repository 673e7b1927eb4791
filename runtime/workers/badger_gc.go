package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGC periodically reclaims space in the value log. Badger never runs
// this on its own; without it an append-only store grows unbounded.
type BadgerGC struct {
	db       *badger.DB
	interval time.Duration
	log      *slog.Logger
}

func NewBadgerGC(db *badger.DB, interval time.Duration, log *slog.Logger) *BadgerGC {
	return &BadgerGC{db: db, interval: interval, log: log}
}

func (w *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping badger GC worker")
			return nil
		case <-ticker.C:
			// One call rewrites at most one value log file; loop until
			// there is nothing left worth rewriting.
			for {
				err := w.db.RunValueLogGC(0.5)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						w.log.Warn("value log GC failed", "error", err)
					}
					break
				}
				w.log.Debug("value log file rewritten")
			}
		}
	}
}
