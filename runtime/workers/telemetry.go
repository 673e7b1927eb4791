package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrarman0786/chat-app/observability"
)

// Telemetry logs a periodic health snapshot so operators can follow the
// process without scraping the HTTP endpoint.
type Telemetry struct {
	health   *observability.Health
	interval time.Duration
	log      *slog.Logger
}

func NewTelemetry(health *observability.Health, interval time.Duration, log *slog.Logger) *Telemetry {
	return &Telemetry{health: health, interval: interval, log: log}
}

func (w *Telemetry) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping telemetry worker")
			return nil
		case <-ticker.C:
			snap := w.health.Snapshot()
			w.log.Info("telemetry",
				"connections", snap.Connections,
				"goroutines", snap.Goroutines,
				"alloc_mem_mb", snap.AllocMemMB,
				"rss_mem_mb", snap.RSSMemMB,
				"cpu_percent", snap.CPUPercent,
				"num_gc", snap.NumGC)
		}
	}
}
