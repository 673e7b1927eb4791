// Package observability aggregates runtime and process metrics for the
// health endpoint and the telemetry worker.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"github.com/mrarman0786/chat-app/contract"
)

// Snapshot is the health payload served at /healthz.
type Snapshot struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Connections   int     `json:"connections"`
	Goroutines    int     `json:"goroutines"`
	AllocMemMB    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	RSSMemMB      uint64  `json:"rss_mem_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
}

// Health samples Go runtime stats plus OS-level process stats. Process
// probing is best effort: on platforms where it fails, those fields stay
// zero and the snapshot is still served.
type Health struct {
	log       *slog.Logger
	registry  contract.IRegistry
	proc      *process.Process
	startedAt time.Time
}

func NewHealth(log *slog.Logger, registry contract.IRegistry) *Health {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process stats unavailable", "error", err)
		proc = nil
	}
	return &Health{
		log:       log,
		registry:  registry,
		proc:      proc,
		startedAt: time.Now(),
	}
}

func (h *Health) Snapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := Snapshot{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Connections:   h.registry.Size(),
		Goroutines:    runtime.NumGoroutine(),
		AllocMemMB:    memStats.Alloc / 1024 / 1024,
		NumGC:         memStats.NumGC,
	}

	if h.proc != nil {
		if mem, err := h.proc.MemoryInfo(); err == nil {
			snap.RSSMemMB = mem.RSS / 1024 / 1024
		}
		if cpu, err := h.proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
	}
	return snap
}
