package workers

import (
	"chat-broadcast/contract"
	"chat-broadcast/runtime"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*StatsWorker)(nil)

const DefaultStatsInterval = 30 * time.Second

// StatsWorker periodically logs the channel counters and the process footprint.
// Reading the counters only takes the channel lock briefly, sampling is lossy by nature.
type StatsWorker struct {
	log      *slog.Logger
	channel  *runtime.ChatChannel
	interval time.Duration
}

// NewStatsWorker falls back to DefaultStatsInterval when interval is not positive.
func NewStatsWorker(log *slog.Logger, channel *runtime.ChatChannel, interval time.Duration) *StatsWorker {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &StatsWorker{log: log, channel: channel, interval: interval}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stats")
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *StatsWorker) report(p *process.Process) {
	stats := w.channel.Stats()
	attrs := []any{
		"subscribers", stats.Subscribers,
		"published", stats.Published,
		"dropped", stats.Dropped,
	}

	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Warn("Failed to collect self stats", "error", err)
	} else {
		attrs = append(attrs, "ram_bytes", rss, "cpu_percent", cpu)
	}
	w.log.Info("Channel stats", attrs...)
}

// selfStats retrieves memory and CPU usage of the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
