package workers

import (
	"chat-relay/contract"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*ReporterWorker)(nil)

// ReporterWorker periodically logs the server's health: live sessions,
// room occupancy, and the process's own memory and CPU usage. On shutdown
// it prints a final occupancy table to the console.
type ReporterWorker struct {
	log      *slog.Logger
	registry *runtime.Registry
	bus      *runtime.Bus
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, registry *runtime.Registry,
	bus *runtime.Bus, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, registry: registry, bus: bus, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.printOccupancy()
			return ctx.Err()
		case <-ticker.C:
			rss, cpu := selfStats(p)
			w.log.Info("Server status",
				"sessions", w.registry.Count(),
				"rooms", len(w.registry.Occupancy()),
				"subscribers", w.bus.Subscribers(),
				"ram_bytes", rss,
				"cpu_percent", cpu)
		}
	}
}

// selfStats retrieves memory and CPU metrics for the given process.
// Metrics are best-effort: a collection failure reports zero values.
func selfStats(p *process.Process) (uint64, float64) {
	var rss uint64
	if memInfo, err := p.MemoryInfo(); err == nil {
		rss = memInfo.RSS
	}
	var cpu float64
	if cpuPercent, err := p.CPUPercent(); err == nil {
		cpu = cpuPercent
	}
	return rss, cpu
}

// printOccupancy renders the final room occupancy as a console table.
func (w *ReporterWorker) printOccupancy() {
	occupancy := w.registry.Occupancy()

	rooms := lo.Keys(occupancy)
	sort.Strings(rooms)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Sessions"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, room := range rooms {
		table.Append([]string{room, strconv.Itoa(occupancy[room])})
	}
	table.SetFooter([]string{"total", strconv.Itoa(w.registry.Count())})
	table.Render()
}
