// Package debug holds periodic process telemetry loggers, started only when
// the debug flag is set. They help correlate monitor behaviour (long NCC
// scans, stalled external calls) with memory and goroutine growth.
package debug

import (
	"log/slog"
	"os"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// StartMemLogger launches a goroutine that logs heap stats and process RSS
// at the given interval. Best-effort: RSS query failures are logged once and
// then suppressed.
func StartMemLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		proc, procErr := process.NewProcess(int32(os.Getpid()))
		var rssErrLogged bool
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			rss := uint64(0)
			if procErr == nil {
				if mi, err := proc.MemoryInfo(); err == nil {
					rss = mi.RSS
				} else if !rssErrLogged {
					logger.Warn("memlog: rss query failed", slog.String("err", err.Error()))
					rssErrLogged = true
				}
			}
			logger.Info("memstats",
				slog.Int("goroutines", runtime.NumGoroutine()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("heap_sys", ms.HeapSys),
				slog.Uint64("rss", rss),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			)
		}
	}()
}

// StartGoroutineLogger logs goroutine count and stack memory at a fixed
// interval, to rule out goroutine leaks from monitors that never observed
// their stop flag.
func StartGoroutineLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Info("goroutine-stacks",
				slog.Uint64("goroutines", samples[0].Value.Uint64()),
				slog.Uint64("stack_inuse", ms.StackInuse),
				slog.Uint64("stack_sys", ms.StackSys),
			)
		}
	}()
}
