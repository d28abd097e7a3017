package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

const report_perf_stats_cpu = "perf-stats.cpu"

var meter = otel.Meter("go.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// InstrumentPerfStats records process stats every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				// sampling window is kept below the tick so samples never overlap
				cpuUsage, err := cpu.PercentWithContext(ctx, interval/2, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil && ctx.Err() == nil {
					tel.ReportWarning(report_perf_stats_cpu, err)
				}

				allocated := int64(memStats.Alloc / 1_000_000)
				memoryGauge.Record(ctx, allocated)
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
				tel.ReportCount("perf-stats.allocated-mb", allocated)
			case <-ctx.Done():
				return
			}
		}
	}()
}
