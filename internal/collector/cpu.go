// CPU usage collector — measures host-wide CPU utilization.
// Uses gopsutil for cross-platform CPU metrics.
package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUResult holds the collected CPU usage data.
type CPUResult struct {
	Percent float64 `json:"percent"`
}

// CPUCollector collects host CPU utilization aggregated over the sampling
// interval. The blocking measurement covers the whole interval so the rolling
// graph reflects the full period rather than an instantaneous slice.
type CPUCollector struct {
	interval time.Duration
}

// NewCPUCollector creates a CPU collector that measures over the given interval.
func NewCPUCollector(interval time.Duration) *CPUCollector {
	return &CPUCollector{interval: interval}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect blocks for the configured interval and returns the aggregate
// utilization percentage across all cores.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	pcts, err := cpu.PercentWithContext(ctx, c.interval, false)
	if err != nil {
		return nil, err
	}

	result := CPUResult{}
	if len(pcts) > 0 {
		result.Percent = pcts[0]
	}
	return result, nil
}

// IsAvailable returns true — CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }
