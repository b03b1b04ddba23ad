// Root filesystem usage collector.
// Uses gopsutil for cross-platform disk metrics.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/disk"
)

// RootDiskResult holds usage of the root filesystem.
type RootDiskResult struct {
	Used    uint64  `json:"used"`
	Total   uint64  `json:"total"`
	Percent float64 `json:"percent"`
}

// RootDiskCollector collects usage for a single filesystem path. The panel
// only shows the root filesystem; per-mount breakdown is not needed.
type RootDiskCollector struct {
	path string
}

// NewRootDiskCollector creates a disk collector for the given path ("/" by default).
func NewRootDiskCollector(path string) *RootDiskCollector {
	if path == "" {
		path = "/"
	}
	return &RootDiskCollector{path: path}
}

// Name returns the collector identifier.
func (c *RootDiskCollector) Name() string { return "rootdisk" }

// Collect gathers usage for the configured filesystem.
func (c *RootDiskCollector) Collect(ctx context.Context) (interface{}, error) {
	usage, err := disk.UsageWithContext(ctx, c.path)
	if err != nil {
		return nil, err
	}
	return RootDiskResult{
		Used:    usage.Used,
		Total:   usage.Total,
		Percent: usage.UsedPercent,
	}, nil
}

// IsAvailable returns true — disk metrics are available on all platforms.
func (c *RootDiskCollector) IsAvailable() bool { return true }
