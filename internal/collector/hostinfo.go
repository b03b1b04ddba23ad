// Host info collector — platform name, hostname, and boot time.
// Collected once at startup for the dashboard header.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/chatstack/chatpanel/internal/models"
)

// HostInfoCollector collects static host identification data.
type HostInfoCollector struct{}

// NewHostInfoCollector creates a new host info collector.
func NewHostInfoCollector() *HostInfoCollector {
	return &HostInfoCollector{}
}

// Name returns the collector identifier.
func (c *HostInfoCollector) Name() string { return "hostinfo" }

// Collect gathers hostname, platform description, and boot time.
func (c *HostInfoCollector) Collect(ctx context.Context) (interface{}, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}

	platform := info.Platform
	if info.PlatformVersion != "" {
		platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}

	return models.HostInfo{
		Hostname: info.Hostname,
		Platform: platform,
		BootTime: time.Unix(int64(info.BootTime), 0),
	}, nil
}

// IsAvailable returns true — host info is available on all platforms.
func (c *HostInfoCollector) IsAvailable() bool { return true }
