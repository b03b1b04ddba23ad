// Package sysmon implements the host resource sampler. Each tick it measures
// CPU utilization over the full sampling interval plus instantaneous RAM and
// root-disk usage, maintains bounded rolling histories, and publishes an
// immutable ResourceSnapshot. The sampler does NOT render anything — it
// invokes a callback when a snapshot is ready.
package sysmon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/collector"
	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/models"
)

// Sampler periodically collects host metrics and publishes snapshots.
type Sampler struct {
	registry *collector.Registry
	cfg      *config.Config
	logger   *zap.Logger

	cpuHistory *Ring
	ramHistory *Ring

	onSnapshot func(models.ResourceSnapshot)
}

// New creates a Sampler with the given registry, config, and logger.
func New(registry *collector.Registry, cfg *config.Config, logger *zap.Logger) *Sampler {
	return &Sampler{
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
		cpuHistory: NewRing(cfg.Monitor.HistorySize),
		ramHistory: NewRing(cfg.Monitor.HistorySize),
	}
}

// OnSnapshot sets the callback invoked with each published snapshot.
// The callback must not block; the bus handles slow consumers.
func (s *Sampler) OnSnapshot(fn func(models.ResourceSnapshot)) {
	s.onSnapshot = fn
}

// Run executes the sampling loop until the context is cancelled. The CPU
// measurement itself blocks for the sampling interval, so the loop needs no
// additional sleep. Cancellation is checked at the top of each iteration;
// an in-flight measurement is allowed to finish.
func (s *Sampler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Resource sampler stopped")
			return
		default:
		}

		start := time.Now()
		s.tick(ctx)

		// The blocking CPU measurement normally paces the loop; if a tick
		// returned early (collector error), sleep out the remainder.
		if rest := s.cfg.Monitor.SampleInterval.Duration - time.Since(start); rest > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(rest):
			}
		}
	}
}

// tick performs one measurement pass and publishes the resulting snapshot.
func (s *Sampler) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.cfg.Monitor.SampleInterval.Duration+5*time.Second)
	defer cancel()

	results := s.registry.CollectAll(tickCtx)
	snapshot := s.assemble(results)

	if s.onSnapshot != nil {
		s.onSnapshot(snapshot)
	}
}

// assemble maps collector results into a ResourceSnapshot and advances the
// rolling histories. History slices on the snapshot are copies; consumers
// can never corrupt the rolling window.
func (s *Sampler) assemble(results map[string]interface{}) models.ResourceSnapshot {
	snapshot := models.ResourceSnapshot{
		Timestamp: time.Now().UTC(),
	}

	if data, ok := results["cpu"]; ok {
		if cpu, ok := data.(collector.CPUResult); ok {
			snapshot.CPUPercent = cpu.Percent
		}
	}

	if data, ok := results["memory"]; ok {
		if mem, ok := data.(collector.MemoryResult); ok {
			snapshot.RAMPercent = mem.Percent
			snapshot.RAMUsed = mem.Used
			snapshot.RAMTotal = mem.Total
		}
	}

	if data, ok := results["rootdisk"]; ok {
		if d, ok := data.(collector.RootDiskResult); ok {
			snapshot.DiskPercent = d.Percent
			snapshot.DiskUsed = d.Used
			snapshot.DiskTotal = d.Total
		}
	}

	s.cpuHistory.Push(snapshot.CPUPercent)
	s.ramHistory.Push(snapshot.RAMPercent)
	snapshot.CPUHistory = s.cpuHistory.Values()
	snapshot.RAMHistory = s.ramHistory.Values()

	return snapshot
}
