// Package proctable implements the reconciler's listener and process table
// capabilities on top of gopsutil. PID lookups fail soft: a process that
// exits between discovery and the metric read reports ok=false, never an
// error, so the reconciler can degrade the record instead of failing it.
package proctable

import (
	"context"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/chatstack/chatpanel/internal/svcmon"
)

// Table implements svcmon.ListenerTable and svcmon.ProcessTable.
type Table struct{}

// New creates a process/listener table backed by the live OS process table.
func New() *Table {
	return &Table{}
}

// ListeningPID scans TCP listeners for the given local port and returns the
// owning PID. Listeners without an attributable PID are skipped.
func (t *Table) ListeningPID(ctx context.Context, port uint32) (int32, bool, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0, false, err
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == port && c.Pid > 0 {
			return c.Pid, true, nil
		}
	}
	return 0, false, nil
}

// Stats resolves command line, CPU percent, RSS, and start time for a PID.
// A vanished process yields ok=false with a nil error.
func (t *Table) Stats(ctx context.Context, pid int32) (svcmon.ProcStats, bool, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return svcmon.ProcStats{}, false, nil
	}

	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil {
		return svcmon.ProcStats{}, false, nil
	}

	st := svcmon.ProcStats{Cmdline: cmdline}

	// Metric reads after this point are best-effort; a partial record with
	// zeroed metrics beats dropping the match.
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		st.RSS = mem.RSS
	}
	if created, err := p.CreateTimeWithContext(ctx); err == nil && created > 0 {
		st.StartedAt = time.UnixMilli(created)
	}

	return st, true, nil
}
