package launcher

import (
	"context"
	"fmt"
	"time"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"go.uber.org/zap"
)

// AdoptedStopper implements PortStopper for processes that are running but
// were not launched by this panel instance (for example, a backend started
// from a terminal before the panel came up). The process is located through
// its listening port and receives the same terminate-wait-kill sequence a
// runner applies.
type AdoptedStopper struct {
	logger *zap.Logger
}

// NewAdoptedStopper creates a gopsutil-backed PortStopper.
func NewAdoptedStopper(logger *zap.Logger) *AdoptedStopper {
	return &AdoptedStopper{logger: logger}
}

// StopByPort terminates the process listening on port. Absence of a
// listener is not an error; the process may have exited on its own.
func (a *AdoptedStopper) StopByPort(ctx context.Context, port uint32, grace time.Duration) error {
	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return fmt.Errorf("enumerating listeners: %w", err)
	}

	var pid int32
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == port && c.Pid > 0 {
			pid = c.Pid
			break
		}
	}
	if pid == 0 {
		return nil
	}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil // exited between scan and stop
	}

	a.logger.Info("Stopping adopted process",
		zap.Uint32("port", port),
		zap.Int32("pid", pid))

	if err := proc.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if running, _ := proc.IsRunningWithContext(ctx); !running {
			return nil
		}
		if !sleepCtx(ctx, 100*time.Millisecond) {
			return ctx.Err()
		}
	}

	if err := proc.KillWithContext(ctx); err != nil {
		return fmt.Errorf("killing pid %d: %w", pid, err)
	}
	return nil
}
