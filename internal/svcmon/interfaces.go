// Package svcmon implements the service status reconciler. Each tick it
// evaluates every tracked service — systemd units through the service
// manager, externally launched processes through the listener table — and
// publishes one ServiceRecord per service. OS access goes through narrow
// capability interfaces so the reconciliation logic is testable with fakes.
package svcmon

import (
	"context"
	"time"

	"github.com/chatstack/chatpanel/internal/models"
)

// UnitStatus is the queried state of a systemd unit.
type UnitStatus struct {
	State       models.ServiceState
	MainPID     int32     // 0 when the unit has no main process
	ActiveSince time.Time // zero when not active
}

// ServiceManager queries systemd unit state.
type ServiceManager interface {
	UnitStatus(ctx context.Context, unit string) (UnitStatus, error)
}

// LogSource retrieves the most recent journal lines for a unit.
type LogSource interface {
	TailUnit(ctx context.Context, unit string, lines int) ([]string, error)
}

// ListenerTable enumerates listening TCP sockets. ListeningPID returns the
// PID owning a listener on the given port; ok is false when no such
// listener exists.
type ListenerTable interface {
	ListeningPID(ctx context.Context, port uint32) (pid int32, ok bool, err error)
}

// ProcStats is a point-in-time view of one process.
type ProcStats struct {
	Cmdline    string
	CPUPercent float64
	RSS        uint64
	StartedAt  time.Time
}

// ProcessTable resolves live process statistics. Stats returns ok=false with
// a nil error when the PID no longer exists; the caller degrades the record
// instead of treating the race as a failure.
type ProcessTable interface {
	Stats(ctx context.Context, pid int32) (stats ProcStats, ok bool, err error)
}
