// Package models defines the snapshot and event structures passed between
// the pollers, the launcher, and the dashboard. Values are immutable once
// emitted; a new tick supersedes the previous snapshot, it never merges.
package models

import "time"

// ResourceSnapshot represents host-wide resource usage at one sampling tick.
// The history slices are copies owned by the receiver.
type ResourceSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUPercent  float64   `json:"cpu_percent"`
	RAMPercent  float64   `json:"ram_percent"`
	RAMUsed     uint64    `json:"ram_used"`
	RAMTotal    uint64    `json:"ram_total"`
	DiskPercent float64   `json:"disk_percent"`
	DiskUsed    uint64    `json:"disk_used"`
	DiskTotal   uint64    `json:"disk_total"`
	CPUHistory  []float64 `json:"cpu_history"`
	RAMHistory  []float64 `json:"ram_history"`
}

// ServiceKind distinguishes systemd-managed units from processes the panel
// launches itself.
type ServiceKind string

const (
	KindSystemd  ServiceKind = "systemd"
	KindExternal ServiceKind = "external"
)

// ServiceState is the reconciled activation state of a tracked service.
type ServiceState string

const (
	StateUnknown  ServiceState = "unknown"
	StateInactive ServiceState = "inactive"
	StateActive   ServiceState = "active"
	StateFailed   ServiceState = "failed"
)

// ServiceRecord is the per-service result of one reconciliation tick.
// One record exists per tracked name; it is overwritten each tick.
type ServiceRecord struct {
	Name       string       `json:"name"`
	Kind       ServiceKind  `json:"kind"`
	State      ServiceState `json:"state"`
	PID        int32        `json:"pid"` // 0 when unresolved
	CPUPercent float64      `json:"cpu_percent"`
	MemoryRSS  uint64       `json:"memory_rss"`
	Uptime     string       `json:"uptime"` // "1d 1h", "1h 30m", "0m"; empty when not active
	CheckedAt  time.Time    `json:"checked_at"`
}

// Running reports whether the record describes an active service.
func (r ServiceRecord) Running() bool { return r.State == StateActive }

// LaunchEventType enumerates lifecycle notifications from a launched process.
type LaunchEventType string

const (
	LaunchStarted  LaunchEventType = "started"
	LaunchOutput   LaunchEventType = "output"
	LaunchFinished LaunchEventType = "finished"
	LaunchNotice   LaunchEventType = "notice" // one-time operator-facing message
)

// LaunchEvent is emitted by a process runner: exactly one started event,
// zero or more output lines, then exactly one finished event with the exit
// code (-1 when the process could not be started or was killed).
type LaunchEvent struct {
	Service  string          `json:"service"`
	Type     LaunchEventType `json:"type"`
	Line     string          `json:"line,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
	Time     time.Time       `json:"time"`
}

// LogChunk carries journal lines fetched for a unit on its transition to
// active, plus persisted launcher output.
type LogChunk struct {
	Service   string    `json:"service"`
	Lines     []string  `json:"lines"`
	FetchedAt time.Time `json:"fetched_at"`
}

// HostInfo is collected once at startup for the dashboard header.
type HostInfo struct {
	Hostname string    `json:"hostname"`
	Platform string    `json:"platform"`
	BootTime time.Time `json:"boot_time"`
}
