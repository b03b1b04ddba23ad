// Package systemd provides the Linux implementations of the reconciler's
// capability interfaces: unit status over the systemd D-Bus API, journal
// tailing via journalctl, and privilege-escalated unit start/stop via pkexec.
package systemd

import (
	"context"
	"fmt"
	"time"

	sd "github.com/coreos/go-systemd/v22/dbus"

	"github.com/chatstack/chatpanel/internal/models"
	"github.com/chatstack/chatpanel/internal/svcmon"
)

// Manager implements svcmon.ServiceManager over an unprivileged D-Bus
// connection to systemd. Queries need no elevation; only start/stop does.
type Manager struct {
	conn *sd.Conn
}

// NewManager opens a system D-Bus connection to systemd.
func NewManager(ctx context.Context) (*Manager, error) {
	conn, err := sd.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

// Close releases the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// UnitStatus queries ActiveState, MainPID, and ActiveEnterTimestamp for the
// named unit. The ".service" suffix is appended automatically.
func (m *Manager) UnitStatus(ctx context.Context, unit string) (svcmon.UnitStatus, error) {
	props, err := m.conn.GetUnitPropertiesContext(ctx, unit+".service")
	if err != nil {
		return svcmon.UnitStatus{}, fmt.Errorf("querying unit %s: %w", unit, err)
	}

	st := svcmon.UnitStatus{State: mapActiveState(stringProp(props, "ActiveState"))}

	if pid, ok := props["MainPID"].(uint32); ok {
		st.MainPID = int32(pid)
	}
	// systemd timestamps are microseconds since the Unix epoch.
	if ts, ok := props["ActiveEnterTimestamp"].(uint64); ok && ts > 0 {
		st.ActiveSince = time.UnixMicro(int64(ts))
	}

	return st, nil
}

// mapActiveState folds systemd's activation states onto the panel's four
// states. Transitional states count as inactive until they settle.
func mapActiveState(s string) models.ServiceState {
	switch s {
	case "active", "reloading":
		return models.StateActive
	case "inactive", "deactivating", "activating":
		return models.StateInactive
	case "failed":
		return models.StateFailed
	default:
		return models.StateUnknown
	}
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
