package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Journal implements svcmon.LogSource by shelling out to journalctl.
// Reading the journal needs no elevation for units logging to the system
// journal when the user is in the systemd-journal group; otherwise the
// query returns journalctl's own permission notice, which is still useful.
type Journal struct{}

// NewJournal creates a journalctl-backed log source.
func NewJournal() *Journal {
	return &Journal{}
}

// TailUnit returns the most recent n journal lines for the unit. The caller
// bounds the call through ctx.
func (j *Journal) TailUnit(ctx context.Context, unit string, n int) ([]string, error) {
	out, err := exec.CommandContext(ctx,
		"journalctl", "-u", unit, "-n", strconv.Itoa(n), "--no-pager").Output()
	if err != nil {
		return nil, fmt.Errorf("journalctl -u %s: %w", unit, err)
	}

	raw := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
