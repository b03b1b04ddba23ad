package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// escalationTimeout covers the polkit prompt plus the unit operations.
const escalationTimeout = 30 * time.Second

// Escalator starts and stops systemd units through pkexec. All units of one
// request are chained into a single shell invocation so the operator sees
// exactly one authentication prompt per batch.
type Escalator struct {
	logger *zap.Logger
}

// NewEscalator creates a pkexec-backed unit controller.
func NewEscalator(logger *zap.Logger) *Escalator {
	return &Escalator{logger: logger}
}

// StartUnits starts the given units in order under one elevation prompt.
func (e *Escalator) StartUnits(ctx context.Context, units []string) error {
	return e.run(ctx, "start", units)
}

// StopUnits stops the given units in order under one elevation prompt.
func (e *Escalator) StopUnits(ctx context.Context, units []string) error {
	return e.run(ctx, "stop", units)
}

func (e *Escalator) run(ctx context.Context, verb string, units []string) error {
	if len(units) == 0 {
		return nil
	}

	cmds := make([]string, len(units))
	for i, u := range units {
		cmds[i] = fmt.Sprintf("systemctl %s %s", verb, u)
	}
	script := strings.Join(cmds, " && ")

	e.logger.Info("Requesting privileged unit operation",
		zap.String("verb", verb),
		zap.Strings("units", units))

	runCtx, cancel := context.WithTimeout(ctx, escalationTimeout)
	defer cancel()

	out, err := exec.CommandContext(runCtx, "pkexec", "bash", "-c", script).CombinedOutput()
	if err != nil {
		// Denial or failure is surfaced to the caller once; poller state is
		// untouched and the next tick reports whatever systemd says.
		return fmt.Errorf("pkexec systemctl %s failed: %w (%s)", verb, err, strings.TrimSpace(string(out)))
	}
	return nil
}
