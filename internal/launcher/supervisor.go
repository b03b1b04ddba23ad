package launcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/models"
)

// UnitController abstracts the privilege-escalation helper that starts and
// stops systemd units in one batched invocation.
type UnitController interface {
	StartUnits(ctx context.Context, units []string) error
	StopUnits(ctx context.Context, units []string) error
}

// PortStopper terminates a process the panel did not launch itself, located
// by its listening port.
type PortStopper interface {
	StopByPort(ctx context.Context, port uint32, grace time.Duration) error
}

// ErrLaunchInFlight is returned when a start is requested for a service
// whose previous launch has not finished yet.
var ErrLaunchInFlight = fmt.Errorf("launch already in flight")

// Supervisor coordinates all launched processes. Each service has at most
// one active runner; a second start is refused until the finished event of
// the first.
type Supervisor struct {
	cfg    *config.Config
	logger *zap.Logger
	units  UnitController
	ports  PortStopper

	// settle delays between the StartEverything stages
	systemdSettle time.Duration
	ragSettle     time.Duration

	mu      sync.Mutex
	runners map[string]*Runner
	noticed map[string]bool

	onEvent func(models.LaunchEvent)
}

// NewSupervisor creates a supervisor over the configured external processes.
func NewSupervisor(cfg *config.Config, logger *zap.Logger, units UnitController, ports PortStopper) *Supervisor {
	return &Supervisor{
		cfg:           cfg,
		logger:        logger,
		units:         units,
		ports:         ports,
		systemdSettle: 2 * time.Second,
		ragSettle:     3 * time.Second,
		runners:       make(map[string]*Runner),
		noticed:       make(map[string]bool),
	}
}

// OnEvent sets the callback receiving launch events from every runner plus
// supervisor notices.
func (s *Supervisor) OnEvent(fn func(models.LaunchEvent)) {
	s.onEvent = fn
}

// InFlight reports whether a launch for the named service is active. The
// dashboard disables the start action while this is true.
func (s *Supervisor) InFlight(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[name]
	return ok && r.Running()
}

// StartProcess launches the named external process. A missing install
// directory is reported once as a notice and the start is refused without
// crashing anything.
func (s *Supervisor) StartProcess(name string) error {
	ext, ok := s.findExternal(name)
	if !ok {
		return fmt.Errorf("unknown external process %q", name)
	}

	s.mu.Lock()
	if r, exists := s.runners[name]; exists && r.Running() {
		s.mu.Unlock()
		return ErrLaunchInFlight
	}
	s.mu.Unlock()

	dir := config.ExpandHome(ext.Dir)
	if _, err := os.Stat(dir); err != nil {
		s.noticeOnce(name, fmt.Sprintf("%s not found at %s; install it first", name, dir))
		return fmt.Errorf("install directory missing: %s", dir)
	}

	runner := NewRunner(name, ext.Command, dir, s.cfg.Panel.StopGrace.Duration, s.logger)
	runner.OnEvent(s.forward)

	s.mu.Lock()
	s.runners[name] = runner
	s.mu.Unlock()

	if err := runner.Start(); err != nil {
		s.mu.Lock()
		delete(s.runners, name)
		s.mu.Unlock()
		s.noticeOnce(name+"/spawn", fmt.Sprintf("failed to start %s: %v", name, err))
		return err
	}

	s.logger.Info("Launched external process", zap.String("service", name))
	return nil
}

// StopProcess stops the named external process: through its runner when the
// panel launched it, otherwise by locating the listener on its configured
// port and applying the same graceful-then-forceful sequence.
func (s *Supervisor) StopProcess(ctx context.Context, name string) error {
	ext, ok := s.findExternal(name)
	if !ok {
		return fmt.Errorf("unknown external process %q", name)
	}

	s.mu.Lock()
	runner, exists := s.runners[name]
	s.mu.Unlock()

	if exists && runner.Running() {
		runner.Stop()
		return nil
	}

	// Adopted process: running but not launched by this panel instance.
	if s.ports != nil {
		return s.ports.StopByPort(ctx, ext.Port, s.cfg.Panel.StopGrace.Duration)
	}
	return nil
}

// StartSystemd starts all tracked units in one batched elevation prompt.
func (s *Supervisor) StartSystemd(ctx context.Context) error {
	if err := s.units.StartUnits(ctx, s.cfg.Services.SystemdUnits); err != nil {
		s.noticeOnce("systemd/start", fmt.Sprintf("starting services failed: %v", err))
		return err
	}
	return nil
}

// StartEverything brings the whole stack up in dependency order: the
// systemd units first, then rag_api, then librechat, with settle delays
// between the stages. The delays honour ctx cancellation.
func (s *Supervisor) StartEverything(ctx context.Context) error {
	if err := s.StartSystemd(ctx); err != nil {
		return err
	}
	if !sleepCtx(ctx, s.systemdSettle) {
		return ctx.Err()
	}
	if err := s.StartProcess("rag_api"); err != nil && err != ErrLaunchInFlight {
		s.logger.Warn("rag_api start failed", zap.Error(err))
	}
	if !sleepCtx(ctx, s.ragSettle) {
		return ctx.Err()
	}
	if err := s.StartProcess("librechat"); err != nil && err != ErrLaunchInFlight {
		s.logger.Warn("librechat start failed", zap.Error(err))
	}
	return nil
}

// StopAll stops the external processes first, then the systemd units in
// reverse order, in one batched elevation prompt.
func (s *Supervisor) StopAll(ctx context.Context) error {
	for _, ext := range s.cfg.Services.External {
		if err := s.StopProcess(ctx, ext.Name); err != nil {
			s.logger.Warn("Stop failed",
				zap.String("service", ext.Name),
				zap.Error(err))
		}
	}

	units := s.cfg.Services.SystemdUnits
	reversed := make([]string, len(units))
	for i, u := range units {
		reversed[len(units)-1-i] = u
	}
	if err := s.units.StopUnits(ctx, reversed); err != nil {
		s.noticeOnce("systemd/stop", fmt.Sprintf("stopping services failed: %v", err))
		return err
	}
	return nil
}

// Shutdown applies the two-phase stop to every live runner and joins them.
// Called during application shutdown after the pollers have stopped.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	live := make([]*Runner, 0, len(s.runners))
	for _, r := range s.runners {
		live = append(live, r)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range live {
		wg.Add(1)
		go func(r *Runner) {
			defer wg.Done()
			r.Stop()
		}(r)
	}
	wg.Wait()
}

func (s *Supervisor) findExternal(name string) (config.ExternalProcess, bool) {
	for _, ext := range s.cfg.Services.External {
		if ext.Name == name {
			return ext, true
		}
	}
	return config.ExternalProcess{}, false
}

// noticeOnce emits a one-time operator-facing notice under the given key.
func (s *Supervisor) noticeOnce(key, message string) {
	s.mu.Lock()
	seen := s.noticed[key]
	s.noticed[key] = true
	s.mu.Unlock()
	if seen {
		return
	}

	s.logger.Warn(message)
	s.forward(models.LaunchEvent{
		Service: key,
		Type:    models.LaunchNotice,
		Line:    message,
		Time:    time.Now(),
	})
}

func (s *Supervisor) forward(ev models.LaunchEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first; it reports whether
// the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
