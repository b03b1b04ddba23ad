package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/bus"
	"github.com/chatstack/chatpanel/internal/collector"
	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/dashboard"
	"github.com/chatstack/chatpanel/internal/launcher"
	"github.com/chatstack/chatpanel/internal/logstore"
	"github.com/chatstack/chatpanel/internal/models"
	"github.com/chatstack/chatpanel/internal/proctable"
	"github.com/chatstack/chatpanel/internal/sidecar"
	"github.com/chatstack/chatpanel/internal/svcmon"
	"github.com/chatstack/chatpanel/internal/sysmon"
	"github.com/chatstack/chatpanel/internal/systemd"
)

// runPanel wires the pollers, the supervisor, and optionally the dashboard,
// then blocks until shutdown. Shutdown is two-phase: cancel the context so
// both pollers drain, then join the supervisor so launched children get the
// graceful stop.
func runPanel(cfg *config.Config, withTUI bool) error {
	logger := initLogger(cfg, !withTUI)
	defer logger.Sync()

	logger.Info("Starting chatpanel",
		zap.String("version", version),
		zap.String("chat_url", cfg.Panel.ChatURL))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := logstore.New(config.ExpandHome(cfg.LogStore.Dir), cfg.LogStore.MaxSizeMB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize log store", zap.Error(err))
	}

	b := bus.New()

	// Resource sampler.
	registry := collector.NewRegistry(logger)
	registry.Register(collector.NewCPUCollector(cfg.Monitor.SampleInterval.Duration))
	registry.Register(collector.NewMemoryCollector())
	registry.Register(collector.NewRootDiskCollector("/"))

	sampler := sysmon.New(registry, cfg, logger)
	sampler.OnSnapshot(b.PublishResource)

	// Service reconciler over systemd and the process table.
	manager, err := systemd.NewManager(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to systemd", zap.Error(err))
	}
	defer manager.Close()

	table := proctable.New()
	rec := svcmon.NewReconciler(cfg, logger, manager, systemd.NewJournal(), table, table)
	rec.OnRecord(b.PublishService)
	rec.OnLogs(func(chunk models.LogChunk) {
		if err := store.Append(chunk); err != nil {
			logger.Warn("Failed to persist log chunk", zap.Error(err))
		}
		b.PublishLogs(chunk)
	})

	// Launch supervisor: privileged unit control plus external processes.
	recorder := newLaunchRecorder(store, logger)
	sup := launcher.NewSupervisor(cfg, logger, systemd.NewEscalator(logger), launcher.NewAdoptedStopper(logger))
	sup.OnEvent(func(ev models.LaunchEvent) {
		recorder.record(ev)
		b.PublishLaunch(ev)
	})

	pgadmin := sidecar.NewManager(cfg.Panel.PgAdmin, cfg.Panel.StopGrace.Duration, logger)
	pgadmin.OnOutput(func(line string) {
		b.PublishLaunch(models.LaunchEvent{
			Service: "pgadmin",
			Type:    models.LaunchOutput,
			Line:    line,
			Time:    time.Now(),
		})
	})
	pgadmin.OnStatus(func(running bool, url string) {
		if running {
			logger.Info("pgAdmin up", zap.String("url", url))
		} else {
			logger.Info("pgAdmin stopped")
		}
	})
	if cfg.Panel.PgAdmin.Enabled {
		if err := pgadmin.Start(); err != nil {
			logger.Warn("pgAdmin unavailable", zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sampler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		rec.Run(ctx)
	}()

	if withTUI {
		runDashboard(ctx, cancel, cfg, sup, store, b, logger)
	} else {
		runHeadless(ctx, b, logger)
	}

	// Phase one: stop the pollers.
	cancel()
	wg.Wait()

	// Phase two: stop everything the panel launched.
	pgadmin.Stop()
	sup.Shutdown()

	logger.Info("chatpanel stopped")
	return nil
}

// runDashboard blocks inside the bubbletea program until the user quits or
// the context is cancelled.
func runDashboard(ctx context.Context, cancel context.CancelFunc, cfg *config.Config,
	sup *launcher.Supervisor, store *logstore.Store, b *bus.Bus, logger *zap.Logger) {

	host := probeHost(ctx, logger)
	model := dashboard.New(cfg, sup, host, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	ch := b.Subscribe(256)
	go dashboard.Pump(ctx, program, ch)

	// Replay persisted journal chunks so the log pane survives restarts.
	go func() {
		chunks, err := store.LoadAll()
		if err != nil {
			logger.Warn("Failed to load persisted logs", zap.Error(err))
			return
		}
		for _, chunk := range chunks {
			program.Send(dashboard.LogsMsg(chunk))
		}
	}()

	// Cancellation from outside (signal) must also tear the UI down.
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		logger.Error("Dashboard failed", zap.Error(err))
	}
	cancel()
}

// runHeadless logs bus traffic until the context is cancelled.
func runHeadless(ctx context.Context, b *bus.Bus, logger *zap.Logger) {
	ch := b.Subscribe(256)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ch:
			switch {
			case m.Resource != nil:
				logger.Info("Resources",
					zap.Float64("cpu", m.Resource.CPUPercent),
					zap.Float64("ram", m.Resource.RAMPercent),
					zap.Float64("disk", m.Resource.DiskPercent))
			case m.Service != nil:
				logger.Info("Service",
					zap.String("name", m.Service.Name),
					zap.String("state", string(m.Service.State)),
					zap.Int32("pid", m.Service.PID),
					zap.String("uptime", m.Service.Uptime))
			case m.Logs != nil:
				logger.Info("Journal fetched",
					zap.String("service", m.Logs.Service),
					zap.Int("lines", len(m.Logs.Lines)))
			case m.Launch != nil:
				logger.Info("Launch event",
					zap.String("service", m.Launch.Service),
					zap.String("type", string(m.Launch.Type)),
					zap.String("line", m.Launch.Line))
			}
		}
	}
}

// probeHost collects the static header data once at startup.
func probeHost(ctx context.Context, logger *zap.Logger) models.HostInfo {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := collector.NewHostInfoCollector().Collect(probeCtx)
	if err != nil {
		logger.Warn("Host info unavailable", zap.Error(err))
		return models.HostInfo{}
	}
	host, _ := v.(models.HostInfo)
	return host
}

// launchRecorder accumulates launcher output per service and persists one
// chunk when the process finishes, so launch output survives restarts
// alongside the journal chunks.
type launchRecorder struct {
	store  *logstore.Store
	logger *zap.Logger

	mu    sync.Mutex
	lines map[string][]string
}

func newLaunchRecorder(store *logstore.Store, logger *zap.Logger) *launchRecorder {
	return &launchRecorder{
		store:  store,
		logger: logger,
		lines:  make(map[string][]string),
	}
}

func (r *launchRecorder) record(ev models.LaunchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case models.LaunchStarted:
		r.lines[ev.Service] = nil
	case models.LaunchOutput:
		r.lines[ev.Service] = append(r.lines[ev.Service], ev.Line)
	case models.LaunchFinished:
		lines := r.lines[ev.Service]
		delete(r.lines, ev.Service)
		if len(lines) == 0 {
			return
		}
		chunk := models.LogChunk{Service: ev.Service, Lines: lines, FetchedAt: time.Now()}
		if err := r.store.Append(chunk); err != nil {
			r.logger.Warn("Failed to persist launch output",
				zap.String("service", ev.Service), zap.Error(err))
		}
	}
}
