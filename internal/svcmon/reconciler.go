package svcmon

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/models"
)

// journalTimeout bounds the one-shot journal tail issued on a transition
// edge; it is longer than the per-query timeout because journalctl can be
// slow on first access.
const journalTimeout = 5 * time.Second

// Reconciler evaluates the tracked-service set on a fixed interval and
// publishes one ServiceRecord per service per tick. All OS access goes
// through the injected capability interfaces; every query is individually
// time-bounded and a failure is contained to that one service's record.
type Reconciler struct {
	cfg       *config.Config
	logger    *zap.Logger
	manager   ServiceManager
	journal   LogSource
	listeners ListenerTable
	procs     ProcessTable

	prev map[string]models.ServiceState
	now  func() time.Time

	onRecord func(models.ServiceRecord)
	onLogs   func(models.LogChunk)
}

// NewReconciler creates a reconciler over the given capability implementations.
func NewReconciler(cfg *config.Config, logger *zap.Logger, manager ServiceManager, journal LogSource, listeners ListenerTable, procs ProcessTable) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		logger:    logger,
		manager:   manager,
		journal:   journal,
		listeners: listeners,
		procs:     procs,
		prev:      make(map[string]models.ServiceState),
		now:       time.Now,
	}
}

// OnRecord sets the callback invoked with each published service record.
func (r *Reconciler) OnRecord(fn func(models.ServiceRecord)) { r.onRecord = fn }

// OnLogs sets the callback invoked with journal lines fetched on a
// transition edge.
func (r *Reconciler) OnLogs(fn func(models.LogChunk)) { r.onLogs = fn }

// Run executes the reconciliation loop until the context is cancelled.
// Cancellation is cooperative: it is checked once per loop iteration and the
// in-flight tick completes before the loop exits.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Monitor.ReconcileInterval.Duration)
	defer ticker.Stop()

	r.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Service reconciler stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one full reconciliation pass: every systemd unit, then every
// external process, in configuration order. One failed query never blocks
// the evaluation of the remaining services.
func (r *Reconciler) Tick(ctx context.Context) {
	for _, unit := range r.cfg.Services.SystemdUnits {
		rec := r.checkUnit(ctx, unit)
		r.publish(rec)
	}
	for _, ext := range r.cfg.Services.External {
		rec := r.checkExternal(ctx, ext)
		r.publish(rec)
	}
}

func (r *Reconciler) publish(rec models.ServiceRecord) {
	if r.onRecord != nil {
		r.onRecord(rec)
	}
}

// checkUnit queries one systemd unit and builds its record. On the edge into
// active it issues a one-shot journal tail — exactly once per transition,
// never on repeated active observations.
func (r *Reconciler) checkUnit(ctx context.Context, unit string) models.ServiceRecord {
	rec := models.ServiceRecord{
		Name:      unit,
		Kind:      models.KindSystemd,
		State:     models.StateUnknown,
		CheckedAt: r.now(),
	}

	qctx, cancel := context.WithTimeout(ctx, r.cfg.Monitor.QueryTimeout.Duration)
	st, err := r.manager.UnitStatus(qctx, unit)
	cancel()
	if err != nil {
		r.logger.Debug("Unit status query failed",
			zap.String("unit", unit),
			zap.Error(err))
		r.prev[unit] = rec.State
		return rec
	}

	rec.State = st.State
	rec.PID = st.MainPID

	if Transition(r.prev[unit], rec.State) == ActionFetchLogs {
		r.fetchLogs(ctx, unit)
	}
	r.prev[unit] = rec.State

	if rec.State == models.StateActive && !st.ActiveSince.IsZero() {
		rec.Uptime = FormatUptime(r.now().Sub(st.ActiveSince))
	}

	// Metric read races with process exit; a vanished PID degrades the
	// record to zeroed metrics instead of failing it.
	if rec.PID > 0 {
		qctx, cancel := context.WithTimeout(ctx, r.cfg.Monitor.QueryTimeout.Duration)
		stats, ok, err := r.procs.Stats(qctx, rec.PID)
		cancel()
		if err == nil && ok {
			rec.CPUPercent = stats.CPUPercent
			rec.MemoryRSS = stats.RSS
		}
	}

	return rec
}

// checkExternal scans the listener table for the process's configured port
// and accepts the match only when the owning command line contains the
// expected marker. No journal is attached to external processes; their
// output reaches the log pane through the launcher instead.
func (r *Reconciler) checkExternal(ctx context.Context, ext config.ExternalProcess) models.ServiceRecord {
	rec := models.ServiceRecord{
		Name:      ext.Name,
		Kind:      models.KindExternal,
		State:     models.StateInactive,
		CheckedAt: r.now(),
	}

	qctx, cancel := context.WithTimeout(ctx, r.cfg.Monitor.QueryTimeout.Duration)
	pid, found, err := r.listeners.ListeningPID(qctx, ext.Port)
	cancel()
	if err != nil {
		r.logger.Debug("Listener scan failed",
			zap.String("service", ext.Name),
			zap.Error(err))
		rec.State = models.StateUnknown
		r.prev[ext.Name] = rec.State
		return rec
	}

	if found && pid > 0 {
		qctx, cancel := context.WithTimeout(ctx, r.cfg.Monitor.QueryTimeout.Duration)
		stats, ok, err := r.procs.Stats(qctx, pid)
		cancel()
		// The marker check needs the command line; if the process exited
		// between the listener scan and the stats read, the match cannot be
		// confirmed and the record stays inactive until the next tick.
		if err == nil && ok && strings.Contains(strings.ToLower(stats.Cmdline), strings.ToLower(ext.Marker)) {
			rec.State = models.StateActive
			rec.PID = pid
			rec.CPUPercent = stats.CPUPercent
			rec.MemoryRSS = stats.RSS
			if !stats.StartedAt.IsZero() {
				rec.Uptime = FormatUptime(r.now().Sub(stats.StartedAt))
			}
		}
	}

	r.prev[ext.Name] = rec.State
	return rec
}

// fetchLogs issues the edge-triggered journal tail for a unit.
func (r *Reconciler) fetchLogs(ctx context.Context, unit string) {
	if r.journal == nil || r.onLogs == nil {
		return
	}

	qctx, cancel := context.WithTimeout(ctx, journalTimeout)
	lines, err := r.journal.TailUnit(qctx, unit, r.cfg.Monitor.JournalLines)
	cancel()
	if err != nil {
		r.logger.Warn("Journal fetch failed",
			zap.String("unit", unit),
			zap.Error(err))
		return
	}

	r.onLogs(models.LogChunk{
		Service:   unit,
		Lines:     lines,
		FetchedAt: r.now(),
	})
}
