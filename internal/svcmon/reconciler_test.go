package svcmon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
	"github.com/chatstack/chatpanel/internal/models"
)

// fakeManager serves scripted unit statuses and records query order.
type fakeManager struct {
	statuses map[string]UnitStatus
	errs     map[string]error
	queried  []string
}

func (f *fakeManager) UnitStatus(_ context.Context, unit string) (UnitStatus, error) {
	f.queried = append(f.queried, unit)
	if err, ok := f.errs[unit]; ok {
		return UnitStatus{}, err
	}
	if st, ok := f.statuses[unit]; ok {
		return st, nil
	}
	return UnitStatus{State: models.StateInactive}, nil
}

// fakeJournal counts tail requests per unit.
type fakeJournal struct {
	tails map[string]int
}

func (f *fakeJournal) TailUnit(_ context.Context, unit string, _ int) ([]string, error) {
	if f.tails == nil {
		f.tails = make(map[string]int)
	}
	f.tails[unit]++
	return []string{"journal line"}, nil
}

// fakeListeners maps port → owning PID.
type fakeListeners struct {
	pids map[uint32]int32
	err  error
}

func (f *fakeListeners) ListeningPID(_ context.Context, port uint32) (int32, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	pid, ok := f.pids[port]
	return pid, ok, nil
}

// fakeProcs maps PID → stats; missing PIDs report ok=false without error.
type fakeProcs struct {
	stats map[int32]ProcStats
}

func (f *fakeProcs) Stats(_ context.Context, pid int32) (ProcStats, bool, error) {
	st, ok := f.stats[pid]
	return st, ok, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Services.SystemdUnits = []string{"mongodb", "postgresql", "meilisearch", "ollama"}
	return cfg
}

func collectRecords(r *Reconciler) map[string]models.ServiceRecord {
	records := make(map[string]models.ServiceRecord)
	r.OnRecord(func(rec models.ServiceRecord) { records[rec.Name] = rec })
	return records
}

func TestTick_FailureContainment(t *testing.T) {
	mgr := &fakeManager{
		statuses: map[string]UnitStatus{
			"postgresql":  {State: models.StateActive, MainPID: 200},
			"meilisearch": {State: models.StateInactive},
			"ollama":      {State: models.StateFailed},
		},
		errs: map[string]error{"mongodb": context.DeadlineExceeded},
	}
	procs := &fakeProcs{stats: map[int32]ProcStats{
		200: {Cmdline: "/usr/bin/postgres", CPUPercent: 3.5, RSS: 1 << 20},
	}}

	r := NewReconciler(testConfig(), zap.NewNop(), mgr, &fakeJournal{}, &fakeListeners{}, procs)
	records := collectRecords(r)
	r.Tick(context.Background())

	// The timeout on mongodb must not block the sibling queries.
	require.Len(t, records, 6)
	assert.Equal(t, models.StateUnknown, records["mongodb"].State)
	assert.Zero(t, records["mongodb"].CPUPercent)
	assert.Equal(t, models.StateActive, records["postgresql"].State)
	assert.Equal(t, models.StateInactive, records["meilisearch"].State)
	assert.Equal(t, models.StateFailed, records["ollama"].State)
	assert.Equal(t, []string{"mongodb", "postgresql", "meilisearch", "ollama"}, mgr.queried)
}

func TestTick_ActiveRecordCarriesPIDAndMetrics(t *testing.T) {
	start := time.Now().Add(-90 * time.Minute)
	mgr := &fakeManager{statuses: map[string]UnitStatus{
		"mongodb": {State: models.StateActive, MainPID: 42, ActiveSince: start},
	}}
	procs := &fakeProcs{stats: map[int32]ProcStats{
		42: {Cmdline: "/usr/bin/mongod", CPUPercent: 12.5, RSS: 256 << 20},
	}}

	r := NewReconciler(testConfig(), zap.NewNop(), mgr, &fakeJournal{}, &fakeListeners{}, procs)
	records := collectRecords(r)
	r.Tick(context.Background())

	rec := records["mongodb"]
	assert.Equal(t, models.StateActive, rec.State)
	assert.Equal(t, int32(42), rec.PID)
	assert.Equal(t, 12.5, rec.CPUPercent)
	assert.Equal(t, uint64(256<<20), rec.MemoryRSS)
	assert.Equal(t, "1h 30m", rec.Uptime)
}

func TestTick_PIDRaceDegradesMetrics(t *testing.T) {
	mgr := &fakeManager{statuses: map[string]UnitStatus{
		"mongodb": {State: models.StateActive, MainPID: 42, ActiveSince: time.Now().Add(-time.Hour)},
	}}
	// PID 42 vanished between the status query and the metric read.
	procs := &fakeProcs{stats: map[int32]ProcStats{}}

	r := NewReconciler(testConfig(), zap.NewNop(), mgr, &fakeJournal{}, &fakeListeners{}, procs)
	records := collectRecords(r)
	r.Tick(context.Background())

	rec := records["mongodb"]
	assert.Equal(t, models.StateActive, rec.State)
	assert.Equal(t, int32(42), rec.PID)
	assert.Zero(t, rec.CPUPercent)
	assert.Zero(t, rec.MemoryRSS)
}

func TestTick_EdgeTriggeredJournalFetch(t *testing.T) {
	mgr := &fakeManager{statuses: map[string]UnitStatus{
		"mongodb": {State: models.StateInactive},
	}}
	journal := &fakeJournal{}

	r := NewReconciler(testConfig(), zap.NewNop(), mgr, journal, &fakeListeners{}, &fakeProcs{})
	var chunks []models.LogChunk
	r.OnRecord(func(models.ServiceRecord) {})
	r.OnLogs(func(c models.LogChunk) { chunks = append(chunks, c) })

	// tick1: inactive
	r.Tick(context.Background())
	assert.Equal(t, 0, journal.tails["mongodb"])

	// tick2: active → exactly one fetch
	mgr.statuses["mongodb"] = UnitStatus{State: models.StateActive, MainPID: 7, ActiveSince: time.Now()}
	r.Tick(context.Background())
	assert.Equal(t, 1, journal.tails["mongodb"])

	// tick3: still active → no additional fetch
	r.Tick(context.Background())
	assert.Equal(t, 1, journal.tails["mongodb"])

	// tick4: inactive, tick5: active → one more fetch (cumulative 2)
	mgr.statuses["mongodb"] = UnitStatus{State: models.StateInactive}
	r.Tick(context.Background())
	mgr.statuses["mongodb"] = UnitStatus{State: models.StateActive, MainPID: 7, ActiveSince: time.Now()}
	r.Tick(context.Background())
	assert.Equal(t, 2, journal.tails["mongodb"])

	require.Len(t, chunks, 2)
	assert.Equal(t, "mongodb", chunks[0].Service)
	assert.Equal(t, []string{"journal line"}, chunks[0].Lines)
}

func TestTick_PortMatchRequiresMarker(t *testing.T) {
	// A listener on 8000 owned by a non-uvicorn process must not be
	// classified as rag_api.
	listeners := &fakeListeners{pids: map[uint32]int32{8000: 900}}
	procs := &fakeProcs{stats: map[int32]ProcStats{
		900: {Cmdline: "/usr/bin/python3 -m http.server 8000"},
	}}

	r := NewReconciler(testConfig(), zap.NewNop(), &fakeManager{}, &fakeJournal{}, listeners, procs)
	records := collectRecords(r)
	r.Tick(context.Background())

	rec := records["rag_api"]
	assert.Equal(t, models.StateInactive, rec.State)
	assert.Zero(t, rec.PID)
}

func TestTick_PortMatchWithMarkerIsActive(t *testing.T) {
	started := time.Now().Add(-25 * time.Hour)
	listeners := &fakeListeners{pids: map[uint32]int32{8000: 901, 3080: 902}}
	procs := &fakeProcs{stats: map[int32]ProcStats{
		901: {Cmdline: "python Uvicorn main:app --port 8000", CPUPercent: 2.5, RSS: 64 << 20, StartedAt: started},
		902: {Cmdline: "node /home/u/.local/src/LibreChat/api/server", CPUPercent: 1.0, RSS: 128 << 20, StartedAt: time.Now().Add(-45 * time.Second)},
	}}

	r := NewReconciler(testConfig(), zap.NewNop(), &fakeManager{}, &fakeJournal{}, listeners, procs)
	records := collectRecords(r)
	r.Tick(context.Background())

	rag := records["rag_api"]
	assert.Equal(t, models.StateActive, rag.State, "marker match is case-insensitive")
	assert.Equal(t, int32(901), rag.PID)
	assert.Equal(t, "1d 1h", rag.Uptime)

	chat := records["librechat"]
	assert.Equal(t, models.StateActive, chat.State)
	assert.Equal(t, int32(902), chat.PID)
	assert.Equal(t, "0m", chat.Uptime)
}

func TestTick_ListenerScanFailureIsUnknown(t *testing.T) {
	listeners := &fakeListeners{err: errors.New("proc table unreadable")}

	r := NewReconciler(testConfig(), zap.NewNop(), &fakeManager{}, &fakeJournal{}, listeners, &fakeProcs{})
	records := collectRecords(r)
	r.Tick(context.Background())

	assert.Equal(t, models.StateUnknown, records["librechat"].State)
	assert.Equal(t, models.StateUnknown, records["rag_api"].State)
}

func TestTick_NoJournalFetchForExternalServices(t *testing.T) {
	// librechat transitions inactive → active; the journal must stay quiet
	// because external processes surface logs through the launcher instead.
	listeners := &fakeListeners{pids: map[uint32]int32{}}
	procs := &fakeProcs{stats: map[int32]ProcStats{
		902: {Cmdline: "node server", StartedAt: time.Now()},
	}}
	journal := &fakeJournal{}

	r := NewReconciler(testConfig(), zap.NewNop(), &fakeManager{}, journal, listeners, procs)
	r.OnRecord(func(models.ServiceRecord) {})
	r.OnLogs(func(models.LogChunk) {})

	r.Tick(context.Background())
	listeners.pids[3080] = 902
	r.Tick(context.Background())

	assert.Empty(t, journal.tails)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.ReconcileInterval = config.Duration{Duration: 10 * time.Millisecond}

	r := NewReconciler(cfg, zap.NewNop(), &fakeManager{}, &fakeJournal{}, &fakeListeners{}, &fakeProcs{})
	r.OnRecord(func(models.ServiceRecord) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after cancellation")
	}
}
