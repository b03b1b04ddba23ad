package sidecar

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatstack/chatpanel/internal/config"
)

func writeScript(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	script := "#!/bin/bash\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "pgadmin4"), []byte(script), 0o755))
}

func TestManager_DetectsServedURL(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, `echo "pgAdmin 4 running at: http://127.0.0.1:5050/browser"`)

	m := NewManager(config.SidecarConfig{
		Enabled: true,
		Dir:     dir,
		Command: "bin/pgadmin4",
	}, time.Second, zap.NewNop())

	var mu sync.Mutex
	var ups []string
	m.OnStatus(func(running bool, url string) {
		mu.Lock()
		defer mu.Unlock()
		if running {
			ups = append(ups, url)
		}
	})

	require.NoError(t, m.Start())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ups) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"http://127.0.0.1:5050/browser"}, ups)
}

func TestManager_DefaultURLWhenLineHasNoAddress(t *testing.T) {
	m := NewManager(config.SidecarConfig{Enabled: true}, time.Second, zap.NewNop())

	var got string
	m.OnStatus(func(running bool, url string) {
		if running {
			got = url
		}
	})

	m.detectURL("serving on localhost")
	assert.Equal(t, defaultURL, got)
	assert.Equal(t, defaultURL, m.URL())
}

func TestManager_IgnoresUnrelatedOutput(t *testing.T) {
	m := NewManager(config.SidecarConfig{Enabled: true}, time.Second, zap.NewNop())

	fired := false
	m.OnStatus(func(bool, string) { fired = true })

	m.detectURL("loading extensions")
	m.detectURL("see https://example.com/docs for help")
	assert.False(t, fired)
	assert.Empty(t, m.URL())
}

func TestManager_MissingInstallNoticedOnce(t *testing.T) {
	m := NewManager(config.SidecarConfig{
		Enabled: true,
		Dir:     t.TempDir(),
		Command: "bin/pgadmin4",
	}, time.Second, zap.NewNop())

	var notices []string
	m.OnOutput(func(line string) { notices = append(notices, line) })

	assert.Error(t, m.Start())
	assert.Error(t, m.Start())
	assert.Len(t, notices, 1)
}

func TestManager_DisabledIsNoop(t *testing.T) {
	m := NewManager(config.SidecarConfig{Enabled: false}, time.Second, zap.NewNop())
	require.NoError(t, m.Start())
	assert.False(t, m.Running())
}

func TestManager_URLClearedOnExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, `echo "up at http://127.0.0.1:5050"`)

	m := NewManager(config.SidecarConfig{
		Enabled: true,
		Dir:     dir,
		Command: "bin/pgadmin4",
	}, time.Second, zap.NewNop())

	var mu sync.Mutex
	var downs int
	m.OnStatus(func(running bool, _ string) {
		mu.Lock()
		defer mu.Unlock()
		if !running {
			downs++
		}
	})

	require.NoError(t, m.Start())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return downs > 0
	})
	assert.Empty(t, m.URL())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
