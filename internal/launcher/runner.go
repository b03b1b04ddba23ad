// Package launcher spawns and supervises the panel-launched processes. A
// Runner owns one long-lived child: it streams the child's output line by
// line and signals distinct started and finished events. Stopping is
// graceful-then-forceful — SIGTERM, a bounded grace period, then SIGKILL.
package launcher

import (
	"bufio"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/chatstack/chatpanel/internal/models"
)

// Runner supervises a single launched process.
type Runner struct {
	service string
	command string
	dir     string
	grace   time.Duration
	logger  *zap.Logger

	onEvent func(models.LaunchEvent)

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	stopped bool
}

// NewRunner creates a runner for the given service. The command runs under
// "bash -lc" in dir; grace bounds the polite-termination window.
func NewRunner(service, command, dir string, grace time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		service: service,
		command: command,
		dir:     dir,
		grace:   grace,
		logger:  logger,
	}
}

// OnEvent sets the callback receiving this runner's lifecycle events.
// Must be set before Start.
func (r *Runner) OnEvent(fn func(models.LaunchEvent)) {
	r.onEvent = fn
}

// Start spawns the child in its own process group and begins streaming its
// combined output. Exactly one started event is emitted on success, followed
// by zero or more output events and exactly one finished event.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := exec.Command("bash", "-lc", r.command)
	cmd.Dir = r.dir
	// The child gets its own process group so bash's own children (npm,
	// uvicorn workers) receive the termination signals too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw, err := os.Pipe()
	if err != nil {
		return err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return err
	}
	pw.Close() // parent keeps only the read end

	r.cmd = cmd
	r.done = make(chan struct{})
	r.emit(models.LaunchEvent{Service: r.service, Type: models.LaunchStarted, Time: time.Now()})

	go r.stream(pr)
	return nil
}

// stream reads child output until EOF, then reaps the process and emits the
// finished event.
func (r *Runner) stream(pr *os.File) {
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		r.emit(models.LaunchEvent{
			Service: r.service,
			Type:    models.LaunchOutput,
			Line:    scanner.Text(),
			Time:    time.Now(),
		})
	}
	pr.Close()

	err := r.cmd.Wait()
	code := -1
	if r.cmd.ProcessState != nil {
		code = r.cmd.ProcessState.ExitCode()
	}
	if err != nil {
		r.logger.Debug("Launched process exited",
			zap.String("service", r.service),
			zap.Int("code", code),
			zap.Error(err))
	}

	r.emit(models.LaunchEvent{
		Service:  r.service,
		Type:     models.LaunchFinished,
		ExitCode: code,
		Time:     time.Now(),
	})
	close(r.done)
}

// Stop sends SIGTERM to the process group, waits up to the grace period,
// and escalates to SIGKILL if the child has not exited by the deadline.
// It blocks until the child is fully reaped; the finished event fires
// exactly once regardless of which path ended the process.
func (r *Runner) Stop() {
	r.mu.Lock()
	cmd := r.cmd
	done := r.done
	already := r.stopped
	r.stopped = true
	r.mu.Unlock()

	if cmd == nil || cmd.Process == nil || already {
		if done != nil {
			<-done
		}
		return
	}

	pgid := cmd.Process.Pid
	_ = unix.Kill(-pgid, unix.SIGTERM)

	select {
	case <-done:
	case <-time.After(r.grace):
		r.logger.Warn("Grace period expired, killing process group",
			zap.String("service", r.service))
		_ = unix.Kill(-pgid, unix.SIGKILL)
		<-done
	}
}

// Done returns a channel closed once the child has been reaped.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Running reports whether the child has started and not yet exited.
func (r *Runner) Running() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (r *Runner) emit(ev models.LaunchEvent) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}
