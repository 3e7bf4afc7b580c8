package radio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// pipeDrainDelay bounds how long Wait keeps reading stderr after the
// transcoder has exited.
const pipeDrainDelay = 2 * time.Second

// LaunchSpec describes one transcoder run for a (channel, quality) slot.
type LaunchSpec struct {
	Channel ChannelID
	Quality QualityID
	RunID   string
	Args    []string
}

// Launcher starts transcoder processes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// Process is a running transcoder owned by one supervisor rotation slot.
type Process interface {
	PID() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Err is the exit error; only meaningful after Done is closed.
	Err() error
	// Stop asks the process to exit with SIGTERM and waits up to timeout
	// before killing it. forced reports whether the kill was needed. Stop
	// is safe to call more than once and after the process has exited.
	Stop(timeout time.Duration) (forced bool, err error)
}

// ExecLauncher runs the transcoder binary at Path.
type ExecLauncher struct {
	Path string
	Log  *slog.Logger
}

// NewExecLauncher returns a Launcher for the binary at path.
func NewExecLauncher(path string, log *slog.Logger) *ExecLauncher {
	return &ExecLauncher{Path: path, Log: log}
}

// Launch starts the process and returns without waiting for it.
func (l *ExecLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := l.Log.With(
		slog.String("channel", string(spec.Channel)),
		slog.String("quality", string(spec.Quality)),
		slog.String("run_id", spec.RunID),
	)

	cmd := exec.Command(l.Path, spec.Args...)
	cmd.Stderr = &lineLogger{log: log}
	cmd.WaitDelay = pipeDrainDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.Path, err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go p.reap()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error

	stopOnce sync.Once
	forced   bool
	stopErr  error
}

func (p *execProcess) reap() {
	p.err = p.cmd.Wait()
	close(p.done)
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *execProcess) Stop(timeout time.Duration) (bool, error) {
	p.stopOnce.Do(func() {
		p.forced, p.stopErr = p.stop(timeout)
	})
	return p.forced, p.stopErr
}

func (p *execProcess) stop(timeout time.Duration) (bool, error) {
	select {
	case <-p.done:
		return false, nil
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return false, fmt.Errorf("terminate pid %d: %w", p.PID(), err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return false, nil
	case <-timer.C:
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return true, fmt.Errorf("kill pid %d: %w", p.PID(), err)
	}
	<-p.done
	return true, nil
}

// maxLogLine caps a buffered stderr line.
const maxLogLine = 4096

// lineLogger turns the transcoder's stderr into one warn record per line.
type lineLogger struct {
	log *slog.Logger
	buf []byte
}

func (w *lineLogger) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > maxLogLine {
		w.emit(w.buf)
		w.buf = w.buf[:0]
	}
	return len(b), nil
}

func (w *lineLogger) emit(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	w.log.Warn("transcoder output", slog.String("line", string(line)))
}
