// Package daemon tracks the background API server through a PID file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrAlreadyRunning is returned by Acquire when a live process owns the file.
	ErrAlreadyRunning = errors.New("server already running")
	// ErrNotRunning is returned by Stop when no live process owns the file.
	ErrNotRunning = errors.New("server not running")
)

// PIDFile records the PID of the background server.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile for path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID records pid, creating the parent directory if needed.
func (p *PIDFile) WritePID(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// Acquire records pid unless a live process already owns the file. A
// stale file left by a crashed server is replaced.
func (p *PIDFile) Acquire(pid int) error {
	if running, ok := p.IsRunning(); ok {
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, running)
	}
	return p.WritePID(pid)
}

// Release removes the file if it still names pid.
func (p *PIDFile) Release(pid int) error {
	owner, err := p.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if owner != pid {
		return nil
	}
	return p.Remove()
}

// Stop sends term to the recorded process and waits for it to exit,
// polling every interval. When ctx ends first the process is sent kill.
// The PID file is removed once the process is gone.
func (p *PIDFile) Stop(ctx context.Context, term, kill syscall.Signal, interval time.Duration) error {
	pid, ok := p.IsRunning()
	if !ok {
		if pid != 0 {
			_ = p.Remove()
		}
		return ErrNotRunning
	}
	if err := p.Signal(term); err != nil {
		return fmt.Errorf("signal PID %d: %w", pid, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, alive := p.IsRunning(); !alive {
			_ = p.Remove()
			return nil
		}
		select {
		case <-ctx.Done():
			if err := p.Signal(kill); err != nil {
				return fmt.Errorf("kill PID %d: %w", pid, err)
			}
			_ = p.Remove()
			return nil
		case <-ticker.C:
		}
	}
}
