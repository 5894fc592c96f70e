// Package guard enforces single-instance execution through a pidfile
// lock and writes a liveness heartbeat for external monitoring.
package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/logger"
)

// ErrAlreadyRunning means another live process holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Alive reports whether the given pid belongs to a live process.
// Injectable so tests can simulate stale and live lock holders.
type Alive func(pid int) bool

// processAlive probes with signal 0: no signal is delivered, but
// permission and existence are still checked.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user.
	return errors.Is(err, syscall.EPERM)
}

// Guard is a pidfile-based single-instance lock.
type Guard struct {
	path  string
	pid   int
	alive Alive
	held  bool
}

// New creates a guard for the given pidfile path using the real
// process table for liveness checks.
func New(path string) *Guard {
	return NewWithProbe(path, os.Getpid(), processAlive)
}

// NewWithProbe allows tests to inject the owning pid and liveness probe.
func NewWithProbe(path string, pid int, alive Alive) *Guard {
	return &Guard{path: path, pid: pid, alive: alive}
}

// Acquire takes the lock. The pidfile is created exclusively so two
// racing starters cannot both win; when it already exists, a live
// holder returns ErrAlreadyRunning and an unreadable or stale pidfile
// is reclaimed.
func (g *Guard) Acquire(ctx context.Context) error {
	err := g.createExclusive()
	if err == nil {
		g.held = true
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("writing pidfile: %w", err)
	}

	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Holder released between our create and read; try once more.
			if err := g.createExclusive(); err != nil {
				return fmt.Errorf("writing pidfile: %w", err)
			}
			g.held = true
			return nil
		}
		return fmt.Errorf("reading pidfile: %w", err)
	}

	existing, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if parseErr == nil && existing != g.pid && g.alive(existing) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, existing)
	}
	if parseErr != nil {
		logger.Warn(ctx, "reclaiming corrupt pidfile", "path", g.path)
	} else if existing != g.pid {
		logger.Info(ctx, "reclaiming stale pidfile", "path", g.path, "stale_pid", existing)
	}

	if err := os.WriteFile(g.path, []byte(strconv.Itoa(g.pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing pidfile: %w", err)
	}
	g.held = true
	return nil
}

func (g *Guard) createExclusive() error {
	f, err := os.OpenFile(g.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(g.pid) + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Release removes the pidfile, but only if this process still owns it.
// A lock reclaimed by someone else is left alone.
func (g *Guard) Release() error {
	if !g.held {
		return nil
	}
	g.held = false

	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading pidfile: %w", err)
	}
	owner, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && owner != g.pid {
		return nil
	}
	return os.Remove(g.path)
}

// Heartbeat writes a liveness file with the current time and pid.
// Written atomically so readers never see a partial file.
type Heartbeat struct {
	path string
	pid  int
}

func NewHeartbeat(path string) *Heartbeat {
	return &Heartbeat{path: path, pid: os.Getpid()}
}

func (h *Heartbeat) Beat(now time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"pid":       h.pid,
		"timestamp": now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("writing heartbeat: %w", err)
	}
	return os.Rename(tmp, h.path)
}
