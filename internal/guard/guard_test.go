package guard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func pidfilePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bot.pid")
}

func TestAcquireFreshLock(t *testing.T) {
	path := pidfilePath(t)
	g := NewWithProbe(path, 100, func(int) bool { return false })

	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading pidfile: %v", err)
	}
	if strings.TrimSpace(string(data)) != "100" {
		t.Errorf("pidfile = %q", data)
	}
}

func TestAcquireFreshLockCreatesExclusively(t *testing.T) {
	path := pidfilePath(t)
	probed := false
	g := NewWithProbe(path, 100, func(int) bool {
		probed = true
		return false
	})

	// With no pidfile the lock is taken by exclusive create alone, so
	// two racing starters cannot both pass a read check and then write.
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if probed {
		t.Error("liveness probe consulted with no pidfile present")
	}
}

func TestAcquireDeniedWhenHolderAlive(t *testing.T) {
	path := pidfilePath(t)
	if err := os.WriteFile(path, []byte("200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewWithProbe(path, 100, func(pid int) bool { return pid == 200 })
	err := g.Acquire(context.Background())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("want ErrAlreadyRunning, got %v", err)
	}

	// The live holder's pidfile must be untouched.
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "200" {
		t.Errorf("pidfile overwritten: %q", data)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	path := pidfilePath(t)
	if err := os.WriteFile(path, []byte("200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewWithProbe(path, 100, func(int) bool { return false })
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "100" {
		t.Errorf("pidfile = %q, want reclaimed by 100", data)
	}
}

func TestAcquireReclaimsCorruptPidfile(t *testing.T) {
	path := pidfilePath(t)
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewWithProbe(path, 100, func(int) bool { return true })
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestReleaseRemovesOwnLock(t *testing.T) {
	path := pidfilePath(t)
	g := NewWithProbe(path, 100, func(int) bool { return false })
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pidfile should be removed")
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	path := pidfilePath(t)
	g := NewWithProbe(path, 100, func(int) bool { return false })
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Another process reclaimed the lock out from under us.
	if err := os.WriteFile(path, []byte("300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal("foreign pidfile was removed")
	}
	if strings.TrimSpace(string(data)) != "300" {
		t.Errorf("pidfile = %q", data)
	}
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	g := NewWithProbe(pidfilePath(t), 100, func(int) bool { return false })
	if err := g.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestHeartbeat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	h := NewHeartbeat(path)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := h.Beat(now); err != nil {
		t.Fatalf("Beat: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading heartbeat: %v", err)
	}
	if !strings.Contains(string(data), "2026-03-01T12:00:00Z") {
		t.Errorf("heartbeat = %s", data)
	}
}
