// Package signal provides the trading-intent sources the engine can
// run with. The engine treats intents as opaque: strategy logic lives
// entirely behind the Signaler interface.
package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/config"
	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// New builds the provider named in config.
func New(cfg *config.Config) (interfaces.Signaler, error) {
	switch cfg.Signal.Provider {
	case "NOOP", "":
		return Noop{}, nil
	case "FIXTURE":
		return NewFixture(), nil
	default:
		return nil, fmt.Errorf("unknown signal provider %q", cfg.Signal.Provider)
	}
}

// Noop never signals. Useful for running the engine purely as a
// reconciliation and monitoring process over existing positions.
type Noop struct{}

func (Noop) Signal(ctx context.Context) (*types.Intent, error) {
	return nil, nil
}

// Fixture replays queued intents, one per cycle. Used in dry runs and
// tests to drive the engine with known decisions.
type Fixture struct {
	mu      sync.Mutex
	pending []types.Intent
}

func NewFixture(intents ...types.Intent) *Fixture {
	return &Fixture{pending: intents}
}

// Push queues an intent for a later cycle.
func (f *Fixture) Push(intent types.Intent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, intent)
}

func (f *Fixture) Signal(ctx context.Context) (*types.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	intent := f.pending[0]
	f.pending = f.pending[1:]
	if intent.DecidedAt.IsZero() {
		intent.DecidedAt = time.Now().UTC()
	}
	return &intent, nil
}
