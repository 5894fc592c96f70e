package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// ErrStateCorrupt is returned when the state file exists but cannot be
// decoded. The caller must not continue trading: a silent reset would
// lose audit history and double-spend risk limits.
var ErrStateCorrupt = errors.New("state file corrupt")

// ErrInvalidTransition is returned when a write would move a trade
// backwards (resolved to unresolved, or filled back to pending).
var ErrInvalidTransition = errors.New("invalid trade transition")

var ErrTradeNotFound = errors.New("trade not found")

const stateVersion = 1

type persisted struct {
	Version   int                  `json:"version"`
	Created   time.Time            `json:"created"`
	LastSaved time.Time            `json:"last_saved"`
	Totals    types.AggregateState `json:"totals"`
	Metadata  map[string]string    `json:"metadata,omitempty"`
	Trades    []types.Trade        `json:"trades"`
}

// Store is the single source of truth for trades and aggregate
// counters. All writes are durable before the call returns: the full
// record is written to a temp file and atomically renamed onto the
// canonical path. In-process callers serialize through one mutex;
// cross-process exclusivity is the process guard's job.
type Store struct {
	mu        sync.Mutex
	path      string
	backupDir string
	created   time.Time

	trades []types.Trade
	byID   map[string]int
	byKey  map[string]int
	agg    types.AggregateState
	meta   map[string]string
}

// Open loads the state file at path, creating a fresh default state
// when the file does not exist. A file that exists but cannot be
// decoded fails with ErrStateCorrupt.
func Open(path, backupDir string) (*Store, error) {
	s := &Store{
		path:      path,
		backupDir: backupDir,
		created:   time.Now().UTC(),
		byID:      map[string]int{},
		byKey:     map[string]int{},
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStateCorrupt, path, err)
	}

	var p persisted
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrStateCorrupt, path, err)
	}
	if p.Version != stateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d in %s", ErrStateCorrupt, p.Version, path)
	}

	s.created = p.Created
	s.trades = p.Trades
	s.agg = p.Totals
	s.meta = p.Metadata
	for i, t := range s.trades {
		s.byID[t.ID] = i
		if t.IdempotencyKey != "" {
			s.byKey[t.IdempotencyKey] = i
		}
	}
	s.refreshAggregatesLocked()
	return s, nil
}

// NewTrade builds a pending trade from an intent with a generated ID.
func NewTrade(intent types.Intent, idempotencyKey string) types.Trade {
	return types.Trade{
		ID:             uuid.NewString(),
		IdempotencyKey: idempotencyKey,
		Timestamp:      time.Now().UTC(),
		MarketID:       intent.MarketID,
		TokenID:        intent.TokenID,
		Direction:      intent.Direction,
		Outcome:        intent.Outcome,
		AmountUSD:      intent.AmountUSD,
		Strategy:       intent.Strategy,
		Status:         types.StatusPending,
	}
}

// AppendOrUpdate inserts a new trade or replaces an existing one by
// ID, enforcing the one-way transition invariants, then persists
// durably before returning.
func (s *Store) AppendOrUpdate(t types.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byID[t.ID]; ok {
		prev := s.trades[i]
		if prev.Resolved && !t.Resolved {
			return fmt.Errorf("%w: trade %s cannot become unresolved", ErrInvalidTransition, t.ID)
		}
		if prev.Status == types.StatusFilled && t.Status == types.StatusPending {
			return fmt.Errorf("%w: trade %s cannot return to pending", ErrInvalidTransition, t.ID)
		}
		s.trades[i] = t
	} else {
		s.trades = append(s.trades, t)
		s.byID[t.ID] = len(s.trades) - 1
		if t.IdempotencyKey != "" {
			s.byKey[t.IdempotencyKey] = len(s.trades) - 1
		}
		s.agg.LastMarketID = t.MarketID
		s.agg.LastTradeTime = t.Timestamp
	}

	s.refreshAggregatesLocked()
	return s.saveLocked()
}

// Resolve finalizes a trade's outcome. Profit/loss is rounded to four
// decimal places here and never re-rounded afterwards. Resolving an
// already-resolved trade is a no-op.
func (s *Store) Resolve(tradeID, result string, pnl, exitPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[tradeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	t := &s.trades[i]
	if t.Resolved {
		return nil
	}
	if t.Status != types.StatusFilled {
		return fmt.Errorf("%w: trade %s is %s, only filled trades resolve", ErrInvalidTransition, tradeID, t.Status)
	}

	rounded := roundPnL(pnl)
	now := time.Now().UTC()
	t.Resolved = true
	t.Result = result
	t.PnL = &rounded
	t.ExitPrice = &exitPrice
	t.ResolutionTime = &now

	s.refreshAggregatesLocked()
	return s.saveLocked()
}

// SetLastSignal records the most recent signal for debounce tracking.
func (s *Store) SetLastSignal(signal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg.LastSignal = signal
	return s.saveLocked()
}

// SetMetadata stores a free-form operator annotation (schema notes,
// migration markers) persisted alongside the trades.
func (s *Store) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		s.meta = map[string]string{}
	}
	s.meta[key] = value
	return s.saveLocked()
}

// Metadata returns the annotation stored under key.
func (s *Store) Metadata(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.meta[key]
	return v, ok
}

// RecentTrades returns up to n trades, newest first.
func (s *Store) RecentTrades(n int) []types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.trades) {
		n = len(s.trades)
	}
	out := make([]types.Trade, 0, n)
	for i := len(s.trades) - 1; i >= len(s.trades)-n; i-- {
		out = append(out, s.trades[i])
	}
	return out
}

// FindByIdempotencyKey returns the trade recorded for a prior attempt
// with the same key, if any.
func (s *Store) FindByIdempotencyKey(key string) (types.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byKey[key]; ok {
		return s.trades[i], true
	}
	return types.Trade{}, false
}

// Get returns a trade by ID.
func (s *Store) Get(tradeID string) (types.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[tradeID]; ok {
		return s.trades[i], true
	}
	return types.Trade{}, false
}

// UnresolvedTrades returns all trades still pending resolution.
func (s *Store) UnresolvedTrades() []types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Trade
	for _, t := range s.trades {
		if !t.Resolved {
			out = append(out, t)
		}
	}
	return out
}

// UnresolvedFilled returns filled trades awaiting market resolution.
func (s *Store) UnresolvedFilled() []types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Trade
	for _, t := range s.trades {
		if !t.Resolved && t.Status == types.StatusFilled {
			out = append(out, t)
		}
	}
	return out
}

// OpenPositionCount counts unresolved trades for the position cap.
func (s *Store) OpenPositionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.trades {
		if !t.Resolved {
			n++
		}
	}
	return n
}

// Aggregates returns the cached aggregate counters.
func (s *Store) Aggregates() types.AggregateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg
}

// Snapshot returns a consistent copy of the full state.
func (s *Store) Snapshot() (types.AggregateState, []types.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trades := make([]types.Trade, len(s.trades))
	copy(trades, s.trades)
	return s.agg, trades
}

// Recompute derives the aggregate counters from the trade set alone,
// ignoring the cached copy.
func (s *Store) Recompute() types.AggregateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recomputeFrom(s.trades, s.agg)
}

// VerifyConservation checks that the cached cumulative pnl equals the
// sum over resolved trades. Used as a consistency check after partial
// write recovery.
func (s *Store) VerifyConservation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := recomputeFrom(s.trades, s.agg)
	if math.Abs(fresh.PnL-s.agg.PnL) > 1e-9 {
		return fmt.Errorf("aggregate pnl %.4f does not match recomputed %.4f", s.agg.PnL, fresh.PnL)
	}
	return nil
}

// Backup writes a timestamped copy of the current state.
func (s *Store) Backup(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("state_%s_%s.json", time.Now().UTC().Format("20060102_150405"), reason)
	b, err := json.MarshalIndent(s.persistedLocked(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.backupDir, name), b, 0o644)
}

func (s *Store) refreshAggregatesLocked() {
	s.agg = recomputeFrom(s.trades, s.agg)
}

// recomputeFrom preserves tracking fields (last market, last signal)
// from the previous aggregate; they are not derivable from trades.
func recomputeFrom(trades []types.Trade, prev types.AggregateState) types.AggregateState {
	agg := types.AggregateState{
		LastMarketID:  prev.LastMarketID,
		LastSignal:    prev.LastSignal,
		LastTradeTime: prev.LastTradeTime,
	}
	agg.TotalTrades = len(trades)
	for _, t := range trades {
		if !t.Resolved || t.PnL == nil {
			continue
		}
		agg.PnL += *t.PnL
		if t.Result == "win" {
			agg.Wins++
		} else {
			agg.Losses++
		}
	}
	return agg
}

func (s *Store) persistedLocked() persisted {
	return persisted{
		Version:   stateVersion,
		Created:   s.created,
		LastSaved: time.Now().UTC(),
		Totals:    s.agg,
		Metadata:  s.meta,
		Trades:    s.trades,
	}
}

// saveLocked writes the full record to a temp file in the same
// directory, fsyncs, then renames onto the canonical path. Readers see
// either the old or the new complete state, never a partial one.
func (s *Store) saveLocked() error {
	b, err := json.MarshalIndent(s.persistedLocked(), "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func roundPnL(v float64) float64 {
	return math.Round(v*10000) / 10000
}
