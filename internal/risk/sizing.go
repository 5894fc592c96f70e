package risk

import (
	"math"
	"sync"

	"github.com/baguette88/polymarket-trading-bot/internal/config"
)

// SizerConfig selects the position sizing method.
type SizerConfig struct {
	Mode            string // "fixed", "percent", "kelly"
	BaseBet         float64
	MinBet          float64
	MaxBet          float64
	BankrollPercent float64
	DefaultWinRate  float64
}

func SizerConfigFrom(cfg *config.Config) SizerConfig {
	return SizerConfig{
		Mode:            cfg.Sizing.Mode,
		BaseBet:         cfg.Sizing.BaseBet,
		MinBet:          cfg.Sizing.MinBet,
		MaxBet:          cfg.Sizing.MaxBet,
		BankrollPercent: cfg.Sizing.BankrollPercent,
		DefaultWinRate:  cfg.Sizing.DefaultWinRate,
	}
}

// Sizer computes dollar position sizes and tracks consecutive losses
// for the size-reduction rule.
type Sizer struct {
	cfg SizerConfig

	mu                sync.Mutex
	consecutiveLosses int
}

func NewSizer(cfg SizerConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// PositionSize returns the dollar amount to bet for an entry at the
// given price. Bankroll is only consulted by the percent and kelly
// modes; pass 0 when unknown to fall back to the base bet.
func (s *Sizer) PositionSize(entryPrice, bankroll float64) float64 {
	var size float64
	switch {
	case s.cfg.Mode == "fixed":
		size = s.fixedSize(entryPrice)
	case s.cfg.Mode == "percent" && bankroll > 0:
		size = bankroll * s.cfg.BankrollPercent
	case s.cfg.Mode == "kelly" && bankroll > 0:
		size = s.kellySize(bankroll, s.cfg.DefaultWinRate, entryPrice)
	default:
		size = s.cfg.BaseBet
	}

	size = math.Max(s.cfg.MinBet, math.Min(s.cfg.MaxBet, size))

	s.mu.Lock()
	losses := s.consecutiveLosses
	s.mu.Unlock()
	if losses >= 3 {
		size *= math.Pow(0.5, float64(losses-2))
	}

	return math.Round(size*100) / 100
}

// fixedSize leans into cheap entries, where the payoff asymmetry is
// largest.
func (s *Sizer) fixedSize(entryPrice float64) float64 {
	switch {
	case entryPrice < 0.40:
		return s.cfg.BaseBet * 1.5
	case entryPrice < 0.50:
		return s.cfg.BaseBet
	case entryPrice < 0.55:
		return s.cfg.BaseBet * 0.75
	default:
		return s.cfg.BaseBet * 0.5
	}
}

// kellySize is the half-Kelly criterion for binary markets:
// f* = (bp - q) / b with b the net odds at the entry price. Capped at
// 10% of bankroll regardless.
func (s *Sizer) kellySize(bankroll, winRate, entryPrice float64) float64 {
	if winRate <= 0.5 || entryPrice <= 0 || entryPrice >= 1 {
		return s.cfg.MinBet
	}

	b := (1.0 - entryPrice) / entryPrice
	p := winRate
	q := 1 - p

	kellyFull := (b*p - q) / b
	if kellyFull <= 0 {
		return s.cfg.MinBet
	}

	bet := kellyFull * 0.5 * bankroll
	return math.Min(bet, bankroll*0.10)
}

// RecordResult feeds a resolution outcome into the consecutive-loss
// tracker.
func (s *Sizer) RecordResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result == "loss" {
		s.consecutiveLosses++
	} else {
		s.consecutiveLosses = 0
	}
}

func (s *Sizer) ConsecutiveLosses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveLosses
}

// Paused reports whether new entries should pause after too many
// consecutive losses. Unlike the kill switch this clears on the next
// win.
func (s *Sizer) Paused(maxConsecutiveLosses int) bool {
	if maxConsecutiveLosses <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveLosses >= maxConsecutiveLosses
}
