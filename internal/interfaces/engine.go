package interfaces

import (
	"context"

	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

type Engine interface {
	Cycle(ctx context.Context) (*types.CycleResult, error)
}
