package interfaces

import (
	"context"

	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// Signaler supplies a trading intent on each cycle. A nil intent means
// no trade this cycle. The engine does not interpret strategy logic,
// only the intent's risk parameters.
type Signaler interface {
	Signal(ctx context.Context) (*types.Intent, error)
}
