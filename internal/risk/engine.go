package risk

import (
	"clob/internal/fixed"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Limits are the order admission limits of a market.
type Limits struct {
	Paused        bool
	MinOrderSize  uint64
	MinOrderPrice uint64
}

// Intent is an order the caller asked to open.
type Intent struct {
	Asset schema.AssetID
	Size  int64
	Price uint64
}

// Engine admits or rejects new orders.
type Engine struct {
	base schema.AssetID
}

// NewEngine creates an engine for a market whose orders are sized in base.
func NewEngine(base schema.AssetID) *Engine {
	return &Engine{base: base}
}

// Evaluate returns nil when the order may rest on the book. Checks run in a
// fixed order so callers always see the same error for the same input.
func (e *Engine) Evaluate(intent Intent, limits Limits) error {
	if limits.Paused {
		return exception.ErrPaused
	}
	if intent.Asset != e.base {
		return exception.ErrInvalidAsset
	}
	if intent.Size == 0 || fixed.Abs(intent.Size) < limits.MinOrderSize {
		return exception.ErrOrderTooSmall
	}
	if intent.Price == 0 || intent.Price < limits.MinOrderPrice {
		return exception.ErrPriceTooLow
	}
	return nil
}
