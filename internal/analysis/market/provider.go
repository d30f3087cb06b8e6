package market

import (
	"context"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// CandleProvider fetches oldest-first candle history for a symbol
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol, interval string, count int) ([]model.Candle, error)
}
