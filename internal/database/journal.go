package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// TradeRecord is an open position as stored in the journal
type TradeRecord struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Direction      model.Direction `json:"direction"`
	EntryPrice     float64         `json:"entry_price"`
	StopLoss       float64         `json:"stop_loss"`
	TakeProfit     float64         `json:"take_profit"`
	PositionSize   float64         `json:"position_size"`
	AccountBalance float64         `json:"account_balance"`
	OpenedAt       time.Time       `json:"opened_at"`
}

// Context converts the record into the trade manager's input at the given time
func (t TradeRecord) Context(now time.Time) model.OpenTradeContext {
	return model.OpenTradeContext{
		ID:                t.ID,
		Symbol:            t.Symbol,
		EntryPrice:        t.EntryPrice,
		CurrentStopLoss:   t.StopLoss,
		CurrentTakeProfit: t.TakeProfit,
		PositionSize:      t.PositionSize,
		Direction:         t.Direction,
		TimeInTrade:       now.Sub(t.OpenedAt),
		AccountBalance:    t.AccountBalance,
	}
}

// Journal is what the server and monitor need from storage
type Journal interface {
	SaveEvaluation(ctx context.Context, r *model.RiskManagementResult) error
	ListEvaluations(ctx context.Context, symbol string, limit int) ([]model.RiskManagementResult, error)
	OpenTrade(ctx context.Context, t TradeRecord) error
	ListOpenTrades(ctx context.Context) ([]TradeRecord, error)
	ApplyDecision(ctx context.Context, tradeID string, d model.TradeManagementDecision) error
}

var (
	_ Journal = (*DB)(nil)
	_ Journal = (*MemoryJournal)(nil)
)

// MemoryJournal keeps the journal in process, used when no database is configured
type MemoryJournal struct {
	mu          sync.RWMutex
	evaluations []model.RiskManagementResult
	trades      map[string]*TradeRecord
	closed      map[string]bool
	decisions   map[string][]model.TradeManagementDecision
}

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		trades:    make(map[string]*TradeRecord),
		closed:    make(map[string]bool),
		decisions: make(map[string][]model.TradeManagementDecision),
	}
}

// SaveEvaluation stores a copy of the result
func (m *MemoryJournal) SaveEvaluation(_ context.Context, r *model.RiskManagementResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, *r)
	return nil
}

// ListEvaluations returns the newest evaluations first
func (m *MemoryJournal) ListEvaluations(_ context.Context, symbol string, limit int) ([]model.RiskManagementResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.RiskManagementResult
	for i := len(m.evaluations) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if symbol == "" || m.evaluations[i].Symbol == symbol {
			out = append(out, m.evaluations[i])
		}
	}
	return out, nil
}

// OpenTrade registers a position
func (m *MemoryJournal) OpenTrade(_ context.Context, t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[t.ID]; ok {
		return fmt.Errorf("trade %s: %w", t.ID, ErrTradeExists)
	}
	m.trades[t.ID] = &t
	return nil
}

// ListOpenTrades returns open positions, oldest first
func (m *MemoryJournal) ListOpenTrades(_ context.Context) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TradeRecord
	for id, t := range m.trades {
		if !m.closed[id] {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out, nil
}

// ApplyDecision mirrors DB.ApplyDecision
func (m *MemoryJournal) ApplyDecision(_ context.Context, tradeID string, d model.TradeManagementDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trades[tradeID]
	if !ok {
		return fmt.Errorf("trade %s: %w", tradeID, ErrNotFound)
	}
	m.decisions[tradeID] = append(m.decisions[tradeID], d)

	switch {
	case d.Action == model.ActionAdjustStop && d.NewStopLoss != nil:
		t.StopLoss = *d.NewStopLoss
	case d.Action == model.ActionAdjustTarget && d.NewTakeProfit != nil:
		t.TakeProfit = *d.NewTakeProfit
	case d.Action == model.ActionPartialClose && d.ClosePercentage != nil:
		t.PositionSize *= 1 - *d.ClosePercentage/100
	case d.Action == model.ActionFullClose:
		m.closed[tradeID] = true
	}
	return nil
}

// Decisions returns the decisions recorded for a trade
func (m *MemoryJournal) Decisions(tradeID string) []model.TradeManagementDecision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.TradeManagementDecision(nil), m.decisions[tradeID]...)
}
