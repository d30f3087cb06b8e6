package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// ErrNotFound is returned when a journal row does not exist
var ErrNotFound = errors.New("not found")

// ErrTradeExists is returned when a trade ID is already journaled
var ErrTradeExists = errors.New("trade already exists")

// TradeStatusOpen and TradeStatusClosed are the open_trades.status values
const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)
	return Open(connStr)
}

// Open connects with a ready DSN, pings and creates the journal tables
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS risk_evaluations (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			position_size DOUBLE PRECISION NOT NULL,
			risk_reward DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			advisor_used BOOLEAN NOT NULL DEFAULT FALSE,
			fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
			warnings TEXT[],
			result JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS risk_evaluations_symbol_idx ON risk_evaluations (symbol, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS open_trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit DOUBLE PRECISION NOT NULL,
			position_size DOUBLE PRECISION NOT NULL,
			account_balance DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			opened_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trade_decisions (
			id BIGSERIAL PRIMARY KEY,
			trade_id TEXT NOT NULL,
			action TEXT NOT NULL,
			new_stop_loss DOUBLE PRECISION,
			new_take_profit DOUBLE PRECISION,
			close_percentage DOUBLE PRECISION,
			confidence DOUBLE PRECISION NOT NULL,
			urgency TEXT NOT NULL,
			reasoning TEXT,
			pnl_percent DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// SaveEvaluation stores a risk evaluation with its full JSON payload
func (db *DB) SaveEvaluation(ctx context.Context, r *model.RiskManagementResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding evaluation: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO risk_evaluations (
			id, symbol, timeframe, direction, entry_price, stop_loss, take_profit,
			position_size, risk_reward, confidence, advisor_used, fallback_used,
			warnings, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.Symbol, r.Timeframe, string(r.Direction), r.EntryPrice, r.StopLoss, r.TakeProfit,
		r.PositionSize, r.RiskRewardRatio, r.Confidence, r.AdvisorUsed, r.FallbackUsed,
		pq.Array(r.Warnings), payload, r.CreatedAt)

	return err
}

// ListEvaluations returns the newest evaluations, optionally filtered by symbol
func (db *DB) ListEvaluations(ctx context.Context, symbol string, limit int) ([]model.RiskManagementResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT result
		FROM risk_evaluations
		WHERE $1 = '' OR symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.RiskManagementResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.RiskManagementResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decoding evaluation: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// OpenTrade registers a position for monitoring
func (db *DB) OpenTrade(ctx context.Context, t TradeRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO open_trades (
			id, symbol, timeframe, direction, entry_price, stop_loss, take_profit,
			position_size, account_balance, status, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.Symbol, t.Timeframe, string(t.Direction), t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.PositionSize, t.AccountBalance, TradeStatusOpen, t.OpenedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("trade %s: %w", t.ID, ErrTradeExists)
	}
	return err
}

// ListOpenTrades returns every position still marked OPEN
func (db *DB) ListOpenTrades(ctx context.Context) ([]TradeRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, symbol, timeframe, direction, entry_price, stop_loss, take_profit,
			position_size, account_balance, opened_at
		FROM open_trades
		WHERE status = $1
		ORDER BY opened_at
	`, TradeStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var direction string
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Timeframe, &direction, &t.EntryPrice, &t.StopLoss,
			&t.TakeProfit, &t.PositionSize, &t.AccountBalance, &t.OpenedAt); err != nil {
			return nil, err
		}
		t.Direction = model.Direction(direction)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ApplyDecision records a decision and updates the stored trade the way the
// executor is expected to: stops and targets move, full closes close the trade
func (db *DB) ApplyDecision(ctx context.Context, tradeID string, d model.TradeManagementDecision) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trade_decisions (
			trade_id, action, new_stop_loss, new_take_profit, close_percentage,
			confidence, urgency, reasoning, pnl_percent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, tradeID, string(d.Action), nullFloat(d.NewStopLoss), nullFloat(d.NewTakeProfit), nullFloat(d.ClosePercentage),
		d.Confidence, string(d.Urgency), d.Reasoning, d.PnLPercent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}

	var res sql.Result
	switch {
	case d.Action == model.ActionAdjustStop && d.NewStopLoss != nil:
		res, err = tx.ExecContext(ctx, `UPDATE open_trades SET stop_loss = $1 WHERE id = $2`, *d.NewStopLoss, tradeID)
	case d.Action == model.ActionAdjustTarget && d.NewTakeProfit != nil:
		res, err = tx.ExecContext(ctx, `UPDATE open_trades SET take_profit = $1 WHERE id = $2`, *d.NewTakeProfit, tradeID)
	case d.Action == model.ActionPartialClose && d.ClosePercentage != nil:
		res, err = tx.ExecContext(ctx, `UPDATE open_trades SET position_size = position_size * (1 - $1 / 100.0) WHERE id = $2`, *d.ClosePercentage, tradeID)
	case d.Action == model.ActionFullClose:
		res, err = tx.ExecContext(ctx, `UPDATE open_trades SET status = $1 WHERE id = $2`, TradeStatusClosed, tradeID)
	}
	if err != nil {
		return fmt.Errorf("updating trade: %w", err)
	}
	if res != nil {
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("trade %s: %w", tradeID, ErrNotFound)
		}
	}

	return tx.Commit()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
