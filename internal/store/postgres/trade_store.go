package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyarb/arbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ domain.TradeStore = (*TradeStore)(nil)

const tradeSelectCols = `id, opportunity_id, market_id,
	buy_order_id, buy_outcome, buy_price,
	sell_order_id, sell_outcome, sell_price,
	quantity, profit_amount, profit_pct, status, executed_at, closed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t        domain.Trade
			quantity float64
		)
		if err := rows.Scan(
			&t.ID, &t.OpportunityID, &t.MarketID,
			&t.Buy.ID, &t.Buy.OutcomeIndex, &t.Buy.Price,
			&t.Sell.ID, &t.Sell.OutcomeIndex, &t.Sell.Price,
			&quantity, &t.ProfitAmount, &t.ProfitPct, &t.Status,
			&t.ExecutedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		t.Buy.MarketID = t.MarketID
		t.Buy.Side = domain.OrderSideBuy
		t.Buy.Quantity = quantity
		t.Buy.TotalCost = t.Buy.Price * quantity
		t.Sell.MarketID = t.MarketID
		t.Sell.Side = domain.OrderSideSell
		t.Sell.Quantity = quantity
		t.Sell.TotalCost = t.Sell.Price * quantity
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Save upserts a trade. The same trade is saved once after execution and once
// after close, so the conflict path refreshes the mutable fields only.
func (s *TradeStore) Save(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, opportunity_id, market_id,
			buy_order_id, buy_outcome, buy_price,
			sell_order_id, sell_outcome, sell_price,
			quantity, profit_amount, profit_pct, status, executed_at, closed_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14, $15
		) ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			profit_amount = EXCLUDED.profit_amount,
			profit_pct = EXCLUDED.profit_pct,
			closed_at = EXCLUDED.closed_at`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.OpportunityID, t.MarketID,
		t.Buy.ID, t.Buy.OutcomeIndex, t.Buy.Price,
		t.Sell.ID, t.Sell.OutcomeIndex, t.Sell.Price,
		t.Buy.Quantity, t.ProfitAmount, t.ProfitPct, string(t.Status),
		t.ExecutedAt, t.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save trade %s: %w", t.ID, err)
	}
	return nil
}

// ListRecent returns the most recently executed trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + tradeSelectCols + ` FROM trades ORDER BY executed_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// Stats aggregates trade history for the shutdown report.
func (s *TradeStore) Stats(ctx context.Context) (domain.TradeStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COALESCE(SUM(profit_amount), 0),
			COALESCE(AVG(profit_pct), 0),
			COALESCE(MAX(profit_amount), 0)
		FROM trades`

	var stats domain.TradeStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalTrades,
		&stats.ClosedTrades,
		&stats.TotalProfit,
		&stats.AvgProfitPct,
		&stats.MaxProfit,
	)
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("postgres: trade stats: %w", err)
	}
	return stats, nil
}
