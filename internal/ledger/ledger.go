// Package ledger is the embedded order ledger. Every submitted order and
// every backtest run lives here, in a DuckDB file next to the engine.
package ledger

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
)

// Store persists orders and backtest runs.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens (or creates) the ledger database at path and ensures the
// schema exists. Pass ":memory:" for an ephemeral ledger.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLedgerQueryFailed, err, "failed to open ledger at %s", path)
	}

	store := &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS backtest_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS order_id_seq`,
		`CREATE TABLE IF NOT EXISTS backtests (
			id BIGINT PRIMARY KEY,
			strategy TEXT NOT NULL,
			timestamp BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT PRIMARY KEY,
			backtest_id BIGINT,
			liquidity_pool TEXT NOT NULL,
			strategy TEXT NOT NULL,
			swap_in_amount BIGINT NOT NULL,
			min_receive BIGINT NOT NULL,
			swap_in_token TEXT,
			swap_out_token TEXT,
			slippage_percent VARCHAR NOT NULL,
			dex_fees_paid BIGINT NOT NULL,
			tx_hash TEXT,
			is_settled BOOLEAN NOT NULL,
			timestamp BIGINT NOT NULL
		)`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to initialize ledger schema", err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to close ledger", err)
	}

	return nil
}

// InsertBacktest records a new backtest run and returns its id.
func (s *Store) InsertBacktest(ctx context.Context, strategy string, timestamp int64) (int64, error) {
	id, err := s.nextID(ctx, "backtest_id_seq")
	if err != nil {
		return 0, err
	}

	query := s.sq.
		Insert("backtests").
		Columns("id", "strategy", "timestamp").
		Values(id, strategy, timestamp).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeLedgerInsertFailed, err, "failed to insert backtest for strategy %s", strategy)
	}

	return id, nil
}

// InsertOrder records an order and returns the assigned id. The record's ID
// field is ignored.
func (s *Store) InsertOrder(ctx context.Context, record types.OrderRecord) (int64, error) {
	id, err := s.nextID(ctx, "order_id_seq")
	if err != nil {
		return 0, err
	}

	query := s.sq.
		Insert("orders").
		Columns(
			"id", "backtest_id", "liquidity_pool", "strategy", "swap_in_amount",
			"min_receive", "swap_in_token", "swap_out_token", "slippage_percent",
			"dex_fees_paid", "tx_hash", "is_settled", "timestamp",
		).
		Values(
			id,
			optionalInt64Value(record.BacktestID),
			record.PoolIdentifier,
			record.Strategy,
			record.SwapInAmount,
			record.MinReceive,
			optionalStringValue(record.SwapInAsset),
			optionalStringValue(record.SwapOutAsset),
			record.SlippagePercent.String(),
			record.DexFeesPaid,
			record.TxHash,
			record.IsSettled,
			record.Timestamp,
		).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeLedgerInsertFailed, err, "failed to insert order for strategy %s", record.Strategy)
	}

	return id, nil
}

// MarkSettled flags the order carrying the given transaction hash as settled.
// Returns false when no unsettled order carries the hash, which makes repeat
// settlement notifications harmless.
func (s *Store) MarkSettled(ctx context.Context, txHash string) (bool, error) {
	query := s.sq.
		Update("orders").
		Set("is_settled", true).
		Where(squirrel.Eq{"tx_hash": txHash, "is_settled": false}).
		RunWith(s.db)

	result, err := query.ExecContext(ctx)
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeLedgerQueryFailed, err, "failed to settle order %s", txHash)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeLedgerQueryFailed, err, "failed to settle order %s", txHash)
	}

	return affected > 0, nil
}

// UnsettledOrders returns live orders that have not settled yet. Orders that
// belong to a backtest run are excluded.
func (s *Store) UnsettledOrders(ctx context.Context) ([]types.OrderRecord, error) {
	return s.selectOrders(ctx, squirrel.And{
		squirrel.Eq{"is_settled": false},
		squirrel.Eq{"backtest_id": nil},
	})
}

// BacktestOrders returns every order recorded against a backtest run.
func (s *Store) BacktestOrders(ctx context.Context, backtestID int64) ([]types.OrderRecord, error) {
	return s.selectOrders(ctx, squirrel.Eq{"backtest_id": backtestID})
}

func (s *Store) selectOrders(ctx context.Context, where any) ([]types.OrderRecord, error) {
	query := s.sq.
		Select(
			"id", "backtest_id", "liquidity_pool", "strategy", "swap_in_amount",
			"min_receive", "swap_in_token", "swap_out_token", "slippage_percent",
			"dex_fees_paid", "tx_hash", "is_settled", "timestamp",
		).
		From("orders").
		Where(where).
		OrderBy("timestamp ASC", "id ASC").
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var records []types.OrderRecord

	for rows.Next() {
		var (
			record       types.OrderRecord
			backtestID   sql.NullInt64
			swapInToken  sql.NullString
			swapOutToken sql.NullString
			slippage     string
			txHash       sql.NullString
		)

		err := rows.Scan(
			&record.ID, &backtestID, &record.PoolIdentifier, &record.Strategy,
			&record.SwapInAmount, &record.MinReceive, &swapInToken, &swapOutToken,
			&slippage, &record.DexFeesPaid, &txHash, &record.IsSettled,
			&record.Timestamp,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to scan order row", err)
		}

		record.SlippagePercent, err = decimal.NewFromString(slippage)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "malformed slippage value in ledger", err)
		}

		if backtestID.Valid {
			record.BacktestID = optional.Some(backtestID.Int64)
		}

		if swapInToken.Valid {
			record.SwapInAsset = optional.Some(swapInToken.String)
		}

		if swapOutToken.Valid {
			record.SwapOutAsset = optional.Some(swapOutToken.String)
		}

		if txHash.Valid {
			record.TxHash = txHash.String
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to read order rows", err)
	}

	return records, nil
}

func (s *Store) nextID(ctx context.Context, sequence string) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT nextval('"+sequence+"')").Scan(&id); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeLedgerQueryFailed, err, "failed to advance %s", sequence)
	}

	return id, nil
}

func optionalInt64Value(value optional.Option[int64]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}

func optionalStringValue(value optional.Option[string]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}
