package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/getmentor/getmentor-sessions/internal/repository"
	"github.com/getmentor/getmentor-sessions/pkg/errors"
	"github.com/getmentor/getmentor-sessions/pkg/logger"
	"github.com/getmentor/getmentor-sessions/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client is the PostgreSQL implementation of repository.Store
type Client struct {
	pool *pgxpool.Pool
	q    querier
}

var _ repository.Store = (*Client)(nil)

// NewClient wraps an open connection pool
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool, q: pool}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Ping(ctx)
}

// WithinTx executes fn within a transaction.
// The transaction is committed if fn returns nil, rolled back otherwise.
// Calls on a transactional client reuse the open transaction.
func (c *Client) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if c.pool == nil {
		return fn(c)
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return errors.StorageError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&Client{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error("Failed to roll back transaction", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.StorageError("commit transaction", err)
	}

	return nil
}

// observe records metrics and a log line for one operation; expected domain
// outcomes (not found, conflict, invalid state) are not counted as failures
func observe(operation string, start time.Time, err error, fields ...zap.Field) {
	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil && errors.Is(err, errors.ErrStorage) {
		status = "error"
		fields = append(fields, zap.Error(err))
	}
	metrics.RecordDBOperation(operation, status, duration)
	logger.LogDBCall(operation, status, duration, fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (c *Client) exists(ctx context.Context, table, id string) (bool, error) {
	var found bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", table)
	if err := c.q.QueryRow(ctx, query, id).Scan(&found); err != nil {
		return false, errors.StorageError("check "+table, err)
	}
	return found, nil
}
