package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/pkg/config"
	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DB is the process-wide connection pool. Every gateway call acquires a
// connection, runs exactly one statement and hands the connection back.
type DB struct {
	*sql.DB
	pool    config.PoolConfig
	metrics *metrics.AppMetrics
}

// NewDB opens an instrumented MySQL pool sized from pool and pings it.
func NewDB(dsn string, pool config.PoolConfig, m *metrics.AppMetrics, serviceName string) (*DB, error) {
	driverName, err := otelsql.Register("mysql",
		otelsql.WithAttributes(
			attribute.String("db.system", "mysql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := Wrap(sqlDB, pool, m)

	ctx, cancel := context.WithTimeout(context.Background(), db.acquireTimeout())
	defer cancel()
	if err := db.Probe(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if err := otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(
		attribute.String("db.system", "mysql"),
		attribute.String("service.name", serviceName),
	)); err != nil {
		log.Printf("Warning: failed to register otelsql stats metrics: %v", err)
	}

	log.Printf("[DB] Connection pool ready (max=%d, minIdle=%d)", pool.MaximumPoolSize, pool.MinimumIdle)
	return db, nil
}

// Wrap applies pool settings to an already opened *sql.DB.
func Wrap(sqlDB *sql.DB, pool config.PoolConfig, m *metrics.AppMetrics) *DB {
	if pool.MaximumPoolSize > 0 {
		sqlDB.SetMaxOpenConns(pool.MaximumPoolSize)
	}
	// database/sql has no minimum idle; the value caps retained idle connections instead.
	if pool.MinimumIdle > 0 {
		sqlDB.SetMaxIdleConns(pool.MinimumIdle)
	}
	sqlDB.SetConnMaxIdleTime(pool.IdleTimeout)
	sqlDB.SetConnMaxLifetime(pool.MaxLifetime)
	if m == nil {
		m = metrics.NewNoop()
	}
	return &DB{DB: sqlDB, pool: pool, metrics: m}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Probe runs the configured test query on a pooled connection.
func (db *DB) Probe(ctx context.Context) error {
	query := db.pool.ConnectionTestQuery
	if query == "" {
		query = "SELECT 1"
	}
	_, _, err := QueryOne(ctx, db, query, func(*Row) (struct{}, error) { return struct{}{}, nil })
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (db *DB) acquireTimeout() time.Duration {
	if db.pool.ConnectionTimeout > 0 {
		return db.pool.ConnectionTimeout
	}
	return 30 * time.Second
}

// executor is the part of *sql.Conn and *sql.Tx the gateway needs.
type executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session is where a gateway statement runs: the pool (*DB) or an open transaction (*Tx).
type Session interface {
	run(ctx context.Context, query string, fn func(executor) error) error
}

func (db *DB) run(ctx context.Context, query string, fn func(executor) error) error {
	start := time.Now()

	acquireCtx, cancel := context.WithTimeout(ctx, db.acquireTimeout())
	conn, err := db.Conn(acquireCtx)
	cancel()
	if err != nil {
		return db.fail(ctx, query, start, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Close()

	stop := db.watchLeak(ctx, query)
	defer stop()

	if err := fn(conn); err != nil {
		return db.fail(ctx, query, start, err)
	}
	db.record(ctx, query, start, true)
	return nil
}

// watchLeak logs when a connection is held past the leak detection threshold.
func (db *DB) watchLeak(ctx context.Context, query string) func() bool {
	if db.pool.LeakDetectionThreshold <= 0 {
		return func() bool { return false }
	}
	timer := time.AfterFunc(db.pool.LeakDetectionThreshold, func() {
		log.Printf("[DB] Connection leak detection triggered, held over %s by: %s", db.pool.LeakDetectionThreshold, query)
		db.metrics.DBConnLeaks.Add(ctx, 1, metric.WithAttributes(db.metrics.WithServiceName(nil)...))
	})
	return timer.Stop
}

func (db *DB) record(ctx context.Context, query string, start time.Time, success bool) {
	op, table := statementInfo(query)
	db.metrics.RecordDBQuery(ctx, op, table, query, start, success)
}

// fail logs the statement (never its parameters) and classifies the error.
func (db *DB) fail(ctx context.Context, query string, start time.Time, err error) error {
	db.record(ctx, query, start, false)

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	log.Printf("[DB] Error executing query: %s: %v", query, err)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return &apperrors.Error{Op: "db.exec", Kind: apperrors.KindConflict, Message: "Duplicate entry", Err: err}
		case 1451:
			return &apperrors.Error{Op: "db.exec", Kind: apperrors.KindConflict, Message: "Record is still referenced", Err: err}
		case 1452:
			return &apperrors.Error{Op: "db.exec", Kind: apperrors.KindValidation, Message: "Referenced record does not exist", Err: err}
		}
	}
	return apperrors.Infrastructure("db.exec", err)
}

// Tx is an open transaction. Statements run on the transaction's connection.
type Tx struct {
	tx *sql.Tx
	db *DB
}

func (t *Tx) run(ctx context.Context, query string, fn func(executor) error) error {
	start := time.Now()
	if err := fn(t.tx); err != nil {
		return t.db.fail(ctx, query, start, err)
	}
	t.db.record(ctx, query, start, true)
	return nil
}

// WithTx runs fn in a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return db.fail(ctx, "BEGIN", start, err)
	}
	defer tx.Rollback()

	stop := db.watchLeak(ctx, "transaction")
	defer stop()

	if err := fn(&Tx{tx: tx, db: db}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return db.fail(ctx, "COMMIT", start, err)
	}
	return nil
}

// RowMapper builds an entity from the current row.
type RowMapper[T any] func(r *Row) (T, error)

// QueryOne returns the first row mapped by mapRow; false when there is none.
func QueryOne[T any](ctx context.Context, s Session, query string, mapRow RowMapper[T], args ...any) (T, bool, error) {
	var (
		result T
		found  bool
	)
	err := s.run(ctx, query, func(ex executor) error {
		rows, err := ex.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		if rows.Next() {
			row, err := scanRow(rows, cols)
			if err != nil {
				return err
			}
			if result, err = mapRow(row); err != nil {
				return fmt.Errorf("map row: %w", err)
			}
			found = true
		}
		return rows.Err()
	})
	return result, found, err
}

// QueryMany maps every row; an empty result is an empty, non-nil slice.
func QueryMany[T any](ctx context.Context, s Session, query string, mapRow RowMapper[T], args ...any) ([]T, error) {
	results := []T{}
	err := s.run(ctx, query, func(ex executor) error {
		rows, err := ex.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			row, err := scanRow(rows, cols)
			if err != nil {
				return err
			}
			item, err := mapRow(row)
			if err != nil {
				return fmt.Errorf("map row: %w", err)
			}
			results = append(results, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExecuteUpdate runs a statement and returns the number of affected rows.
func ExecuteUpdate(ctx context.Context, s Session, query string, args ...any) (int64, error) {
	var affected int64
	err := s.run(ctx, query, func(ex executor) error {
		res, err := ex.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// ExecuteInsert runs an INSERT and returns the generated id.
func ExecuteInsert(ctx context.Context, s Session, query string, args ...any) (int32, error) {
	var id int64
	err := s.run(ctx, query, func(ex executor) error {
		res, err := ex.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		if id <= 0 || id > math.MaxInt32 {
			return fmt.Errorf("generated id %d out of range", id)
		}
		return nil
	})
	return int32(id), err
}

var tablePattern = regexp.MustCompile(`(?is)\b(?:from|into|update|join)\s+` + "`?" + `([a-z_][a-z0-9_]*)`)

// statementInfo extracts the verb and first table of a statement for metrics.
func statementInfo(query string) (op, table string) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN", "unknown"
	}
	op = strings.ToUpper(fields[0])
	table = "unknown"
	if m := tablePattern.FindStringSubmatch(query); m != nil {
		table = strings.ToLower(m[1])
	}
	return op, table
}
