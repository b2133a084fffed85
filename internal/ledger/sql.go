package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

const table = "prior_records"

// SQLStore keeps prior records in one table of a SQLite or Postgres database.
type SQLStore struct {
	dialect string
	drv     *entsql.Driver
	pool    *pgxpool.Pool // postgres only
	logger  *slog.Logger
}

// OpenSQLite opens (and creates if needed) a SQLite ledger at dsn.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps a ":memory:" database alive across calls
	db.SetMaxOpenConns(1)

	s := &SQLStore{dialect: dialect.SQLite, drv: entsql.OpenDB(dialect.SQLite, db), logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres creates a pgx pool and wraps it for the ent SQL builder.
func OpenPostgres(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("ledger.postgres.connect")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("ledger.postgres.connect.failed", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "orderbridge"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("ledger.postgres.connect.failed", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	s := &SQLStore{dialect: dialect.Postgres, drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("ledger.postgres.connected")
	return s, nil
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS ` + table + ` (
	kind        VARCHAR(16)  NOT NULL,
	record_key  VARCHAR(255) NOT NULL,
	status      VARCHAR(32)  NOT NULL,
	external_id VARCHAR(255) NOT NULL DEFAULT '',
	doc_id      VARCHAR(255) NOT NULL DEFAULT '',
	recorded_at VARCHAR(40)  NOT NULL,
	PRIMARY KEY (kind, record_key)
)`

func (s *SQLStore) migrate(ctx context.Context) error {
	if err := s.drv.Exec(ctx, ledgerDDL, []any{}, nil); err != nil {
		return common.WrapError(err, "migrate "+table)
	}
	return nil
}

func (s *SQLStore) Lookup(ctx context.Context, kind constants.RecordKind, key string) (*entity.PriorKnownRecord, error) {
	q, args := entsql.Dialect(s.dialect).
		Select("status", "external_id", "doc_id", "recorded_at").
		From(entsql.Table(table)).
		Where(entsql.And(entsql.EQ("kind", string(kind)), entsql.EQ("record_key", key))).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.WrapError(err, "ledger lookup")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var status, recordedAt string
	rec := &entity.PriorKnownRecord{Kind: kind, Key: key}
	if err := rows.Scan(&status, &rec.ExternalID, &rec.DocID, &recordedAt); err != nil {
		return nil, common.WrapError(err, "ledger scan")
	}
	rec.Status = constants.ResultStatus(status)
	rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
	return rec, nil
}

// Remember inserts rec, replacing whatever was stored for its key.
func (s *SQLStore) Remember(ctx context.Context, rec entity.PriorKnownRecord) error {
	if rec.Key == "" {
		return errors.New("ledger: empty key")
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	q, args := entsql.Dialect(s.dialect).
		Insert(table).
		Columns("kind", "record_key", "status", "external_id", "doc_id", "recorded_at").
		Values(string(rec.Kind), rec.Key, string(rec.Status), rec.ExternalID, rec.DocID, rec.RecordedAt.UTC().Format(time.RFC3339Nano)).
		OnConflict(
			entsql.ConflictColumns("kind", "record_key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := s.drv.Exec(ctx, q, args, nil); err != nil {
		return common.WrapError(err, "ledger remember")
	}
	s.logger.Debug("ledger.remember", "kind", rec.Kind, "key", rec.Key, "status", rec.Status)
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.drv.DB().PingContext(ctx)
}

// Close closes the database connections gracefully
func (s *SQLStore) Close() error {
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
