// Package ledger remembers which patients and orders earlier runs already
// created, so a rerun reports them as AlreadyExists instead of creating
// them twice.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

// Store is a prior-record store. Lookup returns nil, nil when nothing is
// known about the key.
type Store interface {
	Lookup(ctx context.Context, kind constants.RecordKind, key string) (*entity.PriorKnownRecord, error)
	Remember(ctx context.Context, rec entity.PriorKnownRecord) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver. A store that cannot be
// reached is an error; the run must not start without its ledger.
func Open(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = OpenSQLite(ctx, cfg.DSN, logger)
	case "postgres":
		s, err = OpenPostgres(ctx, cfg, logger)
	case "redis":
		s, err = OpenRedis(ctx, cfg, logger)
	case "report":
		s, err = OpenReport(cfg.PriorReport, logger)
	case "none", "":
		s = Nop{}
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("ledger driver %q is not supported", cfg.Driver), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open "+cfg.Driver+" ledger", err)
	}
	logger.Info("ledger.open", "driver", cfg.Driver)
	return s, nil
}

// HealthCheck pings s within timeout.
func HealthCheck(ctx context.Context, s Store, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		logger.Error("ledger.ping.failed", "error", err)
		return err
	}
	logger.Debug("ledger.ping.ok")
	return nil
}

// Nop remembers nothing and never finds a prior record.
type Nop struct{}

func (Nop) Lookup(context.Context, constants.RecordKind, string) (*entity.PriorKnownRecord, error) {
	return nil, nil
}
func (Nop) Remember(context.Context, entity.PriorKnownRecord) error { return nil }
func (Nop) Ping(context.Context) error                              { return nil }
func (Nop) Close() error                                            { return nil }
