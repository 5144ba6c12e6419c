// Package initializer wires the application dependency graph: database,
// repositories, gateway client, notification sink, cache, services, and the
// renewal scheduler.
package initializer

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/tolempay/billing/infra"
	"github.com/tolempay/billing/infra/cache"
	infranotifier "github.com/tolempay/billing/infra/notifier"
	infrarepo "github.com/tolempay/billing/infra/repository"
	"github.com/tolempay/billing/pkg/config"
	"github.com/tolempay/billing/pkg/currency"
	"github.com/tolempay/billing/pkg/directory"
	"github.com/tolempay/billing/pkg/engine"
	"github.com/tolempay/billing/pkg/fees"
	"github.com/tolempay/billing/pkg/gateway"
	"github.com/tolempay/billing/pkg/notifier"
	"github.com/tolempay/billing/pkg/scheduler"
	"github.com/tolempay/billing/pkg/wallet"
)

// Deps is the wired dependency graph.
type Deps struct {
	Config    *config.AppConfig
	Logger    *slog.Logger
	DB        *gorm.DB
	Engine    *engine.Engine
	Wallet    *wallet.Service
	Fees      *fees.Calculator
	Scheduler *scheduler.Scheduler
	Events    notifier.Notifier
	Cache     *cache.Balances
}

// New builds the dependency graph from config. The caller owns Close.
func New(cfg *config.AppConfig) (*Deps, error) {
	logger := SetupLogger(&cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := infra.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	uow := infrarepo.NewUoW(db)

	// Notifications drain into Kafka when brokers are configured, otherwise
	// into the log.
	var sink notifier.Sink
	if cfg.Kafka.Brokers != "" {
		kafka, err := infranotifier.NewKafka(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		sink = kafka
	}
	events := notifier.NewMemory(sink, 256, logger)

	balanceCache := cache.NewBalances(&cfg.Redis, logger)

	gw := gateway.NewClient(&cfg.Gateway, logger)
	dir := directory.NewClient(&cfg.Directory, logger)

	eng := engine.New(uow, gw, dir, events, logger)
	walletSvc := wallet.NewService(uow, currency.Default(), balanceCache, events, logger)
	calc := fees.NewCalculator(uow, logger)
	sched := scheduler.New(eng, uow, events, &cfg.Scheduler, logger)

	return &Deps{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Engine:    eng,
		Wallet:    walletSvc,
		Fees:      calc,
		Scheduler: sched,
		Events:    events,
		Cache:     balanceCache,
	}, nil
}

// Close tears down what New opened, flushing queued notifications.
func (d *Deps) Close() error {
	if d.Events != nil {
		if err := d.Events.Close(); err != nil {
			d.Logger.Warn("notifier close failed", "error", err)
		}
	}
	if err := d.Cache.Close(); err != nil {
		d.Logger.Warn("cache close failed", "error", err)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
