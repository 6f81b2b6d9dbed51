package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memeshare/achievement-engine/pkg/activity"
	"github.com/memeshare/achievement-engine/pkg/common"
	"github.com/memeshare/achievement-engine/pkg/config"
	"github.com/memeshare/achievement-engine/pkg/db"
	"github.com/memeshare/achievement-engine/pkg/logger"
	"github.com/memeshare/achievement-engine/pkg/registry"
	"github.com/memeshare/achievement-engine/pkg/repository"
)

// Supported values for --driver and --format.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"

	formatText = "text"
	formatJSON = "json"
)

// rootOptions holds global flags and the dependencies shared by subcommands.
type rootOptions struct {
	ConfigPath string
	Driver     string
	SQLitePath string
	Format     string

	logger *zap.Logger
	clock  common.Clock
}

// stores bundles the store implementations for the selected driver.
type stores struct {
	activity interface {
		activity.AggregateReader
		activity.Recorder
	}
	awards   repository.AwardRepository
	counters repository.CounterRepository
	db       *sqlx.DB
}

func (s *stores) Close() error {
	return s.db.Close()
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&rootOptions{clock: common.NowUTC})
}

// newRootCommandWith builds the command tree around opts. A preset logger is kept.
func newRootCommandWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badgectl",
		Short: "Operate the achievement engine",
		Long: `badgectl evaluates, awards and lists achievements.

Rules are read from a JSON or YAML registry file. Awards, holder counters and
activity records live in PostgreSQL or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != formatText && opts.Format != formatJSON {
				return fmt.Errorf("invalid format %q: must be one of [text json]", opts.Format)
			}
			if opts.Driver != driverPostgres && opts.Driver != driverSQLite {
				return fmt.Errorf("invalid driver %q: must be one of [postgres sqlite]", opts.Driver)
			}
			if opts.logger == nil {
				logCfg := logger.ConfigFromEnv()
				logCfg.Stderr = true
				l, err := logger.Init(logCfg)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				opts.logger = l
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", envOr("ACHIEVEMENTS_CONFIG", "configs/achievements.json"), "achievement registry file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", envOr("DB_DRIVER", driverPostgres), "store driver (postgres|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", envOr("SQLITE_PATH", "achievements.db"), "SQLite database file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatText, "output format (text|json)")

	cmd.AddCommand(newRulesCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newAwardsCommand(opts))
	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newConsumeCommand(opts))

	return cmd
}

// loadRegistry loads and validates the registry file.
func (o *rootOptions) loadRegistry() (*registry.InMemoryRegistry, error) {
	cfg, err := config.NewConfigLoader(o.ConfigPath, o.logger).LoadConfig()
	if err != nil {
		return nil, err
	}
	return registry.NewInMemoryRegistry(cfg, o.logger), nil
}

// openDB connects to the selected store and returns the sqlx handle and driver name.
func (o *rootOptions) openDB() (*sqlx.DB, string, error) {
	switch o.Driver {
	case driverSQLite:
		sqlDB, err := db.OpenSQLite(o.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		return sqlx.NewDb(sqlDB, db.DriverSQLite), db.DriverSQLite, nil
	default:
		sqlDB, err := db.Connect(db.NewConfigFromEnv())
		if err != nil {
			return nil, "", err
		}
		return sqlx.NewDb(sqlDB, db.DriverPostgres), db.DriverPostgres, nil
	}
}

// openStores connects and builds the driver's store implementations.
func (o *rootOptions) openStores() (*stores, error) {
	dbx, driver, err := o.openDB()
	if err != nil {
		return nil, err
	}

	if driver == db.DriverSQLite {
		return &stores{
			activity: activity.NewSQLiteAggregateReader(dbx),
			awards:   repository.NewSQLiteAwardRepository(dbx),
			counters: repository.NewSQLiteCounterRepository(dbx),
			db:       dbx,
		}, nil
	}
	return &stores{
		activity: activity.NewPostgresAggregateReader(dbx),
		awards:   repository.NewPostgresAwardRepository(dbx),
		counters: repository.NewPostgresCounterRepository(dbx),
		db:       dbx,
	}, nil
}

func (o *rootOptions) migrate(ctx context.Context) error {
	dbx, driver, err := o.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = dbx.Close() }()
	return db.Migrate(ctx, dbx.DB, driver)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
