package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"blackjack-table/server/store"
	"blackjack-table/server/table"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	cfg       Config
	flagPort  string
	flagSeed  int64
	flagLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "blackjack",
		Short:         "Single-player blackjack table",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = loadConfig()
			if flagPort != "" {
				cfg.Port = flagPort
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = uint64(flagSeed)
			}
			if flagLevel != "" {
				cfg.LogLevel = parseLevel(flagLevel)
			}
			slog.SetDefault(newLogger(cfg.LogLevel))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagPort, "port", "", "HTTP port (default $PORT or 8080)")
	root.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "base shuffle seed (default $DECK_SEED or random)")
	root.PersistentFlags().StringVar(&flagLevel, "log-level", "", "debug|info|warn|error (default $LOG_LEVEL)")

	root.AddCommand(serveCmd(), migrateCmd(), playCmd())
	return root
}

// newLogger routes slog through pterm's logger.
func newLogger(level slog.Level) *slog.Logger {
	pl := pterm.DefaultLogger
	switch {
	case level <= slog.LevelDebug:
		pl.Level = pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		pl.Level = pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		pl.Level = pterm.LogLevelWarn
	default:
		pl.Level = pterm.LogLevelError
	}
	return slog.New(pterm.NewSlogHandler(&pl))
}

// openRepository picks Postgres, then SQLite, then memory.
func openRepository(ctx context.Context, c Config) (table.Repository, func(), error) {
	switch {
	case c.DatabaseURL != "":
		db, err := store.Open(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close(ctx)
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if c.AutoMigrate {
			if err := store.Migrate(ctx, db); err != nil {
				db.Close(ctx)
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			slog.Info("migrated")
		}
		return db, func() { db.Close(context.Background()) }, nil
	case c.SQLitePath != "":
		s, err := store.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		slog.Warn("no DATABASE_URL or SQLITE_PATH set; rounds are kept in memory")
		return store.NewMemory(), func() {}, nil
	}
}

func newService(repo table.Repository, c Config) *table.Service {
	slog.Info("table ready", "seed", c.Seed, "odds_trials", c.OddsTrials)
	return table.New(repo, table.Options{Seed: c.Seed, OddsTrials: c.OddsTrials, Logger: slog.Default()})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			repo, closeRepo, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			srv := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      Router(newService(repo, cfg)),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			slog.Info(fmt.Sprintf("listening on http://localhost:%s (Ctrl+C to stop)", cfg.Port))

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			slog.Info("stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the rounds table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case cfg.DatabaseURL != "":
				db, err := store.Open(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close(ctx)
				if err := store.Migrate(ctx, db); err != nil {
					return err
				}
			case cfg.SQLitePath != "":
				s, err := store.OpenSQLite(cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer s.Close()
			default:
				return errors.New("set DATABASE_URL or SQLITE_PATH")
			}
			slog.Info("migrated")
			return nil
		},
	}
}
