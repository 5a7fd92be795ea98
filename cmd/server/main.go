package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/queue"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "restaurant",
		Short:        "Restaurant reservations, orders and payments API",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")

	serve := serveCmd()
	root.AddCommand(serve, consumeCmd(), hashPasswordsCmd())
	// running the binary with no subcommand serves the API
	root.RunE = serve.RunE
	return root
}

func parseLevel(s string) log.Lvl {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	}
	return log.INFO
}

func newLogger(prefix, level string) *log.Logger {
	l := log.New(prefix)
	l.SetLevel(parseLevel(level))
	l.SetHeader(`${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`)
	return l
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and the activity consumer when enabled)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := newLogger("restaurant", cfg.LogLevel)

			app, err := newApp(cfg, logger)
			if err != nil {
				logger.Errorf("startup: %v", err)
				return err
			}
			defer app.Close()

			ctx, stop := signalContext()
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				addr := ":" + cfg.Port
				logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
				if err := app.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			if app.Events.Enabled && app.Events.ConsumerEnabled {
				g.Go(func() error {
					return queue.NewConsumer(app.Events, newLogger("activity-consumer", cfg.LogLevel)).Run(ctx)
				})
			}
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				logger.Info("shutting down")
				return app.Echo.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run only the activity-log consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			events := config.LoadEventsConfig()
			logger := newLogger("activity-consumer", os.Getenv("LOG_LEVEL"))
			if events.URL == "" {
				logger.Error("RABBITMQ_URL is not set")
				return errors.New("RABBITMQ_URL is required")
			}
			ctx, stop := signalContext()
			defer stop()
			return queue.NewConsumer(events, logger).Run(ctx)
		},
	}
}

func hashPasswordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passwords",
		Short: "Replace legacy plain-text passwords with bcrypt hashes (runs once)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := newLogger("hash-passwords", cfg.LogLevel)
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			n, done, err := repository.NewUserRepo(db).HashLegacyPasswords(ctx, cfg.BcryptCost)
			if err != nil {
				return err
			}
			if done {
				logger.Info("passwords were already hashed, nothing to do")
				return nil
			}
			logger.Infof("hashed %d legacy passwords", n)
			return nil
		},
	}
}
