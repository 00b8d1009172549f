package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"caderneta/internal/config"
	apphttp "caderneta/internal/http"
	"caderneta/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:           "caderneta",
		Short:         "Caderneta é um caderninho de finanças domésticas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), repairCreatedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "caderneta:", err)
		os.Exit(1)
	}
}

// loadConfig reads .env when present and builds the validated configuration.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sobe o servidor web",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
				return fmt.Errorf("creating upload dir: %w", err)
			}

			repo, err := storage.Open(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer repo.Close()

			srv := apphttp.NewServer(":"+cfg.Port, repo, cfg.UploadDir, cfg.MaxUploadSize, cfg.SecretKey)
			srv.ReadTimeout = 10 * time.Second
			srv.WriteTimeout = 10 * time.Second
			srv.IdleTimeout = 60 * time.Second
			srv.MaxHeaderBytes = 1 << 16

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Starting caderneta server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				slog.Info("Shutdown signal received")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			slog.Info("Server stopped gracefully")
			return nil
		},
	}
}

// repairCreatedCmd rewrites the creation timestamps of every recurring
// series, transfer group and standalone entry to the current time. Useful
// after importing data whose original timestamps were lost.
func repairCreatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair-created",
		Short: "Corrige as datas de criação dos lançamentos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			repo, err := storage.Open(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer repo.Close()

			now := time.Now().UTC()
			var series, groups, singles int64
			err = repo.WithTx(cmd.Context(), func(q *storage.Queries) error {
				var err error
				if series, err = q.ResetSeriesCreatedAt(cmd.Context(), now); err != nil {
					return err
				}
				if groups, err = q.ResetTransferGroupsCreatedAt(cmd.Context(), now); err != nil {
					return err
				}
				singles, err = q.ResetStandaloneEntriesCreatedAt(cmd.Context(), now)
				return err
			})
			if err != nil {
				return fmt.Errorf("repairing creation dates: %w", err)
			}

			fmt.Printf("recorrências: %d, transferências: %d, lançamentos avulsos: %d\n", series, groups, singles)
			return nil
		},
	}
}
