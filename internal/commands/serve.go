package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/my-schedule/internal/app"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var addr, dataDir, storage string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the schedule board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("storage") {
				cfg.Storage = storage
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), e, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory")
	cmd.Flags().StringVar(&storage, "storage", app.StorageJSON, "Storage backend (json, sqlite)")
	return cmd
}

func serve(parent context.Context, e *env, cfg app.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := e.log
	st, err := app.OpenStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("error closing store")
		}
	}()

	if fsStore, ok := st.(*app.FileStore); ok && cfg.Watch {
		go func() {
			if err := fsStore.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("data file watcher stopped")
			}
		}()
	}

	backups, err := app.NewBackupScheduler(cfg, st, log)
	if err != nil {
		return err
	}
	if backups != nil {
		backups.Start()
		defer backups.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewServer(cfg, st, log, app.WithAssets(e.assets.Static, e.assets.IndexHTML)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().
		Str("addr", cfg.Addr).
		Str("storage", cfg.Storage).
		Str("data_dir", cfg.DataDir).
		Msg("starting schedule board")
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("systemd notify failed")
	} else if ok {
		log.Debug().Msg("notified systemd")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
