package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/logging"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/transport/ws"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations to a browser UI over websocket",
		Long: `Start an HTTP server with a websocket endpoint at /ws. Clients send
{"type":"SIMULATE","scenario":{...}} messages and receive RESULT or ERROR
replies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			store, err := history.Open(ctx, root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			decisions := logging.NewDecisionLogger(stateDir(root), cfg.Logging.Level)
			defer decisions.Close()

			logger := newLogger(cfg, cmd.ErrOrStderr())
			o := oracle.NewFromConfig(cfg, store, logger, decisions)

			mux := http.NewServeMux()
			mux.Handle("/ws", ws.NewServer(o, ws.Options{
				MaxShots: cfg.Server.MaxShots,
				Logger:   logger,
			}).Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			sigChan := make(chan os.Signal, 1)
			notifySignals(sigChan)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Oracle websocket server running at ws://%s/ws\n", cfg.Server.Addr)
				fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				select {
				case <-sigChan:
				case <-gctx.Done():
				}
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				return srv.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, e.g. 127.0.0.1:8765)")

	return cmd
}
