package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"consultbot/internal/bootstrap"
	httptransport "consultbot/internal/transport/http"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the knowledge index and serve the chat API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{StartWorkers: true})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("close resources failed", "error", err)
				}
			}()

			indexDone := app.Index.Start(ctx, cfg.Knowledge.RebuildOnStart)
			go func() {
				if err := <-indexDone; err != nil {
					logger.Error("initial knowledge index build failed", "error", err)
					return
				}
				logger.Info("knowledge index ready", "records", app.Index.Status().Records)
			}()

			router := httptransport.NewRouter(app)
			server := &http.Server{
				Addr:              cfg.HTTPAddr(),
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				logger.Info("server starting", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("server failed: %v", err)
				}
			}()

			waitForShutdown(server)
			return nil
		},
	}
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
