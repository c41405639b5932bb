package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/antonved/knowledge-engine/internal/adapters/http"
	"github.com/antonved/knowledge-engine/internal/bootstrap"
	"github.com/antonved/knowledge-engine/internal/config"
	"github.com/antonved/knowledge-engine/internal/observability/logging"
	"github.com/antonved/knowledge-engine/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// With the in-process queue the api binary is also the worker.
	if cfg.QueueBackend == "channel" {
		go func() {
			err := app.Queue.SubscribeDocumentSubmitted(ctx, func(handlerCtx context.Context, documentID string) error {
				processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
				defer cancel()
				return app.ProcessUC.ProcessByID(processCtx, documentID)
			})
			if err != nil {
				slog.Error("ingestion consumer stopped", "error", err)
			}
		}()
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(
		app.SubmitUC, app.QueryUC, app.Repo, app.Vectors, app.Tenants, app.Provisioner,
		httpadapter.TenantQuotaDefaults{
			MaxDocuments: cfg.DefaultMaxDocuments,
			MaxQueries:   cfg.DefaultMaxQueries,
		},
		httpMetrics, "api",
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", router.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
