package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examkit/answerkey/internal/bootstrap"
	"github.com/examkit/answerkey/internal/config"
	"github.com/examkit/answerkey/internal/observability/logging"
	"github.com/examkit/answerkey/internal/observability/metrics"
)

const serviceName = "answerkey-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribePageScanned(ctx, func(handlerCtx context.Context, pageID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartPage()
		start := time.Now()

		if page, err := app.Pages.GetByID(processCtx, pageID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, start.Sub(page.CreatedAt))
		}

		processErr := app.ProcessUC.ProcessByID(processCtx, pageID)
		workerMetrics.FinishPage(serviceName, time.Since(start), processErr)

		if processErr == nil {
			if page, err := app.Pages.GetByID(processCtx, pageID); err == nil {
				workerMetrics.ObservePageOutcome(serviceName, page.RowCount, page.Suspicious)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
