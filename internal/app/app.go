package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/alert"
	"support-mail-ingest-go/internal/classifier"
	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/database"
	"support-mail-ingest-go/internal/events"
	"support-mail-ingest-go/internal/handler"
	"support-mail-ingest-go/internal/mailbox"
	"support-mail-ingest-go/internal/metrics"
	"support-mail-ingest-go/internal/orders"
	"support-mail-ingest-go/internal/pipeline"
	"support-mail-ingest-go/internal/router"
	"support-mail-ingest-go/internal/scheduler"
	"support-mail-ingest-go/internal/store"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Support Mail Ingest Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	st := store.New(dbConn)

	var mb pipeline.MailboxClient
	var closeMailbox func() error
	if cfg.Mailbox.UseIMAP {
		imapClient, err := mailbox.NewIMAPClient(&cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create IMAP client: %w", err)
		}
		mb = imapClient
		closeMailbox = imapClient.Close
		logrus.Info("Using IMAP for the support inbox")
	} else {
		gmailClient, err := mailbox.NewGmailClient(&cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create Gmail client: %w", err)
		}
		mb = gmailClient
		logrus.Info("Using the Gmail API for the support inbox")
	}

	ai := classifier.New(&cfg.AI)

	var orderLookup pipeline.OrderLookup
	if cfg.ShipStation.APIKey != "" {
		orderLookup = orders.New(&cfg.ShipStation)
	} else {
		logrus.Warn("ShipStation credentials not configured, order enrichment disabled")
	}

	eventSink, err := events.NewRedisSink(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect event sink: %w", err)
	}
	defer eventSink.Close()

	enricher := pipeline.NewEnricher(ai, orderLookup, nil)
	pipe := pipeline.New(mb, ai, enricher, st, eventSink, nil, pipeline.Config{
		InternalDomain: cfg.Pipeline.InternalDomain,
	})

	alerts := alert.NewNotifier(alert.LogSender{}, 15*time.Minute)
	runner := pipeline.NewBatchRunner(mb, pipe, st, alerts, m, cfg.Pipeline.BatchSize)

	sched := scheduler.New(&cfg.Scheduler, runner)

	h := handler.NewHandlers(dbConn, st, sched)
	r := router.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if closeMailbox != nil {
		if err := closeMailbox(); err != nil {
			logrus.Errorf("Failed to close mailbox client: %v", err)
		}
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
