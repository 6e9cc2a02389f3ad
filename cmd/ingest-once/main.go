// ingest-once wires the pipeline and runs a single ingestion batch, for
// cron jobs and manual runs. The long-running service lives in cmd/ingestd.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/alert"
	"support-mail-ingest-go/internal/classifier"
	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/database"
	"support-mail-ingest-go/internal/events"
	"support-mail-ingest-go/internal/mailbox"
	"support-mail-ingest-go/internal/metrics"
	"support-mail-ingest-go/internal/orders"
	"support-mail-ingest-go/internal/pipeline"
	"support-mail-ingest-go/internal/store"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	st := store.New(dbConn)

	var mb pipeline.MailboxClient
	if cfg.Mailbox.UseIMAP {
		imapClient, err := mailbox.NewIMAPClient(&cfg.Mailbox)
		if err != nil {
			logrus.Fatalf("Failed to create IMAP client: %v", err)
		}
		defer imapClient.Close()
		mb = imapClient
	} else {
		gmailClient, err := mailbox.NewGmailClient(&cfg.Mailbox)
		if err != nil {
			logrus.Fatalf("Failed to create Gmail client: %v", err)
		}
		mb = gmailClient
	}

	ai := classifier.New(&cfg.AI)

	var orderLookup pipeline.OrderLookup
	if cfg.ShipStation.APIKey != "" {
		orderLookup = orders.New(&cfg.ShipStation)
	}

	eventSink, err := events.NewRedisSink(&cfg.Redis)
	if err != nil {
		logrus.Fatalf("Failed to connect event sink: %v", err)
	}
	defer eventSink.Close()

	enricher := pipeline.NewEnricher(ai, orderLookup, nil)
	pipe := pipeline.New(mb, ai, enricher, st, eventSink, nil, pipeline.Config{
		InternalDomain: cfg.Pipeline.InternalDomain,
	})

	alerts := alert.NewNotifier(alert.LogSender{}, 15*time.Minute)
	runner := pipeline.NewBatchRunner(mb, pipe, st, alerts, metrics.New(prometheus.NewRegistry()), cfg.Pipeline.BatchSize)

	summary, err := runner.Run(context.Background())
	if err != nil {
		logrus.Fatalf("Ingestion batch failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logrus.Fatalf("Failed to print summary: %v", err)
	}
}
