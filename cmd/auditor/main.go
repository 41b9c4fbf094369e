package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/cardinality-auditor/internal/alert"
	"github.com/yourusername/cardinality-auditor/internal/auditor"
	"github.com/yourusername/cardinality-auditor/internal/cdc"
	"github.com/yourusername/cardinality-auditor/internal/config"
	"github.com/yourusername/cardinality-auditor/internal/guardrail"
	"github.com/yourusername/cardinality-auditor/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	metricsAddr := flag.String("metrics-addr", "", "address for /metrics, overriding the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	guard := guardrail.New(cfg.Guardrail)
	if err := guard.ValidateConfig(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr == "" {
		addr = ":9090"
	}

	// Start metrics server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("Metrics server listening on %s", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatalf("Metrics server failed: %v", err)
		}
	}()

	db, err := storage.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to prepare reports table: %v", err)
	}

	// An empty slot name runs the auditor on periodic scans alone.
	var events <-chan cdc.Event
	if cfg.CDC.SlotName != "" {
		listener := cdc.NewListener(cfg.CDC, cfg.Database)
		if err := listener.Start(); err != nil {
			log.Fatalf("Failed to start CDC listener: %v", err)
		}
		defer listener.Stop()
		events = listener.Events()
	}

	aud, err := auditor.New(db, cfg, guard,
		alert.NewDetector(cfg.Alert), alert.NewNotifier(cfg.Alert.WebhookURL), events)
	if err != nil {
		log.Fatalf("Failed to build auditor: %v", err)
	}

	go aud.Run(ctx)

	log.Println("Cardinality Auditor started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	log.Println("Goodbye")
}
