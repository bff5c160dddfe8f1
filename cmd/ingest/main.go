package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldchain/fridgewatch/internal/ingest"
	"github.com/coldchain/fridgewatch/internal/store"
	"github.com/coldchain/fridgewatch/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Ingest Service...")

	db, err := store.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := ingest.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicReadings,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	consumer := ingest.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings, "ingest-group")
	defer consumer.Close()

	batchWriter := ingest.NewBatchWriter(consumer, db, cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	if err := batchWriter.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start batch writer: %v", err)
	}
	fmt.Println("Batch writer started")

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := consumer.Stats()
			fmt.Printf("Consumer stats: Messages=%d, Bytes=%d, Errors=%d\n",
				stats.Messages, stats.Bytes, stats.Errors)
		}
	}()

	fmt.Println("\n✓ Ingest Service is running")
	fmt.Printf("✓ Consuming %s and writing to PostgreSQL\n", cfg.Kafka.TopicReadings)
	fmt.Printf("✓ Batch size: %d | Flush interval: %s\n", cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	fmt.Println("✓ Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	batchWriter.Stop()
	fmt.Println("Ingest Service stopped")
}
