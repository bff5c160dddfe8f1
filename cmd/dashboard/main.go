package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/coldchain/fridgewatch/internal/controller"
	"github.com/coldchain/fridgewatch/internal/host"
	"github.com/coldchain/fridgewatch/internal/publish"
	"github.com/coldchain/fridgewatch/internal/sched"
	"github.com/coldchain/fridgewatch/internal/store"
	"github.com/coldchain/fridgewatch/internal/view"
	"github.com/coldchain/fridgewatch/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Dashboard Service...")

	provider, cleanup, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to set up telemetry source: %v", err)
	}
	defer cleanup()

	st := store.New(provider, cfg.Source.Location())

	defaultView, err := view.ParseID(cfg.Dashboard.DefaultView)
	if err != nil {
		log.Fatalf("Invalid default view: %v", err)
	}

	opts := view.Options{
		HistogramBins: cfg.Dashboard.HistogramBins,
		PFFair:        cfg.Dashboard.PFFair,
		PFGood:        cfg.Dashboard.PFGood,
		GaugeHeadroom: cfg.Dashboard.GaugeHeadroom,
		GaugeFloor:    cfg.Dashboard.GaugeFloor,
	}

	// Renderers: the HTTP stream registry always, Redis and Kafka when
	// reachable.
	registry := host.NewRegistry(cfg.HTTP.MaxSubscribers)
	renderers := publish.Fanout{registry}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		fmt.Printf("Note: Redis unreachable, snapshot publishing disabled: %v\n", err)
	} else {
		renderers = append(renderers, publish.NewSnapshotStore(redisClient, cfg.Dashboard.SnapshotTTL))
		fmt.Println("Connected to Redis")
	}

	updateProducer := publish.NewUpdateProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicUpdates)
	defer updateProducer.Close()
	renderers = append(renderers, updateProducer)
	fmt.Println("Update stream producer initialized")

	ctrl := controller.New(st, renderers, defaultView, cfg.Dashboard.StartLive, opts)
	ctrl.Start()
	defer ctrl.Stop()
	fmt.Println("Controller started")

	scheduler := sched.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()
	if err := scheduler.Every("refresh-tick", cfg.Dashboard.RefreshInterval, ctrl.Tick); err != nil {
		log.Fatalf("Failed to schedule refresh tick: %v", err)
	}
	fmt.Printf("Refresh tick scheduled every %s\n", cfg.Dashboard.RefreshInterval)

	server := host.NewServer(cfg.HTTP.Port, ctrl, registry)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start HTTP host: %v", err)
	}
	defer server.Stop()

	fmt.Println("\n✓ Dashboard Service is running")
	fmt.Printf("✓ Source: %s | Default view: %s | Live: %v\n",
		cfg.Source.Kind, cfg.Dashboard.DefaultView, cfg.Dashboard.StartLive)
	fmt.Println("✓ Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

func buildProvider(cfg *config.Config) (store.Provider, func(), error) {
	switch cfg.Source.Kind {
	case "csv":
		fmt.Printf("Reading telemetry from %s\n", cfg.Source.CSVPath)
		return store.NewCSVProvider(cfg.Source.CSVPath), func() {}, nil

	case "postgres":
		db, err := store.Connect(cfg.Database.ConnectionString())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		fmt.Println("Connected to database")
		return store.NewPostgresProvider(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
