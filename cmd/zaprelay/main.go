package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zaprelay/pkg/aggregator"
	"zaprelay/pkg/bus"
	"zaprelay/pkg/config"
	"zaprelay/pkg/liveness"
	"zaprelay/pkg/logger"
	"zaprelay/pkg/pipeline"
	"zaprelay/pkg/server"
	"zaprelay/pkg/session"
	"zaprelay/pkg/voice"
	"zaprelay/pkg/webhook"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		fmt.Println("Configuration errors:")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	if cfg.Logging.Debug {
		logger.SetLevel(logger.DEBUG)
	}
	if cfg.Logging.Enabled {
		if err := logger.EnableFileLogging(cfg.LogFilePath(), cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
			fmt.Printf("Warning: file logging disabled: %v\n", err)
		}
	}

	logger.InfoCF("main", "Starting zaprelay", map[string]interface{}{
		"version": version,
	})

	eventBus := bus.NewEventBus()
	dispatcher := webhook.NewDispatcher(cfg.WebhookURL)
	transcriber := voice.NewGroqTranscriber(cfg.GroqAPIKey, cfg.GroqAPIBase)

	imageGroups := aggregator.New(cfg.ImageDebounce, func(evt webhook.Event) {
		_ = dispatcher.Deliver(context.Background(), evt)
	})

	// The monitor needs the supervisor's heartbeat and the supervisor needs
	// the monitor's activity mark, so the mark goes through a closure over a
	// variable assigned right after.
	var monitor *liveness.Monitor
	supervisor := session.NewSupervisor(cfg.SessionStorePath(), eventBus, func() {
		monitor.MarkActivity()
	})
	monitor = liveness.NewMonitor(cfg.HeartbeatInterval, cfg.WatchdogThreshold, supervisor.Heartbeat, nil)

	relay := pipeline.New(eventBus, transcriber, imageGroups, dispatcher)
	httpServer := server.NewServer(cfg.Addr(), supervisor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := supervisor.Start(ctx); err != nil {
		logger.FatalCF("main", "Failed to start session", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	fmt.Println("✓ Session started")

	relay.Start(ctx)
	monitor.Start()

	if err := httpServer.Start(); err != nil {
		logger.FatalCF("main", "Failed to start HTTP server", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	fmt.Printf("✓ Server listening on %s\n", cfg.Addr())
	fmt.Println("Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	logger.InfoC("main", "Shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.WarnCF("main", "HTTP server shutdown error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}

	monitor.Stop()
	supervisor.Stop()
	relay.Stop()
	imageGroups.Stop()
	eventBus.Close()

	logger.InfoC("main", "Shutdown complete")
}
