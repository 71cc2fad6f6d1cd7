package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aisleview/shelfwatch/internal/api"
	"github.com/aisleview/shelfwatch/internal/config"
	"github.com/aisleview/shelfwatch/internal/detect"
	"github.com/aisleview/shelfwatch/internal/monitoring"
	"github.com/aisleview/shelfwatch/internal/pipeline"
	"github.com/aisleview/shelfwatch/internal/shelf"
	"github.com/aisleview/shelfwatch/internal/storage/sqlite"
	"github.com/aisleview/shelfwatch/internal/track"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file (optional)")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Event database path (overrides config)")
	source     = flag.String("source", "", "Video source (overrides config)")
	autostart  = flag.Bool("autostart", true, "Start the pipeline on boot")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *source != "" {
		cfg.VideoSource = *source
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	src, detector, err := buildSource(cfg.VideoSource)
	if err != nil {
		log.Fatalf("failed to build video source: %v", err)
	}

	registry, err := track.NewRegistry(cfg.Tracker)
	if err != nil {
		log.Fatalf("failed to build track registry: %v", err)
	}
	monitor, err := shelf.NewMonitor(cfg.Shelves, cfg.HistoryDepth)
	if err != nil {
		log.Fatalf("failed to build shelf monitor: %v", err)
	}

	drv, err := pipeline.New(src, detector, registry, monitor, pipeline.Options{
		Stride: cfg.FrameStride,
	})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open event database: %v", err)
	}
	defer store.Close()

	// Persist every event the pipeline emits.
	drv.AddConsumer(func(r *pipeline.Result) {
		for _, ev := range r.Events {
			if err := store.InsertEvent(ev); err != nil {
				monitoring.Logf("[main] persist event %s: %v", ev.ID, err)
			}
		}
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *autostart {
		drv.Start()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    cfg.Listen,
			Handler: api.NewServer(drv, store).Handler(),
		}

		go func() {
			monitoring.Logf("[main] listening on %s", cfg.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("[main] shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("[main] HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	drv.Stop()
	monitoring.Logf("[main] graceful shutdown complete")
}

// buildSource maps the configured video source name onto a frame source and
// detector pair. Only the synthetic demo source ships today; camera and file
// capture plug in here.
func buildSource(name string) (detect.FrameSource, detect.Detector, error) {
	switch name {
	case "synthetic":
		return detect.NewSyntheticSource(), detect.NewDemoDetector(), nil
	default:
		return nil, nil, fmt.Errorf("unknown video source %q", name)
	}
}
