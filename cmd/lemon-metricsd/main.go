package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/lixrry/lemon-metrics/cache"
	"github.com/lixrry/lemon-metrics/config"
	"github.com/lixrry/lemon-metrics/debug"
	"github.com/lixrry/lemon-metrics/handlers"
	"github.com/lixrry/lemon-metrics/instance"
	"github.com/lixrry/lemon-metrics/jobs"
	"github.com/lixrry/lemon-metrics/metrics"
	"github.com/lixrry/lemon-metrics/scheduler"
	"github.com/lixrry/lemon-metrics/scrape"
)

// version is set at build time via ldflags
var version = "dev"

type InfoResponse struct {
	Component string `json:"component"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Target    string `json:"target,omitempty"`
}

// ServiceInfo provides the /info payload and metrics labels
type ServiceInfo struct {
	scraper *scrape.Scraper
}

func NewServiceInfo(scraper *scrape.Scraper) *ServiceInfo {
	return &ServiceInfo{scraper: scraper}
}

func (s *ServiceInfo) GetInfo() interface{} {
	hostname, _ := os.Hostname()

	return InfoResponse{
		Component: "lemon-metricsd",
		Version:   version,
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Target:    s.scraper.Target(),
	}
}

func (s *ServiceInfo) GetVersion() string {
	return version
}

func (s *ServiceInfo) GetTargetURL() string {
	return s.scraper.Target()
}

// setupLogging configures logging to write to both stdout and a log file
func setupLogging() (*os.File, error) {
	logDir := "/var/log/lemon-metrics"
	logFile := filepath.Join(logDir, "lemon-metricsd.log")

	// Try to create log file, but don't fail if we can't
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// If we can't create the log file, just log to stdout
		log.Printf("Warning: could not open log file %s: %v (logging to stdout only)", logFile, err)
		return nil, nil
	}

	// Log to both stdout (systemd journal) and file
	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags)

	return file, nil
}

func main() {
	// Setup logging to both stdout and file
	logFile, _ := setupLogging()
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	// Load configuration from file with environment variable overrides
	cfg, err := config.LoadConfigWithDefaults()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := cfg.Port

	// Initialize debug configuration
	debugConfig := debug.NewDebugConfig(cfg.DebugEnabled)
	if debugConfig.IsEnabled() {
		log.Println("Debug mode ENABLED - /debug endpoints available")
	}

	log.Printf("lemon-metricsd v%s starting", version)
	log.Printf("Configuration: port=%s, data_dir=%s, target=%q, debug=%v",
		port, cfg.DataDir, cfg.TargetURL, cfg.DebugEnabled)

	// Initialize instance UUID
	instanceUUID, err := instance.NewUUID(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize instance UUID: %v", err)
	}
	log.Printf("Instance UUID: %s", instanceUUID)

	// Core components: scraper, snapshot cache, collection stats
	scraper := scrape.New(cfg.TargetURL, cfg.ScrapeTimeout)
	store := cache.NewStore()
	stats := metrics.NewStats()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler for the periodic refresh
	refreshJob := jobs.NewRefreshMetricsJob(scraper, store, stats)

	var sched *scheduler.Scheduler
	if cfg.RefreshEnabled {
		log.Println("Initializing scheduled jobs...")
		sched = scheduler.New()

		if err := sched.AddJob(
			refreshJob,
			scheduler.NewIntervalScheduleWithJitter(cfg.RefreshInterval, cfg.RefreshJitter),
			scheduler.JobConfig{
				Enabled: true,
				Timeout: cfg.RefreshTimeout,
			},
		); err != nil {
			log.Fatalf("Failed to add refresh job: %v", err)
		}
		log.Printf("Scheduled %s job (interval: %v, timeout: %v)",
			refreshJob.Name(), cfg.RefreshInterval, cfg.RefreshTimeout)

		if err := sched.Start(ctx); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		log.Println("Scheduler started")
	}

	// Setup HTTP server
	infoProvider := NewServiceInfo(scraper)

	mux := http.NewServeMux()
	handlers.RegisterHandlers(mux, infoProvider)

	var trigger handlers.JobTrigger
	if sched != nil {
		trigger = sched
	}
	handlers.RegisterMetricsAPIHandlers(mux, scraper, store, stats, trigger, refreshJob.Name())

	// Register debug handlers if debug mode is enabled
	handlers.RegisterDebugHandlers(mux, debugConfig)
	if debugConfig.IsEnabled() {
		handlers.RegisterJobsHandlers(mux, sched)
	}

	// Register Prometheus metrics endpoint
	collector := metrics.NewCollector(infoProvider, instanceUUID.String(), stats, metrics.DefaultCollectorConfig())
	metrics.RegisterMetricsHandler(mux, collector)

	// Initialize OpenTelemetry metrics exporter if enabled
	var otelExporter *metrics.OTELExporter
	if cfg.OTELEnabled {
		log.Printf("Initializing OpenTelemetry metrics exporter (endpoint: %s, protocol: %s, interval: %v)",
			cfg.OTELEndpoint, cfg.OTELProtocol, cfg.OTELPushInterval)

		otelConfig := metrics.OTELConfig{
			Endpoint:     cfg.OTELEndpoint,
			Protocol:     metrics.OTELProtocol(cfg.OTELProtocol),
			PushInterval: cfg.OTELPushInterval,
			Insecure:     cfg.OTELInsecure,
		}

		var err error
		otelExporter, err = metrics.NewOTELExporter(ctx, infoProvider, instanceUUID.String(), stats, otelConfig)
		if err != nil {
			log.Printf("Warning: Failed to initialize OTEL exporter: %v (continuing without OTEL)", err)
		} else {
			otelExporter.Start()
			log.Println("OpenTelemetry metrics exporter started")
		}
	}

	// Wrap with logging middleware if debug enabled
	var handler http.Handler = mux
	if debugConfig.IsEnabled() {
		handler = debug.LoggingMiddleware(debugConfig, mux)
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("lemon-metricsd listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, shutting down gracefully...")

	// Stop the scheduler before tearing anything else down
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Printf("Error stopping scheduler: %v", err)
		}
	}
	cancel()

	// Shutdown OTEL exporter if running
	if otelExporter != nil {
		log.Println("Shutting down OpenTelemetry exporter...")
		if err := otelExporter.Shutdown(); err != nil {
			log.Printf("Error shutting down OTEL exporter: %v", err)
		}
	}

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("lemon-metricsd stopped")
}
