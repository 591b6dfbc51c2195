package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/collector/emailauth"
	"github.com/sentrywatch/threatwatch/internal/collector/exposure"
	"github.com/sentrywatch/threatwatch/internal/collector/infraconfig"
	"github.com/sentrywatch/threatwatch/internal/collector/investigation"
	"github.com/sentrywatch/threatwatch/internal/collector/networksec"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/darkweb"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/orchestrator"
	"github.com/sentrywatch/threatwatch/internal/queue"
	"github.com/sentrywatch/threatwatch/internal/risk"
	"github.com/sentrywatch/threatwatch/internal/storage"
	"github.com/sentrywatch/threatwatch/internal/torproxy"
	"github.com/sentrywatch/threatwatch/internal/transport/wsobserver"
)

// configPaths supports multiple -config flags, later files overriding
// earlier ones (grounded on the teacher's cmd/quaero/main.go flag shape).
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	showVersion = flag.Bool("version", false, "Print version information")
	quickScan   = flag.String("quick-scan", "", "Run quick_scan against a domain and exit, instead of starting the service")
	workerCount = flag.Int("workers", 4, "Number of parallel job-execution workers")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (repeatable, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("threatwatch version " + common.GetFullVersion())
		os.Exit(0)
	}

	cfg, err := common.LoadConfig(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Strs("paths", configFiles).Msg("failed to load configuration")
		os.Exit(1)
	}

	logger := common.SetupLogger(cfg)
	common.PrintBanner(cfg, logger)

	if cfg.Tor.Required {
		client, err := torproxy.NewClient(cfg.Tor)
		if err != nil {
			logger.Fatal().Err(err).Msg("tor required but socks5 dialer could not be built")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.HealthCheck(ctx); err != nil {
			logger.Fatal().Err(err).Msg("tor_required=true but tor proxy is unreachable")
		}
	}

	db, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer db.Close()

	registry, err := buildRegistry(cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build collector registry")
	}

	q := queue.NewStore(cfg.Queue.Capacity)
	observers := bus.NewObserverRegistry()
	findingBus := bus.NewFindingBus(observers)
	riskEngine := risk.NewEngine()
	notifier := orchestrator.NewLoggingNotifier(logger)

	orch := orchestrator.New(q, findingBus, observers, registry, riskEngine, db, notifier, logger)

	if *quickScan != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		summary, err := orch.QuickScan(ctx, *quickScan, "")
		if err != nil {
			logger.Fatal().Err(err).Str("target", *quickScan).Msg("quick_scan failed")
		}
		logger.Info().Str("target", summary.Target).Int("findings", len(summary.Findings)).
			Float64("risk_score", summary.RiskScore.OverallScore).Str("risk_level", string(summary.RiskScore.RiskLevel)).
			Msg("quick_scan complete")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go orch.RunWorkers(ctx, *workerCount)

	scheduler := orchestrator.NewScheduler(orch, logger)
	if cfg.Scheduler.Enabled {
		scheduler.Start(ctx)
	}

	wsHandler := wsobserver.NewHandler(observers, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/jobs/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/ws/jobs/")
		if jobID == "" {
			http.NotFound(w, r)
			return
		}
		wsHandler.Serve(w, r, jobID)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("observer websocket endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("observer http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("observer http server shutdown failed")
	}
	logger.Info().Msg("stopped")
}

// buildRegistry wires every capability's collector into the registry
// with its capability default config, per §4.13 step 2 ("Merge config
// over capability default_config").
func buildRegistry(cfg *common.Config, db *storage.DB, logger arbor.ILogger) (*collector.Registry, error) {
	registry := collector.NewRegistry()

	registry.Register(models.CapabilityExposureDiscovery,
		exposure.NewPipeline(cfg.Crawler, cfg.GitHub, logger), nil)

	registry.Register(models.CapabilityEmailSecurity,
		emailauth.NewPipeline(cfg.EmailAuth, logger), nil)

	registry.Register(models.CapabilityInfrastructureTest,
		infraconfig.NewPipeline(cfg.InfraConfig, logger), nil)

	registry.Register(models.CapabilityInvestigation,
		investigation.NewPipeline(cfg.Investigation, logger, nil, nil), nil)

	registry.Register(models.CapabilityNetworkSecurity,
		networksec.NewPipeline(cfg.NetworkSecurity, logger), nil)

	urldb, err := darkweb.NewURLDatabase(db)
	if err != nil {
		return nil, fmt.Errorf("open dark-web url database: %w", err)
	}
	siteGraph := darkweb.NewSiteGraph()
	registry.Register(models.CapabilityDarkWebIntel,
		darkweb.NewPipeline(cfg.DarkWeb, cfg.Tor, urldb, siteGraph, logger), nil)

	return registry, nil
}
