package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard-engine/internal/api"
	"github.com/vibeboard/vibeboard-engine/internal/bake"
	"github.com/vibeboard/vibeboard-engine/internal/config"
	"github.com/vibeboard/vibeboard-engine/internal/db"
	"github.com/vibeboard/vibeboard-engine/internal/editor"
	"github.com/vibeboard/vibeboard-engine/internal/logging"
	"github.com/vibeboard/vibeboard-engine/internal/media"
	"github.com/vibeboard/vibeboard-engine/internal/metrics"
	"github.com/vibeboard/vibeboard-engine/internal/overlay"
	"github.com/vibeboard/vibeboard-engine/internal/player"
	"github.com/vibeboard/vibeboard-engine/internal/recovery"
	"github.com/vibeboard/vibeboard-engine/internal/studio"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "vibeboard-engine",
		Short:   "VibeBoard timeline engine",
		Long:    "Local engine process that owns timeline composition, synchronized playback\nand session recovery for one open VibeBoard project.",
		Version: config.Version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the engine and its loopback control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vibeboard-engine %s (built %s, commit %s)\n",
				config.Version, config.BuildTime, config.GitCommit)
		},
	})

	return root
}

func run(configPath string) error {
	startTime := time.Now()

	// A .env next to the binary feeds the VIBEBOARD_* overrides below.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment overrides from .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting vibeboard engine",
		"version", config.Version, "data_dir", cfg.DataDir(), "project_id", cfg.ProjectID())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	engineID, err := ensureEngineID(database)
	if err != nil {
		return fmt.Errorf("failed to ensure engine ID: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                  VIBEBOARD ENGINE v" + config.Version + "                    ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Engine ID:  %-45s ║\n", engineID[:16]+"...")
	fmt.Printf("║  Project:    %-45s ║\n", cfg.ProjectID())
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var studioClient studio.Client
	if cfg.StudioURL() != "" {
		httpClient := studio.NewHTTPClient(cfg.StudioURL(), cfg.StudioToken(), logging.WithComponent(logger, "studio"))
		httpClient.SetEngineID(engineID)
		studioClient = httpClient
		logger.Info("studio backend attached",
			"base_url", cfg.StudioURL(), "token", logging.SanitizeToken(cfg.StudioToken()))
	} else {
		studioClient = studio.NewStubClient(logging.WithComponent(logger, "studio"))
		logger.Warn("no studio backend configured, running against the in-memory stub")
	}

	mediaStore, err := media.NewStore(cfg.MediaDir(), logging.WithComponent(logger, "media"))
	if err != nil {
		return fmt.Errorf("failed to open media cache: %w", err)
	}

	var prober media.Prober
	if execProber, err := media.NewExecProber(cfg.FFprobePath(), logging.WithComponent(logger, "media")); err != nil {
		logger.Warn("ffprobe unavailable, upload durations fall back to hints", "error", err)
		prober = media.NewStubProber(logging.WithComponent(logger, "media"))
	} else {
		prober = execProber
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := editor.NewManager(studioClient, cfg.ProjectID(), editor.ModeAdHoc, logging.WithComponent(logger, "editor"))
	if err := manager.Structured().Refresh(ctx); err != nil {
		logger.Warn("initial scene refresh failed", "error", err)
	}

	hub := api.NewHub(logging.WithComponent(logger, "feed"))
	sync := player.New(api.NewHubSurface(hub), cfg.FPS(), logging.WithComponent(logger, "player"))
	manager.SetOnChange(func() { sync.SetSequence(manager.Sequence()) })
	sync.SetSequence(manager.Sequence())
	sync.SetOnChange(func(snap player.Snapshot) { hub.Broadcast("player", snap) })

	collector := metrics.NewCollector()
	collector.ObserveSequenceLen(func() int { return len(manager.Sequence()) })

	recStore := recovery.NewStore(database.Conn())
	recManager := recovery.NewManager(recStore, manager.Adhoc(),
		func() (float64, string) {
			snap := sync.State()
			return snap.CurrentTime, snap.SelectedClipID
		},
		func(snap *recovery.Snapshot) { manager.RestoreAdhoc(snap.Clips) },
		cfg.PageType(), cfg.ProjectID(), cfg.AutosaveInterval(), logging.WithComponent(logger, "recovery"))
	recManager.SetOnSave(collector.RecordAutosave)

	if offer, err := recManager.CheckOnMount(ctx); err != nil {
		logger.Warn("recovery check failed", "error", err)
	} else if offer != nil {
		hub.Broadcast("recovery.offer", offer)
	}
	go recManager.Run(ctx)

	// The compositor fetches media itself, so engine-local cache refs must
	// leave as absolute loopback URLs.
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port())
	resolve := func(ref string) string {
		if strings.HasPrefix(ref, "/media/") {
			return baseURL + ref
		}
		return ref
	}
	bakes := bake.NewOrchestrator(studioClient, bake.NewRepository(database.Conn()), cfg.BakeTimeout(), resolve, logging.WithComponent(logger, "bake"))
	bakes.SetOnUpdate(func(job *bake.Job) {
		collector.RecordBakeStatus(job.Status)
		if job.Done() {
			collector.ObserveBakeDuration(job.UpdatedAt.Sub(job.CreatedAt).Seconds())
		}
		hub.Broadcast("bake", job)
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Logger:    logger,
		StartTime: startTime,
		EngineID:  engineID,
		PageType:  cfg.PageType(),
		ProjectID: cfg.ProjectID(),
		FrameRate: cfg.FPS(),
		Player:    sync,
		Keymap:    player.DefaultKeymap(),
		Editor:    manager,
		Overlays:  overlay.NewLayer(),
		Recovery:  recManager,
		Bakes:     bakes,
		Media:     mediaStore,
		Prober:    prober,
		Studio:    studioClient,
		Metrics:   collector,
		Hub:       hub,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	bakes.Close()
	hub.Close()

	logger.Info("shutdown complete")
	return nil
}

// ensureEngineID loads the persistent engine identity, minting one on
// first run. The id survives restarts so the studio can attribute edits.
func ensureEngineID(database *db.DB) (string, error) {
	ctx := context.Background()

	existing, ok, err := database.GetValue(ctx, "engine_id")
	if err != nil {
		return "", err
	}
	if ok && existing != "" {
		return existing, nil
	}

	engineID := uuid.NewString()
	if err := database.SetValue(ctx, "engine_id", engineID); err != nil {
		return "", err
	}
	return engineID, nil
}
