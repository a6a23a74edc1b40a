package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/audioforge/audioforge/internal/config"
	"github.com/audioforge/audioforge/internal/observability"
	"github.com/audioforge/audioforge/internal/server"
	"github.com/audioforge/audioforge/internal/server/handlers"
	"github.com/audioforge/audioforge/pkg/archive"
	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/fsutil"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/reaper"
	"github.com/audioforge/audioforge/pkg/runner"
	"github.com/audioforge/audioforge/pkg/transcode"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

The server accepts conversion requests, tracks job progress, serves finished
artifacts, and periodically evicts expired jobs and files.`,
	RunE: runServe,
}

var (
	serveHost       string
	servePort       int
	serveStorageDir string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveStorageDir, "storage-dir", "", "Artifact storage directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overrides := map[string]any{}
	serverOverrides := map[string]any{}
	if cmd.Flags().Changed("host") {
		serverOverrides["host"] = serveHost
	}
	if cmd.Flags().Changed("port") {
		serverOverrides["port"] = servePort
	}
	if len(serverOverrides) > 0 {
		overrides["server"] = serverOverrides
	}
	if cmd.Flags().Changed("storage-dir") {
		overrides["storage"] = map[string]any{"dir": serveStorageDir}
	}
	if flagVerbose {
		overrides["logging"] = map[string]any{"level": "debug"}
	} else if cmd.Flags().Changed("log-level") {
		overrides["logging"] = map[string]any{"level": flagLogLevel}
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if err := observability.InitServerLogger(cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer observability.Sync()
	logger := observability.ServerLogger

	if err := fsutil.EnsureDir(cfg.Storage.Dir); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create storage directory", err)
	}
	cleanStaleScratchDirs(cfg.Storage.Dir, logger)

	if err := mediasource.EnsureTool(ctx); err != nil {
		logger.Warn("media tool provisioning failed, relying on system install", zap.Error(err))
	}

	source := mediasource.NewYTDLP(
		mediasource.WithWorkDir(cfg.Storage.Dir),
		mediasource.WithLogger(logger),
	)
	store := jobstore.NewStore()

	opts := []runner.Option{runner.WithLogger(logger)}
	if cfg.Catalog.Enabled() {
		provider, err := catalog.NewSpotify(ctx, catalog.SpotifyConfig{
			ClientID:     cfg.Catalog.ClientID,
			ClientSecret: cfg.Catalog.ClientSecret,
		}, source, logger)
		if err != nil {
			logger.Warn("catalog setup failed, continuing without catalog support", zap.Error(err))
		} else {
			opts = append(opts, runner.WithCatalog(provider))
			logger.Info("catalog support enabled")
		}
	}

	run := runner.New(store, source, transcode.NewFFmpeg(), archive.NewZipPacker(), cfg.Storage.Dir, opts...)

	rp := reaper.New(store, reaper.Config{
		StorageDir:   cfg.Storage.Dir,
		MaxAge:       cfg.Cleanup.MaxAge,
		Interval:     cfg.Cleanup.Interval,
		KeepPatterns: cfg.Storage.KeepPatterns,
	}, reaper.WithLogger(logger))
	rp.Start()
	defer rp.Stop()

	hm := handlers.InitHealthManager(versionInfo.Version)
	server.RegisterHealthChecks(hm, cfg.Storage.Dir)

	srv := server.New(cfg.Server, cfg.RateLimit, server.Deps{
		Conversions: handlers.NewConversions(run, store, cfg.Convert.DefaultBitrate),
		Info:        handlers.NewInfo(source),
		Version: handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		},
	})

	if err := srv.Start(ctx); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	logger.Info("server stopped")
	return nil
}

// cleanStaleScratchDirs removes conversion scratch dirs left behind by a
// previous run. Tracked state is in memory only, so after a restart every
// scratch dir is stale.
func cleanStaleScratchDirs(storageDir string, logger *zap.Logger) {
	matches, err := filepath.Glob(filepath.Join(storageDir, jobstore.WorkDirPrefix+"*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := fsutil.Remove(path); err != nil {
			logger.Warn("failed to remove stale scratch dir", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("removed stale scratch dir", zap.String("path", path))
	}
}
