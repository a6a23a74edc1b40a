package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/audioforge/audioforge/internal/config"
	"github.com/audioforge/audioforge/internal/observability"
	"github.com/audioforge/audioforge/pkg/archive"
	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/fsutil"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/manifest"
	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/runner"
	"github.com/audioforge/audioforge/pkg/transcode"
	"github.com/audioforge/audioforge/pkg/validate"
)

var convertCmd = &cobra.Command{
	Use:   "convert [url]",
	Short: "Convert a video, playlist, or catalog link to audio",
	Long: `Convert a video, playlist, or catalog link to audio.

Given a url argument, converts that one reference and waits for the result.
With --job, runs every conversion listed in a batch manifest sequentially.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

var (
	convertBitrate int
	convertJobPath string
	convertOutDir  string
)

// pollInterval is how often job progress is sampled while waiting.
const pollInterval = 500 * time.Millisecond

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().IntVarP(&convertBitrate, "bitrate", "b", 0, "Audio bitrate in kbit/s (64|128|192|256|320)")
	convertCmd.Flags().StringVar(&convertJobPath, "job", "", "Path to a batch conversion manifest (YAML or JSON)")
	convertCmd.Flags().StringVarP(&convertOutDir, "output", "o", "", "Output directory (overrides config)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 && convertJobPath == "" {
		return exitError(foundry.ExitInvalidArgument, "Nothing to convert", fmt.Errorf("pass a url or --job manifest"))
	}
	if len(args) == 1 && convertJobPath != "" {
		return exitError(foundry.ExitInvalidArgument, "Ambiguous input", fmt.Errorf("pass either a url or --job, not both"))
	}

	overrides := map[string]any{}
	if convertOutDir != "" {
		overrides["storage"] = map[string]any{"dir": convertOutDir}
	}
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	observability.InitCLILogger(flagLogLevel, flagVerbose)
	defer observability.Sync()
	logger := observability.CLILogger

	if err := fsutil.EnsureDir(cfg.Storage.Dir); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create output directory", err)
	}

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
		}
	}
	run := runner.New(store, source, transcode.NewFFmpeg(), archive.NewZipPacker(), cfg.Storage.Dir, opts...)

	if convertJobPath != "" {
		return runBatch(ctx, cmd, run, cfg)
	}

	bitrate := convertBitrate
	if bitrate == 0 {
		bitrate = cfg.Convert.DefaultBitrate
	}
	return convertRef(ctx, cmd, run, args[0], bitrate)
}

func runBatch(ctx context.Context, cmd *cobra.Command, run *runner.Runner, cfg *config.Config) error {
	m, err := manifest.Load(convertJobPath)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid batch manifest", err)
	}

	cmd.Printf("Running %d conversions from %s\n", len(m.Conversions), convertJobPath)

	var failures int
	for i, entry := range m.Conversions {
		bitrate := m.EffectiveBitrate(entry)
		if convertBitrate != 0 {
			bitrate = convertBitrate
		}
		cmd.Printf("[%d/%d] %s\n", i+1, len(m.Conversions), entry.URL)
		if err := convertRef(ctx, cmd, run, entry.URL, bitrate); err != nil {
			if ctx.Err() != nil {
				return exitError(foundry.ExitSignalInt, "Batch cancelled", ctx.Err())
			}
			observability.CLILogger.Warn("batch entry failed",
				zap.String("url", entry.URL), zap.Error(err))
			failures++
		}
	}

	if failures > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "Batch completed with failures",
			fmt.Errorf("failed=%d of %d", failures, len(m.Conversions)))
	}
	cmd.Println("Batch completed")
	return nil
}

func convertRef(ctx context.Context, cmd *cobra.Command, run *runner.Runner, ref string, bitrate int) error {
	if !validate.IsValidBitrate(bitrate) {
		return exitError(foundry.ExitInvalidArgument, "Invalid bitrate",
			fmt.Errorf("%d is not one of %v", bitrate, validate.Bitrates))
	}

	var (
		res *runner.StartResult
		err error
	)
	switch validate.Classify(ref) {
	case validate.RefVideo:
		res, err = run.StartSingle(ctx, ref, bitrate)
	case validate.RefVideoPlaylist:
		res, err = run.StartPlaylist(ctx, ref, bitrate)
	case validate.RefCatalogTrack:
		res, err = run.StartCatalogTrack(ctx, ref, bitrate)
	case validate.RefCatalogPlaylist:
		res, err = run.StartCatalogPlaylist(ctx, ref, bitrate)
	default:
		return exitError(foundry.ExitInvalidArgument, "Unrecognized reference",
			fmt.Errorf("%q is not a video, playlist, or catalog link", ref))
	}
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to start conversion", err)
	}

	cmd.Printf("Converting %q", res.Title)
	if res.TotalItems > 0 {
		cmd.Printf(" (%d items)", res.TotalItems)
	}
	cmd.Println()

	job, err := waitForJob(ctx, run.Store(), res.JobID)
	if err != nil {
		return exitError(foundry.ExitSignalInt, "Conversion cancelled", err)
	}

	switch job.Status {
	case jobstore.StatusCompleted:
		path, pathErr := run.ArtifactPath(job.ID)
		if pathErr != nil {
			return exitError(foundry.ExitFileNotFound, "Artifact missing", pathErr)
		}
		cmd.Printf("Done: %s\n", path)
		if job.Error != "" {
			cmd.Printf("Warning: %s\n", job.Error)
		}
		return nil
	default:
		return exitError(foundry.ExitExternalServiceUnavailable, "Conversion failed",
			fmt.Errorf("%s", job.Error))
	}
}

// waitForJob polls until the job reaches a terminal state or ctx is
// cancelled.
func waitForJob(ctx context.Context, store *jobstore.Store, id string) (jobstore.Job, error) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return jobstore.Job{}, ctx.Err()
		case <-t.C:
			job, ok := store.Get(id)
			if !ok {
				return jobstore.Job{}, fmt.Errorf("job %s disappeared", id)
			}
			if job.Status.Terminal() {
				return job, nil
			}
		}
	}
}
