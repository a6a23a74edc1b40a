package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/audioforge/audioforge/internal/config"
	"github.com/audioforge/audioforge/internal/observability"
	"github.com/audioforge/audioforge/pkg/jobstore"
	"github.com/audioforge/audioforge/pkg/reaper"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired files from the storage directory",
	Long: `Remove expired files from the storage directory.

Runs one retention sweep and exits: files older than the retention window
are removed, honoring the configured keep patterns.`,
	RunE: runCleanup,
}

var cleanupStorageDir string

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().StringVar(&cleanupStorageDir, "storage-dir", "", "Storage directory (overrides config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	if cleanupStorageDir != "" {
		overrides["storage"] = map[string]any{"dir": cleanupStorageDir}
	}
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	observability.InitCLILogger(flagLogLevel, flagVerbose)
	defer observability.Sync()

	rp := reaper.New(jobstore.NewStore(), reaper.Config{
		StorageDir:   cfg.Storage.Dir,
		MaxAge:       cfg.Cleanup.MaxAge,
		Interval:     cfg.Cleanup.Interval,
		KeepPatterns: cfg.Storage.KeepPatterns,
	}, reaper.WithLogger(observability.CLILogger))

	summary := rp.Sweep(ctx)
	cmd.Printf("Removed %d files (%d errors)\n", summary.FilesRemoved, summary.Errors)
	return nil
}
