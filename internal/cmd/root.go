// Package cmd implements the audioforge command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "audioforge",
	Short: "Convert media and playlists to audio files",
	Long: `audioforge converts videos, playlists, and music catalog links into
audio files.

Single videos become MP3 files; playlists become ZIP archives of MP3s.
Catalog links (Spotify tracks and playlists) are matched to playable media
first, which requires API credentials.

Examples:
  # Convert one video
  audioforge convert https://www.youtube.com/watch?v=dQw4w9WgXcQ

  # Convert a playlist at 320 kbit/s
  audioforge convert --bitrate 320 https://www.youtube.com/playlist?list=PLxyz

  # Run a batch of conversions from a manifest
  audioforge convert --job batch.yaml

  # Run the HTTP API server
  audioforge serve --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagVerbose  bool
	flagLogLevel string
)

// versionInfo is set by the main package at build time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build identification used by version and health
// endpoints.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// exitError wraps an error with a message and the process exit code the
// failure maps to.
func exitError(code int, msg string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", msg, err, code)
}
