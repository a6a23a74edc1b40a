package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// test seam, same shape as the rest of the CLI wrappers
var commandContext = exec.CommandContext

// FFmpeg encodes audio by piping the input stream through the ffmpeg
// command-line tool, reading machine-parsable progress from stdout.
type FFmpeg struct {
	binary string
}

// FFmpegOption configures the FFmpeg encoder.
type FFmpegOption func(*FFmpeg)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) FFmpegOption {
	return func(e *FFmpeg) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// NewFFmpeg constructs an ffmpeg-backed encoder using defaults.
func NewFFmpeg(opts ...FFmpegOption) *FFmpeg {
	enc := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(enc)
	}
	return enc
}

// Encode runs ffmpeg, feeding in on stdin and writing an MP3 file at
// opts.DestPath. Progress lines on stdout are translated into floored
// integer percentages; 100 is only reported once ffmpeg has exited cleanly.
func (e *FFmpeg) Encode(ctx context.Context, in io.Reader, opts Options, progress ProgressFunc) error {
	if in == nil {
		return errors.New("input stream required")
	}
	if strings.TrimSpace(opts.DestPath) == "" {
		return errors.New("destination path required")
	}
	if opts.Bitrate <= 0 {
		return errors.New("bitrate required")
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-b:a", fmt.Sprintf("%dk", opts.Bitrate),
		"-f", "mp3",
		"-progress", "pipe:1",
		"-nostats",
		opts.DestPath,
	}
	cmd := commandContext(ctx, e.binary, args...) //nolint:gosec
	cmd.Stdin = in

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	last := 0
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		pct, ok := parseProgressLine(scanner.Text(), opts.Duration)
		if !ok || progress == nil {
			continue
		}
		// Cap at 99 until the process exits; a truncated write must not look
		// complete to pollers.
		if pct > 99 {
			pct = 99
		}
		if pct > last {
			last = pct
			progress(pct)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("read ffmpeg progress: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("ffmpeg encode failed: %w: %s", err, detail)
		}
		return fmt.Errorf("ffmpeg encode failed: %w", err)
	}

	if progress != nil {
		progress(100)
	}
	return nil
}

// parseProgressLine extracts a floored percentage from one key=value line of
// ffmpeg -progress output. Only out_time_ms lines produce a value, and only
// when the total duration is known.
func parseProgressLine(line string, total time.Duration) (int, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found || key != "out_time_ms" || total <= 0 {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	// out_time_ms is in microseconds despite the name.
	elapsed := time.Duration(us) * time.Microsecond
	pct := int(elapsed * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

var _ Encoder = (*FFmpeg)(nil)
