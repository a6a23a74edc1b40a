// Package transcode defines the audio encoding boundary. The orchestration
// core hands an input stream and a target bitrate to an Encoder and observes
// integer progress percentages; codec and container details never leak out.
package transcode

import (
	"context"
	"io"
	"time"
)

// ProgressFunc receives encoding progress as an integer percentage, 0-100.
// Values are emitted in order and never decrease.
type ProgressFunc func(percent int)

// Options configures one encode operation.
type Options struct {
	// Bitrate is the target audio bitrate in kbit/s.
	Bitrate int

	// Duration of the source audio, used to derive progress percentages.
	// Zero disables fine-grained progress; only completion is reported.
	Duration time.Duration

	// DestPath is where the encoded file is written.
	DestPath string
}

// Encoder consumes a raw audio stream and produces an encoded file on disk.
type Encoder interface {
	Encode(ctx context.Context, in io.Reader, opts Options, progress ProgressFunc) error
}
