// Package manifest provides loading and validation of batch conversion
// manifests.
//
// A batch manifest is a YAML or JSON file listing conversions to run in one
// invocation, each with an optional per-entry bitrate override.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	bitrate: 192
//	conversions:
//	  - url: https://www.youtube.com/watch?v=dQw4w9WgXcQ
//	  - url: https://www.youtube.com/playlist?list=PLabc123def456ghi
//	    bitrate: 320
package manifest

import (
	"fmt"

	"github.com/audioforge/audioforge/pkg/validate"
)

// Version is the manifest format version this build understands.
const Version = "1.0"

// DefaultBitrate is applied when neither the manifest nor an entry sets one.
const DefaultBitrate = 128

// Manifest is a validated batch conversion manifest.
type Manifest struct {
	// Version is the manifest format version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Bitrate is the default bitrate in kbit/s for entries that do not set
	// their own. Optional.
	Bitrate int `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`

	// Conversions lists the references to convert, in order.
	Conversions []Entry `json:"conversions" yaml:"conversions"`
}

// Entry is one conversion in a batch.
type Entry struct {
	// URL is the media or catalog reference to convert.
	URL string `json:"url" yaml:"url"`

	// Bitrate overrides the manifest-level bitrate for this entry. Optional.
	Bitrate int `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
}

// EffectiveBitrate resolves the bitrate for an entry: entry override, then
// manifest default, then the built-in default.
func (m *Manifest) EffectiveBitrate(e Entry) int {
	if e.Bitrate != 0 {
		return e.Bitrate
	}
	if m.Bitrate != 0 {
		return m.Bitrate
	}
	return DefaultBitrate
}

// ApplyDefaults fills optional fields on a parsed manifest.
func (m *Manifest) ApplyDefaults() {
	if m.Bitrate == 0 {
		m.Bitrate = DefaultBitrate
	}
}

// Validate checks the manifest for structural problems. It returns the first
// problem found.
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return fmt.Errorf("unsupported manifest version %q (want %q)", m.Version, Version)
	}
	if len(m.Conversions) == 0 {
		return fmt.Errorf("manifest has no conversions")
	}
	if m.Bitrate != 0 && !validate.IsValidBitrate(m.Bitrate) {
		return fmt.Errorf("invalid bitrate %d (valid: %v)", m.Bitrate, validate.Bitrates)
	}
	for i, entry := range m.Conversions {
		if entry.URL == "" {
			return fmt.Errorf("conversion %d: url is required", i)
		}
		if validate.Classify(entry.URL) == validate.RefUnknown {
			return fmt.Errorf("conversion %d: unrecognized reference %q", i, entry.URL)
		}
		if entry.Bitrate != 0 && !validate.IsValidBitrate(entry.Bitrate) {
			return fmt.Errorf("conversion %d: invalid bitrate %d (valid: %v)", i, entry.Bitrate, validate.Bitrates)
		}
	}
	return nil
}
