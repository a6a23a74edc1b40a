package runner

import (
	"errors"

	"github.com/audioforge/audioforge/pkg/catalog"
	"github.com/audioforge/audioforge/pkg/mediasource"
)

const genericFailureMessage = "conversion failed"

// knownErrors are failure categories safe to surface to clients verbatim.
// Anything else is collapsed to genericFailureMessage so internal paths,
// tool output, and stack details never leak through the API.
var knownErrors = []error{
	mediasource.ErrUnavailable,
	catalog.ErrTrackLookup,
	catalog.ErrPlaylistLookup,
	catalog.ErrNoMatch,
}

// publicMessage maps an internal failure to the message stored on the job.
func publicMessage(err error) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return genericFailureMessage
}
