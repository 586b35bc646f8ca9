package transcriber

import (
	"context"

	"github.com/openmediakit/transcriber/pkg/models"
)

// PromptVariant selects the instruction sent with a segment.
type PromptVariant int

const (
	// PromptInitial is used for the opening segment of a recording.
	PromptInitial PromptVariant = iota
	// PromptContinuation tells the backend the segment is not the start
	// of the recording, so it should not expect leading context.
	PromptContinuation
)

// VariantFor returns the prompt variant for a segment.
func VariantFor(seg models.Segment) PromptVariant {
	if seg.IsFirst() {
		return PromptInitial
	}
	return PromptContinuation
}

const initialPrompt = `Transcribe this audio recording completely. ` +
	`Produce clean, normalized prose: omit timestamps, omit speaker labels, ` +
	`and remove filler words and disfluencies, but do not leave out any ` +
	`spoken content.`

const continuationPrompt = `This audio is a continuation of a longer ` +
	`recording and does not start at the beginning. Do not try to stitch it ` +
	`to an earlier part; transcribe only the audio you are given, completely. ` +
	`Produce clean, normalized prose: omit timestamps, omit speaker labels, ` +
	`and remove filler words and disfluencies, but do not leave out any ` +
	`spoken content.`

// PromptText returns the instruction text for a variant.
func PromptText(variant PromptVariant) string {
	if variant == PromptContinuation {
		return continuationPrompt
	}
	return initialPrompt
}

// Backend is a pluggable transcription backend. One call transcribes one
// segment; implementations bound the call with their own timeout and
// classify failures as transient (not ready) or terminal.
type Backend interface {
	Transcribe(ctx context.Context, seg models.Segment, variant PromptVariant) (string, error)
}
