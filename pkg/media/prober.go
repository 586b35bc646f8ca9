package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/openmediakit/transcriber/pkg/models"
)

// DefaultChunkSizeLimit is the raw-byte ceiling a single transcription
// call can safely accept: 15 MB keeps the base64-inflated payload under
// the backend request-size limit.
const DefaultChunkSizeLimit int64 = 15 * 1024 * 1024

// Prober inspects a media asset to decide whether it must be split.
// It is read-only: probing never modifies the asset.
type Prober struct {
	ChunkSizeLimit int64
}

// NewProber creates a prober with the default size budget.
func NewProber() *Prober {
	return &Prober{ChunkSizeLimit: DefaultChunkSizeLimit}
}

// NeedsSplitting compares the asset's byte size against the chunk-size
// ceiling. The check is read-only and never modifies the asset; the
// duration needed for a chunk plan is probed by the segmenter.
func (p *Prober) NeedsSplitting(ctx context.Context, asset *models.MediaAsset) (bool, error) {
	return asset.Size > p.ChunkSizeLimit, nil
}

// Duration returns the media duration in seconds via ffprobe.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", string(output), err)
	}

	return duration, nil
}
