package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// Segment re-encoding parameters. Mono at 16kHz/32kbps keeps the payload
// size per chunk window predictable; the prober's size budget assumes the
// same encoding.
const (
	segmentChannels   = "1"
	segmentSampleRate = "16000"
	segmentBitrate    = "32k"
)

// ChunkWindow is one planned slice of the source timeline.
type ChunkWindow struct {
	Index    int
	StartSec float64
	EndSec   float64
}

// PlanChunks computes the non-overlapping chunk windows covering
// [0, totalDur) exactly once: ceil(totalDur/chunkDur) windows, the last
// one truncated to the source duration.
func PlanChunks(totalDur, chunkDur float64) []ChunkWindow {
	if totalDur <= 0 || chunkDur <= 0 {
		return nil
	}

	numChunks := int(math.Ceil(totalDur / chunkDur))
	windows := make([]ChunkWindow, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := float64(i) * chunkDur
		end := start + chunkDur
		if end > totalDur {
			end = totalDur
		}
		windows = append(windows, ChunkWindow{Index: i, StartSec: start, EndSec: end})
	}
	return windows
}

// Segmenter splits oversized audio into bounded-duration segments, each
// independently decodable. Segment files are written under TempDir and
// owned by the caller for the lifetime of one request.
type Segmenter struct {
	TempDir       string
	ChunkDuration time.Duration
	Prober        *Prober
}

// NewSegmenter creates a segmenter writing segment files to tempDir.
func NewSegmenter(tempDir string, chunkDuration time.Duration, prober *Prober) (*Segmenter, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create segment temp dir: %w", err)
	}

	return &Segmenter{
		TempDir:       tempDir,
		ChunkDuration: chunkDuration,
		Prober:        prober,
	}, nil
}

// Split returns the ordered segment sequence for the asset. Assets under
// the size budget pass through verbatim as a single segment. Oversized
// assets are carved into chunk windows and re-encoded; windows whose
// encode produces no output are dropped and the sequence compacts, so the
// returned indices are always gapless and ordered even when they no
// longer match the original chunk plan.
func (s *Segmenter) Split(ctx context.Context, asset *models.MediaAsset) ([]models.Segment, error) {
	needsSplit, err := s.Prober.NeedsSplitting(ctx, asset)
	if err != nil {
		return nil, err
	}

	if !needsSplit {
		utils.Debug("asset under size budget (%s), using verbatim", utils.FormatFileSize(asset.Size))
		return []models.Segment{{
			Index:    0,
			Path:     asset.Path,
			MIMEType: asset.MIMEType,
			StartSec: 0,
			EndSec:   asset.Duration,
		}}, nil
	}

	// The chunk plan needs the total duration. A probe failure here means
	// the bytes are not valid media, which is terminal for the request.
	duration := asset.Duration
	if duration == 0 {
		probed, err := s.Prober.Duration(ctx, asset.Path)
		if err != nil {
			return nil, utils.NewError(utils.KindMediaProcessing,
				"failed to probe media duration", err)
		}
		duration = probed
	}

	windows := PlanChunks(duration, s.ChunkDuration.Seconds())
	utils.Info("splitting %s (%s, %s) into %d segments",
		filepath.Base(asset.Path), utils.FormatFileSize(asset.Size),
		utils.FormatTimeDuration(duration), len(windows))

	baseName := strings.TrimSuffix(filepath.Base(asset.Path), filepath.Ext(asset.Path))

	segments := make([]models.Segment, 0, len(windows))
	var lastErr error
	for _, w := range windows {
		outputPath := filepath.Join(s.TempDir, fmt.Sprintf("%s_part%03d.mp3", baseName, w.Index))

		if err := s.encodeWindow(ctx, asset.Path, outputPath, w); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			utils.Warn("segment %d failed to encode, dropping: %v", w.Index, err)
			lastErr = err
			continue
		}

		// Compacted index: the returned sequence stays gapless even when
		// a planned window is dropped.
		segments = append(segments, models.Segment{
			Index:    len(segments),
			Path:     outputPath,
			MIMEType: "audio/mpeg",
			StartSec: w.StartSec,
			EndSec:   w.EndSec,
		})

		utils.Debug("encoded segment %d: %s", w.Index, filepath.Base(outputPath))
	}

	if len(segments) == 0 {
		return nil, utils.NewError(utils.KindMediaProcessing,
			"failed to encode any segment", lastErr)
	}

	return segments, nil
}

// encodeWindow re-encodes one chunk window as a standalone mp3.
func (s *Segmenter) encodeWindow(ctx context.Context, inputPath, outputPath string, w ChunkWindow) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-ss", fmt.Sprintf("%.3f", w.StartSec),
		"-t", fmt.Sprintf("%.3f", w.EndSec-w.StartSec),
		"-ac", segmentChannels,
		"-ar", segmentSampleRate,
		"-b:a", segmentBitrate,
		outputPath,
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("encoder produced no output for window %d", w.Index)
	}

	return nil
}

// ExtractAudio pulls the audio track out of a video file as mp3, so that
// probing and segmenting always operate on audio.
func (s *Segmenter) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	baseName := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	audioPath := filepath.Join(s.TempDir, baseName+".mp3")

	utils.Info("extracting audio from video: %s", filepath.Base(videoPath))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", segmentChannels,
		"-ar", segmentSampleRate,
		"-b:a", segmentBitrate,
		audioPath,
	)

	if err := cmd.Run(); err != nil {
		return "", utils.NewError(utils.KindMediaProcessing, "audio extraction failed", err)
	}

	if !utils.CheckFileExists(audioPath) {
		return "", utils.NewError(utils.KindMediaProcessing,
			"extracted audio file does not exist: "+audioPath, nil)
	}

	return audioPath, nil
}
