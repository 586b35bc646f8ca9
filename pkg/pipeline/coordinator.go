package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/transcriber"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// ProgressCallback notifies the caller about pipeline progress. The label
// is purely for observability and carries no control meaning.
type ProgressCallback func(percent int, message string)

// Prober decides whether an asset exceeds the single-call budget.
type Prober interface {
	NeedsSplitting(ctx context.Context, asset *models.MediaAsset) (bool, error)
}

// Splitter turns an asset into its ordered segment sequence.
type Splitter interface {
	Split(ctx context.Context, asset *models.MediaAsset) ([]models.Segment, error)
}

// Coordinator sequences one transcription request through
// probing, segmenting, per-segment transcription and joining. Segments
// are processed strictly sequentially so that continuation prompts
// follow the preceding segment's result and the backend quota budget is
// shared by at most one in-flight call per request.
type Coordinator struct {
	Prober   Prober
	Splitter Splitter
	Backend  transcriber.Backend
	Retrier  *transcriber.Retrier
	Progress ProgressCallback
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(prober Prober, splitter Splitter, backend transcriber.Backend, retrier *transcriber.Retrier, progress ProgressCallback) *Coordinator {
	return &Coordinator{
		Prober:   prober,
		Splitter: splitter,
		Backend:  backend,
		Retrier:  retrier,
		Progress: progress,
	}
}

// Run processes one asset to a joined transcript. Any terminal failure
// at any stage aborts the whole request; partial transcripts are never
// returned. Temporary segment files are deleted on every exit path.
func (c *Coordinator) Run(ctx context.Context, asset *models.MediaAsset) (*models.Result, error) {
	req := models.NewTranscriptionRequest(asset)
	utils.Info("request %s: received %s (%s)", req.ID, asset.MIMEType, utils.FormatFileSize(asset.Size))

	result, err := c.run(ctx, req)
	if err != nil {
		req.State = models.StateFailed
		utils.Error("request %s failed: %v", req.ID, err)
		return nil, err
	}

	req.State = models.StateDone
	return result, nil
}

func (c *Coordinator) run(ctx context.Context, req *models.TranscriptionRequest) (*models.Result, error) {
	if err := req.Asset.Validate(); err != nil {
		return nil, err
	}

	req.State = models.StateProbing
	c.emit(2, "probing media")
	if _, err := c.Prober.NeedsSplitting(ctx, req.Asset); err != nil {
		return nil, err
	}

	req.State = models.StateSegmenting
	c.emit(5, "segmenting media")
	segments, err := c.Splitter.Split(ctx, req.Asset)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, utils.NewError(utils.KindMediaProcessing,
			"asset yielded zero segments", nil)
	}
	req.Segments = segments

	// The request exclusively owns its temporary segment files; they are
	// removed on success, terminal failure and cancellation alike.
	defer c.cleanupSegments(req)

	req.State = models.StateTranscribing
	for i, seg := range segments {
		// Cancellation is observed between segments; a stuck single call
		// fails via the backend's own timeout.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.emit(10+i*85/len(segments), fmt.Sprintf("transcribing segment %d/%d", i+1, len(segments)))

		text, err := c.Retrier.Transcribe(ctx, c.Backend, seg, transcriber.VariantFor(seg))
		if err != nil {
			return nil, err
		}
		if text == "" {
			text = models.PlaceholderText
		}

		req.Results = append(req.Results, models.SegmentResult{Index: seg.Index, Text: text})
	}

	req.State = models.StateJoining
	c.emit(95, "joining transcript")
	transcript := models.JoinResults(req.Results)

	c.emit(100, "done")
	utils.Info("request %s: transcribed %d segment(s)", req.ID, len(segments))

	return &models.Result{
		Transcript:   transcript,
		SegmentCount: len(segments),
	}, nil
}

func (c *Coordinator) emit(percent int, message string) {
	if c.Progress != nil {
		c.Progress(percent, message)
	}
}

// cleanupSegments removes segment files carved out of the source. A
// single-segment passthrough points at the original asset, which the
// caller owns, so it is left alone.
func (c *Coordinator) cleanupSegments(req *models.TranscriptionRequest) {
	for _, seg := range req.Segments {
		if seg.Path == req.Asset.Path {
			continue
		}
		if err := os.Remove(seg.Path); err != nil && !os.IsNotExist(err) {
			utils.Warn("failed to remove segment file %s: %v", seg.Path, err)
		}
	}
}
