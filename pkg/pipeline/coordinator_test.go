package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/transcriber"
	"github.com/openmediakit/transcriber/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger(utils.LogLevelQuiet, "")
	os.Exit(m.Run())
}

type fakeProber struct {
	needsSplit bool
	err        error
	calls      int
}

func (p *fakeProber) NeedsSplitting(ctx context.Context, asset *models.MediaAsset) (bool, error) {
	p.calls++
	return p.needsSplit, p.err
}

type fakeSplitter struct {
	segments []models.Segment
	err      error
}

func (s *fakeSplitter) Split(ctx context.Context, asset *models.MediaAsset) ([]models.Segment, error) {
	return s.segments, s.err
}

type fakeBackend struct {
	fn       func(seg models.Segment, variant transcriber.PromptVariant) (string, error)
	variants []transcriber.PromptVariant
	indices  []int
}

func (b *fakeBackend) Transcribe(ctx context.Context, seg models.Segment, variant transcriber.PromptVariant) (string, error) {
	b.variants = append(b.variants, variant)
	b.indices = append(b.indices, seg.Index)
	return b.fn(seg, variant)
}

func newTestAsset(t *testing.T) *models.MediaAsset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp3")
	assert.NoError(t, os.WriteFile(path, []byte("source audio"), 0644))
	return &models.MediaAsset{Path: path, MIMEType: "audio/mpeg", Size: 12}
}

func writeSegmentFiles(t *testing.T, dir string, n int) []models.Segment {
	t.Helper()
	segments := make([]models.Segment, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("part%03d.mp3", i))
		assert.NoError(t, os.WriteFile(path, []byte("segment audio"), 0644))
		segments = append(segments, models.Segment{Index: i, Path: path, MIMEType: "audio/mpeg"})
	}
	return segments
}

func quickRetrier() *transcriber.Retrier {
	return &transcriber.Retrier{MaxAttempts: 3, Delay: time.Millisecond}
}

func TestRunTwoSegments(t *testing.T) {
	asset := newTestAsset(t)
	segDir := t.TempDir()
	segments := writeSegmentFiles(t, segDir, 2)

	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		return fmt.Sprintf("result%d", seg.Index), nil
	}}

	var labels []string
	coord := NewCoordinator(
		&fakeProber{needsSplit: true},
		&fakeSplitter{segments: segments},
		backend,
		quickRetrier(),
		func(percent int, message string) { labels = append(labels, message) },
	)

	result, err := coord.Run(context.Background(), asset)
	assert.NoError(t, err)

	// Joined in index order with one paragraph break between segments.
	assert.Equal(t, "result0\n\nresult1", result.Transcript)
	assert.Equal(t, 2, result.SegmentCount)

	// Segment 0 uses the initial prompt, segment 1 the continuation.
	assert.Equal(t, []transcriber.PromptVariant{transcriber.PromptInitial, transcriber.PromptContinuation}, backend.variants)
	assert.Equal(t, []int{0, 1}, backend.indices)

	assert.Contains(t, labels, "transcribing segment 1/2")
	assert.Contains(t, labels, "transcribing segment 2/2")

	// Temporary segment files were cleaned up on success.
	for _, seg := range segments {
		assert.NoFileExists(t, seg.Path)
	}
	assert.FileExists(t, asset.Path)
}

func TestRunSingleSegmentPassthrough(t *testing.T) {
	asset := newTestAsset(t)

	// Under budget: one segment wrapping the asset verbatim.
	segments := []models.Segment{{Index: 0, Path: asset.Path, MIMEType: asset.MIMEType}}

	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		return "whole transcript", nil
	}}

	coord := NewCoordinator(&fakeProber{}, &fakeSplitter{segments: segments}, backend, quickRetrier(), nil)

	result, err := coord.Run(context.Background(), asset)
	assert.NoError(t, err)
	assert.Equal(t, "whole transcript", result.Transcript)
	assert.Equal(t, 1, result.SegmentCount)

	// The passthrough segment is the caller's file: never deleted.
	assert.FileExists(t, asset.Path)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	asset := &models.MediaAsset{Path: "doc.pdf", MIMEType: "application/pdf", Size: 100}

	prober := &fakeProber{}
	coord := NewCoordinator(prober, &fakeSplitter{}, &fakeBackend{fn: nil}, quickRetrier(), nil)

	_, err := coord.Run(context.Background(), asset)
	assert.Error(t, err)
	assert.Equal(t, utils.KindInvalidInput, utils.KindOf(err))
	// Rejected before any probing happens.
	assert.Equal(t, 0, prober.calls)
}

func TestRunZeroSegmentsIsTerminal(t *testing.T) {
	asset := newTestAsset(t)

	coord := NewCoordinator(&fakeProber{}, &fakeSplitter{segments: nil}, &fakeBackend{fn: nil}, quickRetrier(), nil)

	_, err := coord.Run(context.Background(), asset)
	assert.Error(t, err)
	assert.Equal(t, utils.KindMediaProcessing, utils.KindOf(err))
}

func TestRunAbortsOnTerminalBackendError(t *testing.T) {
	asset := newTestAsset(t)
	segDir := t.TempDir()
	segments := writeSegmentFiles(t, segDir, 3)

	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		if seg.Index == 1 {
			return "", utils.NewError(utils.KindBackendTerminal, "quota exceeded", nil)
		}
		return "text", nil
	}}

	coord := NewCoordinator(&fakeProber{needsSplit: true}, &fakeSplitter{segments: segments}, backend, quickRetrier(), nil)

	result, err := coord.Run(context.Background(), asset)
	assert.Error(t, err)
	// No partial transcript is ever returned.
	assert.Nil(t, result)
	// Segment 2 was never attempted.
	assert.Equal(t, []int{0, 1}, backend.indices)

	// Cleanup still ran on the failure path.
	for _, seg := range segments {
		assert.NoFileExists(t, seg.Path)
	}
}

func TestRunSubstitutesPlaceholderForEmptyText(t *testing.T) {
	asset := newTestAsset(t)
	segDir := t.TempDir()
	segments := writeSegmentFiles(t, segDir, 2)

	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		if seg.Index == 0 {
			return "", nil
		}
		return "audible part", nil
	}}

	coord := NewCoordinator(&fakeProber{needsSplit: true}, &fakeSplitter{segments: segments}, backend, quickRetrier(), nil)

	result, err := coord.Run(context.Background(), asset)
	assert.NoError(t, err)
	assert.Equal(t, models.PlaceholderText+"\n\naudible part", result.Transcript)
}

func TestRunObservesCancellationBetweenSegments(t *testing.T) {
	asset := newTestAsset(t)
	segDir := t.TempDir()
	segments := writeSegmentFiles(t, segDir, 3)

	ctx, cancel := context.WithCancel(context.Background())

	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		// Simulate the caller abandoning the request mid-flight.
		cancel()
		return "text", nil
	}}

	coord := NewCoordinator(&fakeProber{needsSplit: true}, &fakeSplitter{segments: segments}, backend, quickRetrier(), nil)

	result, err := coord.Run(ctx, asset)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	// Only the first segment was attempted.
	assert.Equal(t, []int{0}, backend.indices)

	// Cancellation is an exit path too: temp files removed.
	for _, seg := range segments {
		assert.NoFileExists(t, seg.Path)
	}
}

func TestRunPropagatesSplitterError(t *testing.T) {
	asset := newTestAsset(t)

	splitErr := utils.NewError(utils.KindMediaProcessing, "failed to encode any segment", nil)
	coord := NewCoordinator(&fakeProber{needsSplit: true}, &fakeSplitter{err: splitErr}, &fakeBackend{fn: nil}, quickRetrier(), nil)

	_, err := coord.Run(context.Background(), asset)
	assert.Error(t, err)
	assert.Equal(t, utils.KindMediaProcessing, utils.KindOf(err))
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	asset := newTestAsset(t)
	segments := []models.Segment{{Index: 0, Path: asset.Path, MIMEType: asset.MIMEType}}

	calls := 0
	backend := &fakeBackend{fn: func(seg models.Segment, variant transcriber.PromptVariant) (string, error) {
		calls++
		if calls < 2 {
			return "", utils.NewError(utils.KindBackendNotReady, "not ready", nil)
		}
		return "late transcript", nil
	}}

	coord := NewCoordinator(&fakeProber{}, &fakeSplitter{segments: segments}, backend, quickRetrier(), nil)

	result, err := coord.Run(context.Background(), asset)
	assert.NoError(t, err)
	assert.Equal(t, "late transcript", result.Transcript)
	assert.Equal(t, 2, calls)
}
