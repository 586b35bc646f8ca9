package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmediakit/transcriber/pkg/utils"
)

func TestMediaAssetValidate(t *testing.T) {
	asset := &MediaAsset{Path: "a.mp3", MIMEType: "audio/mpeg", Size: 100}
	assert.NoError(t, asset.Validate())

	asset = &MediaAsset{Path: "a.mp4", MIMEType: "video/mp4", Size: 100}
	assert.NoError(t, asset.Validate())

	// Wrong MIME type is rejected immediately.
	asset = &MediaAsset{Path: "a.pdf", MIMEType: "application/pdf", Size: 100}
	err := asset.Validate()
	assert.Error(t, err)
	assert.Equal(t, utils.KindInvalidInput, utils.KindOf(err))

	// Empty file is rejected immediately.
	asset = &MediaAsset{Path: "a.mp3", MIMEType: "audio/mpeg", Size: 0}
	err = asset.Validate()
	assert.Error(t, err)
	assert.Equal(t, utils.KindInvalidInput, utils.KindOf(err))
}

func TestSegmentIsFirst(t *testing.T) {
	assert.True(t, Segment{Index: 0}.IsFirst())
	assert.False(t, Segment{Index: 1}.IsFirst())
	assert.False(t, Segment{Index: 5}.IsFirst())
}

func TestNewTranscriptionRequest(t *testing.T) {
	asset := &MediaAsset{Path: "a.mp3", MIMEType: "audio/mpeg", Size: 100}
	req := NewTranscriptionRequest(asset)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, StateReceived, req.State)
	assert.Same(t, asset, req.Asset)
	assert.Empty(t, req.Segments)
	assert.Empty(t, req.Results)
}

func TestJoinResults(t *testing.T) {
	results := []SegmentResult{
		{Index: 0, Text: "first part."},
		{Index: 1, Text: "second part."},
		{Index: 2, Text: "third part."},
	}

	joined := JoinResults(results)
	assert.Equal(t, "first part.\n\nsecond part.\n\nthird part.", joined)

	// n results yield n-1 separators.
	assert.Equal(t, len(results)-1, strings.Count(joined, ParagraphSeparator))
}

func TestJoinResultsSingle(t *testing.T) {
	joined := JoinResults([]SegmentResult{{Index: 0, Text: "only part."}})
	assert.Equal(t, "only part.", joined)
	assert.NotContains(t, joined, ParagraphSeparator)
}
