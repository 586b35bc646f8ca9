package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/openmediakit/transcriber/pkg/utils"
)

// PlaceholderText is substituted when the backend returns empty content
// for a segment so that joined transcripts keep one entry per segment.
const PlaceholderText = "[inaudible segment]"

// ParagraphSeparator joins segment results in the final transcript.
const ParagraphSeparator = "\n\n"

// MediaAsset is one uploaded media file. Immutable once received; owned
// by the pipeline for the lifetime of a single request.
type MediaAsset struct {
	Path     string  // handle to the raw bytes on disk
	MIMEType string  // declared MIME type
	Size     int64   // byte size
	Duration float64 // seconds, 0 when not yet probed
}

// Validate rejects assets that are not audio/video or are empty.
func (a *MediaAsset) Validate() error {
	if a.Size <= 0 {
		return utils.NewError(utils.KindInvalidInput, "media file is empty", nil)
	}
	if !strings.HasPrefix(a.MIMEType, "audio/") && !strings.HasPrefix(a.MIMEType, "video/") {
		return utils.NewError(utils.KindInvalidInput,
			"unsupported media type: "+a.MIMEType, nil)
	}
	return nil
}

// Segment is a bounded time window of the source audio, independently
// decodable. Index is the sole ordering key when joining results.
type Segment struct {
	Index    int
	Path     string
	MIMEType string
	StartSec float64
	EndSec   float64
}

// IsFirst reports whether this is the opening segment of the recording.
// Derived purely from the index.
func (s Segment) IsFirst() bool {
	return s.Index == 0
}

// SegmentResult is the transcription outcome for one segment.
type SegmentResult struct {
	Index int
	Text  string
	Err   error
}

// RequestState is the lifecycle stage of a transcription request.
type RequestState string

const (
	StateReceived     RequestState = "received"
	StateProbing      RequestState = "probing"
	StateSegmenting   RequestState = "segmenting"
	StateTranscribing RequestState = "transcribing"
	StateJoining      RequestState = "joining"
	StateDone         RequestState = "done"
	StateFailed       RequestState = "failed"
)

// TranscriptionRequest is the end-to-end unit of work: one asset, its
// derived segments and the accumulating ordered results. Discarded once
// the joined transcript is returned or the request fails terminally.
type TranscriptionRequest struct {
	ID       string
	Asset    *MediaAsset
	Segments []Segment
	Results  []SegmentResult
	State    RequestState
}

// NewTranscriptionRequest creates a request in the received state.
func NewTranscriptionRequest(asset *MediaAsset) *TranscriptionRequest {
	return &TranscriptionRequest{
		ID:    uuid.NewString(),
		Asset: asset,
		State: StateReceived,
	}
}

// Result is what a successful request returns to the caller. There is no
// partial-transcript variant; failures carry only an error.
type Result struct {
	Transcript   string `json:"transcript"`
	SegmentCount int    `json:"segment_count"`
}

// JoinResults concatenates segment texts in index order with a fixed
// paragraph break. Results must already be ordered by index; joining
// never reorders or merges across segment boundaries.
func JoinResults(results []SegmentResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, ParagraphSeparator)
}
