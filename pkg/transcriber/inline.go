package transcriber

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// InlineBackend sends segment audio base64-encoded inside the generation
// request itself. No ingest step is needed, so "not ready" responses do
// not occur on this path.
type InlineBackend struct {
	client *genClient
}

// NewInlineBackend creates the inline-bytes backend.
func NewInlineBackend(endpoint, apiKey, model string, timeout time.Duration) *InlineBackend {
	return &InlineBackend{
		client: newGenClient(endpoint, apiKey, model, timeout),
	}
}

// Transcribe implements Backend.
func (b *InlineBackend) Transcribe(ctx context.Context, seg models.Segment, variant PromptVariant) (string, error) {
	data, err := os.ReadFile(seg.Path)
	if err != nil {
		return "", utils.NewError(utils.KindMediaProcessing,
			"failed to read segment file", err)
	}

	utils.Debug("transcribing segment %d inline (%s)", seg.Index, utils.FormatFileSize(int64(len(data))))

	parts := []generatePart{
		{Text: PromptText(variant)},
		{InlineData: &inlineData{
			MIMEType: seg.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}},
	}

	return b.client.generate(ctx, parts)
}
