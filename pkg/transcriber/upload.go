package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// UploadBackend uses the two-phase flow: the segment is uploaded once,
// polled until the backend marks it usable, and then referenced by its
// handle in the generation request.
type UploadBackend struct {
	client *genClient
	waiter *Waiter
}

// NewUploadBackend creates the upload-then-reference backend.
func NewUploadBackend(endpoint, apiKey, model string, timeout time.Duration, waiter *Waiter) *UploadBackend {
	b := &UploadBackend{
		client: newGenClient(endpoint, apiKey, model, timeout),
		waiter: waiter,
	}
	if b.waiter.Status == nil {
		b.waiter.Status = b.fileState
	}
	return b
}

// Wire shapes of the file upload/status endpoints.
type uploadedFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
}

type uploadResponse struct {
	File uploadedFile `json:"file"`
}

// Transcribe implements Backend.
func (b *UploadBackend) Transcribe(ctx context.Context, seg models.Segment, variant PromptVariant) (string, error) {
	file, err := b.upload(ctx, seg)
	if err != nil {
		return "", err
	}

	if err := b.waiter.AwaitReady(ctx, file.Name); err != nil {
		return "", err
	}

	parts := []generatePart{
		{Text: PromptText(variant)},
		{FileData: &fileReference{
			MIMEType: seg.MIMEType,
			FileURI:  file.URI,
		}},
	}

	return b.client.generate(ctx, parts)
}

// upload pushes the segment bytes and returns the backend file handle.
func (b *UploadBackend) upload(ctx context.Context, seg models.Segment) (*uploadedFile, error) {
	data, err := os.ReadFile(seg.Path)
	if err != nil {
		return nil, utils.NewError(utils.KindMediaProcessing,
			"failed to read segment file", err)
	}

	utils.Debug("uploading segment %d (%s)", seg.Index, utils.FormatFileSize(int64(len(data))))

	url := fmt.Sprintf("%s/upload/v1beta/files?key=%s", b.client.endpoint, b.client.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, utils.NewError(utils.KindBackendTerminal, "failed to create upload request", err)
	}
	req.Header.Set("Content-Type", seg.MIMEType)

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewError(utils.KindBackendTerminal, "failed to read upload response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyHTTPError(resp.StatusCode, body)
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return nil, utils.NewError(utils.KindBackendTerminal, "failed to parse upload response", err)
	}

	if uploadResp.File.Name == "" {
		return nil, utils.NewError(utils.KindBackendTerminal,
			"upload response carried no file handle", nil)
	}

	return &uploadResp.File, nil
}

// fileState queries the status endpoint for an uploaded handle.
func (b *UploadBackend) fileState(ctx context.Context, handle string) (FileState, error) {
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", b.client.endpoint, handle, b.client.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status check failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var file uploadedFile
	if err := json.Unmarshal(body, &file); err != nil {
		return "", err
	}

	switch file.State {
	case "ACTIVE":
		return FileStateActive, nil
	case "FAILED":
		return FileStateFailed, nil
	default:
		return FileStatePending, nil
	}
}
