package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openmediakit/transcriber/pkg/utils"
)

// genClient is the HTTP plumbing shared by both backend shapes: it issues
// generate calls against the backend and classifies failures.
type genClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newGenClient(endpoint, apiKey, model string, timeout time.Duration) *genClient {
	return &genClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			// A single transcription call can itself be long-running;
			// this deadline is independent from any readiness polling.
			Timeout: timeout,
		},
	}
}

// Request/response wire shapes for the generate call.
type generatePart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *inlineData    `json:"inline_data,omitempty"`
	FileData   *fileReference `json:"file_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64-encoded audio
}

type fileReference struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// generate issues one generation request carrying the given parts and
// returns the produced text.
func (c *genClient) generate(ctx context.Context, parts []generatePart) (string, error) {
	reqBody := generateRequest{}
	reqBody.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = parts

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", utils.NewError(utils.KindBackendTerminal, "failed to encode request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.endpoint, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", utils.NewError(utils.KindBackendTerminal, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", utils.NewError(utils.KindBackendTerminal, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyHTTPError(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", utils.NewError(utils.KindBackendTerminal, "failed to parse response", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// classifyTransportError maps network-level failures. A context deadline
// means our own call timeout elapsed, which is terminal.
func classifyTransportError(err error) error {
	if strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "Client.Timeout exceeded") {
		return utils.NewError(utils.KindTimeout, "transcription call timed out", err)
	}
	return utils.NewError(utils.KindBackendTerminal, "transcription call failed", err)
}

// classifyHTTPError separates the transient "file not yet usable" class
// from everything else. Quota, auth and malformed-request responses are
// terminal for the whole request; the backend message is surfaced
// verbatim to aid diagnosis.
func classifyHTTPError(status int, body []byte) error {
	msg := string(body)

	var genResp generateResponse
	if json.Unmarshal(body, &genResp) == nil && genResp.Error != nil {
		msg = genResp.Error.Message
	}

	if isNotReadyMessage(msg) {
		return utils.NewError(utils.KindBackendNotReady,
			"segment not yet ready: "+msg, nil)
	}

	return utils.NewError(utils.KindBackendTerminal,
		fmt.Sprintf("backend error (HTTP %d): %s", status, msg), nil)
}

// isNotReadyMessage recognizes the backend's "uploaded media is not in a
// usable state yet" responses.
func isNotReadyMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not in an active state") ||
		strings.Contains(lower, "is not ready") ||
		strings.Contains(lower, "still processing") ||
		strings.Contains(msg, "FAILED_PRECONDITION")
}
