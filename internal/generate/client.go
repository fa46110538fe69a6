package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const generatePath = "/api/generate-questions"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// HTTPClient calls the external generation service over HTTP/JSON.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPClient creates a client for the service at baseURL. A zero timeout
// falls back to two minutes.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type serviceRequest struct {
	UserID        string   `json:"user_id"`
	SessionID     string   `json:"session_id"`
	QuestionTypes []string `json:"question_types"`
	Difficulty    string   `json:"difficulty"`
	NumQuestions  int      `json:"num_questions"`
	ProjectID     string   `json:"project_id"`
	DocumentIDs   []string `json:"document_ids"`
}

type serviceResponse struct {
	Success   bool      `json:"success"`
	Questions []RawItem `json:"questions"`
	Message   string    `json:"message"`
}

// Generate issues one request. Any failure aborts the batch.
func (c *HTTPClient) Generate(ctx context.Context, req Request) ([]RawItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	body, err := json.Marshal(serviceRequest{
		UserID:        req.OwnerID,
		SessionID:     sessionID,
		QuestionTypes: []string{ExternalType(req.Type)},
		Difficulty:    string(req.Difficulty),
		NumQuestions:  req.Count,
		ProjectID:     req.ProjectID,
		DocumentIDs:   req.DocumentIDs,
	})
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	slog.Debug("generation service responded",
		"status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))

	var out serviceResponse
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
			if len(msg) > 200 {
				msg = msg[:200]
			}
		}
		return nil, &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "no questions were generated"
		}
		return nil, &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	return out.Questions, nil
}
