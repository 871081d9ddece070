// Package evaluator talks to the external service that prints answer sheets and reads
// the scanned ones back.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	appErrors "github.com/noah-isme/exam-sheets-api/pkg/errors"
)

const (
	printPath      = "/get_print_data"
	evaluationPath = "/test_evaluation"

	// maxErrorBody bounds how much of a failed upstream response is echoed to the caller.
	maxErrorBody = 4 << 10
)

// Observer receives one observation per upstream round trip.
type Observer interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
}

// Client performs single request/response round trips without retries.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	logger   *zap.Logger
}

// NewClient constructs a Client. A nil httpClient gets one honouring cfg.Timeout.
func NewClient(cfg config.EvaluatorConfig, httpClient *http.Client, observer Observer, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL(), "/"),
		http:     httpClient,
		observer: observer,
		logger:   logger,
	}
}

// PrintArtifact is the print-ready document returned by the service, passed through as is.
type PrintArtifact struct {
	ContentType string
	Body        []byte
}

// Print sends the quiz and returns the rendered answer sheets.
func (c *Client) Print(ctx context.Context, quiz models.Quiz) (*PrintArtifact, error) {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode quiz")
	}
	resp, body, err := c.do(ctx, printPath, "application/json", payload)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &PrintArtifact{ContentType: contentType, Body: body}, nil
}

// Upload is a scanned answer-sheet file as received from the client.
type Upload struct {
	ContentType string
	Data        []byte
}

// Evaluate sends the scanned sheets and decodes the per-student results.
func (c *Client) Evaluate(ctx context.Context, upload Upload) (*models.EvaluationResponse, error) {
	_, body, err := c.do(ctx, evaluationPath, upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}
	var out models.EvaluationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, appErrors.Upstream("evaluation service returned an unparsable body", map[string]interface{}{
			"endpoint": evaluationPath,
			"body":     truncate(body),
		}, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, path, contentType string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(path, 0, start)
		c.logger.Warn("evaluator request failed", zap.String("endpoint", path), zap.Error(err))
		return nil, nil, appErrors.Upstream(fmt.Sprintf("request to %s failed", path), map[string]interface{}{"endpoint": path}, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(path, resp.StatusCode, start)
	if err != nil {
		return nil, nil, appErrors.Upstream(fmt.Sprintf("read response from %s", path), map[string]interface{}{"endpoint": path, "status": resp.StatusCode}, err)
	}

	c.logger.Debug("evaluator responded",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, appErrors.Upstream(fmt.Sprintf("%s responded with status %d", path, resp.StatusCode), map[string]interface{}{
			"endpoint": path,
			"status":   resp.StatusCode,
			"body":     truncate(body),
		}, nil)
	}
	return resp, body, nil
}

func (c *Client) observe(path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(path, status, time.Since(start))
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(bytes.ToValidUTF8(body, nil))
}
