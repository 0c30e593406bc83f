package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"projecttracker/pkg/circuitbreaker"
	"projecttracker/pkg/metrics"
	"projecttracker/pkg/trace"
)

var (
	// ErrUnavailable covers transport failures and non-404 HTTP errors.
	ErrUnavailable = errors.New("clickup: service unavailable")
	// ErrTaskNotFound means the external id is unknown to ClickUp.
	ErrTaskNotFound = errors.New("clickup: task not found")
	// ErrMalformed means the response body could not be decoded.
	ErrMalformed = errors.New("clickup: malformed response")
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // fail fast; retried on the next cycle
		},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// GetTask fetches one task by its external id and normalizes it into the
// local task schema. Absent fields come back nil, never zero values.
func (c *Client) GetTask(ctx context.Context, cuTaskID string) (*TaskState, error) {
	url := fmt.Sprintf("%s/task/%s", c.baseURL, cuTaskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName(), traceID)
	}

	resp, err := c.do(req, cuTaskID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, cuTaskID)
	}

	var payload taskPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return payload.normalize(), nil
}

// do executes the request under the circuit breaker. Only transport
// failures and non-404 error statuses count against the breaker; a 404
// means the upstream is healthy and answered.
func (c *Client) do(req *http.Request, cuTaskID string) (*http.Response, error) {
	var resp *http.Response

	err := c.breaker.Execute(func() error {
		start := time.Now()
		r, err := c.httpClient.Do(req)
		latency := time.Since(start)
		if err != nil {
			metrics.RecordExternalCall("/task", "error", latency)
			c.logger.Warn("ClickUp request failed",
				zap.String("cu_task_id", cuTaskID),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if r.StatusCode != http.StatusOK && r.StatusCode != http.StatusNotFound {
			metrics.RecordExternalCall("/task", fmt.Sprintf("%d", r.StatusCode), latency)
			r.Body.Close()
			return fmt.Errorf("%w: status %d", ErrUnavailable, r.StatusCode)
		}
		if r.StatusCode == http.StatusNotFound {
			metrics.RecordExternalCall("/task", "404", latency)
		} else {
			metrics.RecordExternalCall("/task", "success", latency)
		}
		resp = r
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.logger.Warn("ClickUp circuit breaker open, skipping call",
			zap.String("cu_task_id", cuTaskID),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
