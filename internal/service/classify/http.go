package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Star2578/AINA/internal/analysis/emotion"
	"go.uber.org/zap"
)

// Client calls a hosted text-classification endpoint that speaks the common
// inference shape: POST {"inputs": text} returning scored labels, either
// flat ([{label,score}...]) or nested one level ([[{label,score}...]]).
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient builds a classifier client against the given endpoint with a
// bounded request timeout.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classify: endpoint is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("classify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type scoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify sends the text to the endpoint and returns the validated top
// label. Transport failures and 429/5xx responses get exactly one immediate
// re-attempt to absorb model cold starts, then fail fast as unavailable.
func (c *Client) Classify(ctx context.Context, text string) (Result, error) {
	if err := validateInput(text); err != nil {
		return Result{}, err
	}

	scored, err := c.post(ctx, text)
	if err != nil {
		if ctx.Err() != nil || !retryable(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.logger.Warn("classifier request failed, retrying once", zap.Error(err))
		scored, err = c.post(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return selectResult(scored)
}

func (c *Client) post(ctx context.Context, text string) ([]scoredLabel, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(payload))}
	}

	return decodeScoredLabels(payload)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// retryable limits the single re-attempt to transport failures and the
// status codes hosted inference endpoints return while a model cold-starts.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, errMalformed)
}

// decodeScoredLabels accepts both response shapes served by hosted
// inference endpoints for single-input classification.
func decodeScoredLabels(payload []byte) ([]scoredLabel, error) {
	var flat []scoredLabel
	if err := json.Unmarshal(payload, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return flat, nil
	}

	var nested [][]scoredLabel
	if err := json.Unmarshal(payload, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("%w: %s", errMalformed, bytes.TrimSpace(payload))
}

var errMalformed = errors.New("malformed classifier response")

// selectResult validates every returned label against the closed set, then
// picks the highest-confidence candidate with ties resolving to neutral.
func selectResult(scored []scoredLabel) (Result, error) {
	if len(scored) == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	cands := make([]emotion.Candidate, 0, len(scored))
	for _, s := range scored {
		label, ok := emotion.ParseLabel(s.Label)
		if !ok {
			return Result{}, &UnknownLabelError{Label: s.Label}
		}
		cands = append(cands, emotion.Candidate{Label: label, Confidence: clampConfidence(s.Score)})
	}

	top, _ := emotion.PickTop(cands)
	return Result{Label: top.Label, Confidence: top.Confidence}, nil
}
