package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"idproof/internal/platform/config"
	"idproof/pkg/platform/sentinel"
)

// HTTPClient calls a remote similarity service speaking the compare-faces
// wire format: base64 images in, a 0-100 similarity out.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPClient builds an oracle client from config. The configured timeout
// bounds the single blocking point of every verification.
func NewHTTPClient(cfg config.OracleConfig) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("oracle URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type compareRequest struct {
	DL     string `json:"dl"`
	Selfie string `json:"selfie"`
}

type compareResponse struct {
	Similarity float64 `json:"similarity"`
	Message    string  `json:"message,omitempty"`
}

// Compare submits both images and returns the similarity score.
func (c *HTTPClient) Compare(ctx context.Context, identity, selfie []byte) (float64, error) {
	body, err := json.Marshal(compareRequest{
		DL:     base64.StdEncoding.EncodeToString(identity),
		Selfie: base64.StdEncoding.EncodeToString(selfie),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return 0, fmt.Errorf("similarity call: %w", sentinel.ErrTimeout)
		}
		return 0, fmt.Errorf("similarity call: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return 0, fmt.Errorf("similarity call status %d: %w", resp.StatusCode, ErrRejected)
	default:
		return 0, fmt.Errorf("similarity call status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var out compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("similarity response decode: %w", sentinel.ErrUnavailable)
	}
	if out.Similarity < 0 || out.Similarity > 100 {
		return 0, fmt.Errorf("similarity %f out of range: %w", out.Similarity, sentinel.ErrUnavailable)
	}
	return out.Similarity, nil
}

func isClientTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
