package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures the REST backend client.
type HTTPConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// HTTPClient talks to the back-office REST backend.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client for the configured backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
		limiter: limiter,
	}, nil
}

// StatusError is returned for non-2xx responses. Message holds the server
// supplied message when the body carried one.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: remote error %d", e.Status)
	}
	return fmt.Sprintf("backend: remote error %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Status }

// UserMessage returns the server message.
func (e *StatusError) UserMessage() string { return e.Message }

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, payload any, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend: rate limit: %w", err)
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	return &StatusError{Status: resp.StatusCode, Message: msg}
}
