// internal/llmclient/transport.go
package llmclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMissingAPIKey is returned by constructors when no credential is set.
var ErrMissingAPIKey = errors.New("llmclient: API key is required")

const (
	defaultTimeout    = 120 * time.Second
	maxRetryElapsed   = 30 * time.Second
	maxRetryInterval  = 5 * time.Second
	maxErrorBodyBytes = 4 << 10
)

// APIError is a non-2xx reply from the OpenAI API.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("openai API error: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// transient reports whether the request may succeed if repeated.
func (e *APIError) transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// transport posts JSON to the OpenAI API with bearer auth. Transient failures
// are retried for a short, bounded window; everything else fails at once.
type transport struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
}

func newTransport(cfg config.OpenAIConfig, logger *zap.Logger) (*transport, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &transport{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		limiter:    limiter,
		newBackOff: defaultBackOff,
	}, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxRetryElapsed
	b.MaxInterval = maxRetryInterval
	return b
}

// postJSON sends payload to path and decodes a 2xx body into out.
func (t *transport) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	url := t.baseURL + path

	operation := func() error {
		if err := t.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter wait aborted: %w", err))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+t.apiKey)

		start := time.Now()
		resp, err := t.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			// A turn that reached the server may have been accepted; sending it
			// again would fork the conversation.
			if !neverSent(err) {
				t.logger.Warn("Network error after request was sent, not retrying.", zap.String("path", path), zap.Error(err))
				return backoff.Permanent(fmt.Errorf("failed to execute HTTP request: %w", err))
			}
			t.logger.Warn("Could not connect to OpenAI, retrying.", zap.String("path", path), zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := parseAPIError(resp)
			t.logger.Warn("OpenAI returned error status.",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("message", apiErr.Message))
			if apiErr.transient() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		t.logger.Debug("OpenAI call complete.", zap.String("path", path), zap.Duration("duration", time.Since(start)))
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(t.newBackOff(), ctx))
}

// neverSent reports whether err happened while connecting, before any
// request bytes were written.
func neverSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func parseAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var envelope struct {
		Error *APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		apiErr = envelope.Error
		apiErr.StatusCode = resp.StatusCode
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
