package llmclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_RateLimit(t *testing.T) {
	server := newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"resp_ok","output":[]}`)
	})
	logger, _ := setupTestLogger(t)

	t.Run("paces consecutive requests", func(t *testing.T) {
		cfg := testOpenAIConfig(server.URL)
		cfg.RateLimit = 20
		client, err := NewResponsesClient(cfg, logger)
		require.NoError(t, err)

		start := time.Now()
		for i := 0; i < 3; i++ {
			_, err := client.Create(context.Background(), initialTurn())
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("deadline shorter than the wait fails fast", func(t *testing.T) {
		cfg := testOpenAIConfig(server.URL)
		cfg.RateLimit = 0.5
		client, err := NewResponsesClient(cfg, logger)
		require.NoError(t, err)

		_, err = client.Create(context.Background(), initialTurn())
		require.NoError(t, err, "the first request uses the burst token")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err = client.Create(ctx, initialTurn())
		assert.ErrorContains(t, err, "rate limiter wait aborted")
	})
}

func TestParseAPIError(t *testing.T) {
	t.Run("structured envelope", func(t *testing.T) {
		server := newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"slow down","type":"tokens","code":"rate_limit_exceeded"}}`)
		})
		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		apiErr := parseAPIError(resp)
		assert.Equal(t, &APIError{StatusCode: 429, Type: "tokens", Code: "rate_limit_exceeded", Message: "slow down"}, apiErr)
		assert.True(t, apiErr.transient())
	})

	t.Run("plain text body", func(t *testing.T) {
		server := newMockServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, "  forbidden by proxy\n")
		})
		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		apiErr := parseAPIError(resp)
		assert.Equal(t, "forbidden by proxy", apiErr.Message)
		assert.False(t, apiErr.transient())
		assert.Equal(t, "openai API error: status 403 (): forbidden by proxy", apiErr.Error())
	})
}

// failingRoundTripper fails every request with err and counts attempts.
type failingRoundTripper struct {
	err   error
	calls atomic.Int32
}

func (f *failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestTransport_NetworkErrors(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{"connection refused is retried", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, 3},
		{"reset after sending is not retried", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, 1},
		{"truncated reply is not retried", io.ErrUnexpectedEOF, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, _ := setupTestLogger(t)
			client, err := NewResponsesClient(testOpenAIConfig("http://openai.invalid/v1"), logger)
			require.NoError(t, err)
			fastRetries(client.transport)
			rt := &failingRoundTripper{err: tc.err}
			client.transport.httpClient.Transport = rt

			_, err = client.Create(context.Background(), initialTurn())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to execute HTTP request")
			assert.Equal(t, tc.wantCalls, rt.calls.Load())
		})
	}
}
