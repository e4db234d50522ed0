package llmclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

// setupTestLogger creates a zap logger with an observer for log assertions.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// newMockServer starts an httptest server that is closed with the test.
func newMockServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected HTTP request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func testOpenAIConfig(baseURL string) config.OpenAIConfig {
	return config.OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    baseURL,
		APITimeout: 5 * time.Second,
	}
}

// fastRetries keeps retry tests quick: at most two retries, 1ms apart.
func fastRetries(tr *transport) {
	tr.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
}
