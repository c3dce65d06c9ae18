package workbook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// sleepRecorder captures the durations a client was asked to sleep.
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)

	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.durations...)
}

// staticToken is a test TokenProvider that returns a fixed token.
type staticToken string

func (t staticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// failingToken is a test TokenProvider that always returns an error.
type failingToken struct{}

func (failingToken) Token(_ context.Context) (string, error) {
	return "", errors.New("token error")
}

// countingToken counts how many times a token was requested.
type countingToken struct {
	calls atomic.Int32
}

func (t *countingToken) Token(_ context.Context) (string, error) {
	t.calls.Add(1)

	return "test-token", nil
}

// newTestClient creates a Client pointing at the given httptest server
// with instant retry sleeps for fast tests.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, http.DefaultClient, staticToken("test-token"), slog.Default())
	c.sleepFunc = noopSleep

	return c
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("client-request-id"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	body, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/me",
		okStatuses: []int{http.StatusOK},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"value":"ok"}`, string(body))
}

func TestDo_ThrottleRetryBound(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"throttled"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrThrottled)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusTooManyRequests, callErr.StatusCode)
	assert.Equal(t, `{"error":"throttled"}`, callErr.Body)

	// Initial attempt plus exactly maxRetries retries.
	assert.Equal(t, int32(1+defaultMaxRetries), calls.Load())
}

func TestDo_RetryAfterHonored(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	recorder := &sleepRecorder{}
	client := newTestClient(t, srv.URL)
	client.sleepFunc = recorder.sleep

	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, recorder.recorded())
}

func TestDo_RetryAfterDefault(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			// No Retry-After header.
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	recorder := &sleepRecorder{}
	client := newTestClient(t, srv.URL)
	client.sleepFunc = recorder.sleep

	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{defaultRetryAfter, defaultRetryAfter}, recorder.recorded())
}

func TestDo_BudgetScopedPerOperation(t *testing.T) {
	// Each logical operation gets its own retry budget: after one operation
	// burns its whole budget and succeeds, the next starts back at full.
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Throttle three times, succeed, throttle three times, succeed.
		n := calls.Add(1)
		if n%4 != 0 {
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	for i := 0; i < 2; i++ {
		_, err := client.do(context.Background(), call{
			method:     http.MethodGet,
			path:       "/test",
			okStatuses: []int{http.StatusOK},
		})
		require.NoError(t, err, "operation %d", i+1)
	}

	assert.Equal(t, int32(8), calls.Load())
}

func TestDo_FreshTokenPerAttempt(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tokens := &countingToken{}
	client := NewClient(srv.URL, http.DefaultClient, tokens, slog.Default())
	client.sleepFunc = noopSleep

	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokens.calls.Load())
}

func TestDo_NonSuccessNoRetry(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("request-id", "test-req-id")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusInternalServerError, callErr.StatusCode)
	assert.Equal(t, "test-req-id", callErr.RequestID)
	assert.Equal(t, `{"error":"boom"}`, callErr.Body)

	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"something"}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.do(context.Background(), call{
				method:     http.MethodGet,
				path:       "/test",
				okStatuses: []int{http.StatusOK},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestDo_CanceledDuringSleep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.sleepFunc = func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_TokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, http.DefaultClient, failingToken{}, slog.Default())
	client.sleepFunc = noopSleep

	_, err := client.do(context.Background(), call{
		method:     http.MethodGet,
		path:       "/test",
		okStatuses: []int{http.StatusOK},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}

func TestRetryAfterDelay(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"absent", "", defaultRetryAfter},
		{"valid", "5", 5 * time.Second},
		{"zero", "0", defaultRetryAfter},
		{"garbage", "soon", defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Retry-After", tt.header)
			}

			assert.Equal(t, tt.want, retryAfterDelay(header))
		})
	}
}
