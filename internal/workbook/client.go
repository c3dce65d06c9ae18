package workbook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Retry policy constants. The Graph workbook API throttles with 429 +
// Retry-After and reports workbook edit-lock contention in the response
// body, independent of HTTP status.
const (
	defaultMaxRetries = 3
	defaultRetryAfter = 30 * time.Second
	lockRetryDelay    = 10 * time.Second
	userAgent         = "workbook-go/0.1"

	// lockMarker appears in the response body when the workbook session
	// could not acquire an edit lock due to concurrent requests.
	lockMarker = "EditModeCannotAcquireLockTooManyRequests"
)

// TokenProvider supplies a currently-valid bearer token. Defined at the
// consumer (workbook package) per Go convention "accept interfaces, return
// structs". The auth package provides the real implementation; obtaining a
// token may refresh credentials over the network, hence the context.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Microsoft Graph workbook and mail
// endpoints. It handles request construction, authentication, bounded retry
// for throttling and lock contention, and error classification.
//
// The call model is synchronous and blocking. The retry budget is scoped to
// a single logical operation, so a Client may be reused freely across
// sequential calls; it is not designed for concurrently in-flight operations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     *slog.Logger
	maxRetries int

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Graph workbook client.
// baseURL is typically "https://graph.microsoft.com/v1.0".
func NewClient(baseURL string, httpClient *http.Client, tokens TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		sleepFunc:  timeSleep,
	}
}

// call describes one logical operation for do: the request, which statuses
// count as success, and whether body-level lock contention is retried
// (write operations only).
type call struct {
	method      string
	path        string
	body        []byte
	okStatuses  []int
	retryOnLock bool
}

// do executes a logical operation against the Graph API. Throttled (429) and
// lock-contended responses are retried with a budget local to this call;
// when the budget runs out the last response is surfaced as a *CallError.
// Any other non-success status fails immediately, no retry.
func (c *Client) do(ctx context.Context, op call) ([]byte, error) {
	budget := c.maxRetries

	for {
		status, header, body, err := c.doOnce(ctx, op)
		if err != nil {
			return nil, err
		}

		if status == http.StatusTooManyRequests && budget > 0 {
			budget--
			delay := retryAfterDelay(header)
			c.logger.Warn("throttled, retrying",
				slog.String("method", op.method),
				slog.String("path", op.path),
				slog.Duration("retry_after", delay),
				slog.Int("budget", budget),
			)

			if sleepErr := c.sleepFunc(ctx, delay); sleepErr != nil {
				return nil, fmt.Errorf("workbook: request canceled: %w", sleepErr)
			}

			continue
		}

		// Lock contention is reported in the body and can accompany any
		// status, including 200. Checked before the status check so a
		// "successful" lock-contended response is still retried.
		if op.retryOnLock && bytes.Contains(body, []byte(lockMarker)) {
			if budget > 0 {
				budget--
				c.logger.Warn("workbook edit lock contended, retrying",
					slog.String("method", op.method),
					slog.String("path", op.path),
					slog.Duration("delay", lockRetryDelay),
					slog.Int("budget", budget),
				)

				if sleepErr := c.sleepFunc(ctx, lockRetryDelay); sleepErr != nil {
					return nil, fmt.Errorf("workbook: request canceled: %w", sleepErr)
				}

				continue
			}

			return nil, &CallError{
				StatusCode: status,
				RequestID:  header.Get("request-id"),
				Body:       string(body),
				Err:        ErrLocked,
			}
		}

		if slices.Contains(op.okStatuses, status) {
			c.logger.Debug("request succeeded",
				slog.String("method", op.method),
				slog.String("path", op.path),
				slog.Int("status", status),
			)

			return body, nil
		}

		return nil, &CallError{
			StatusCode: status,
			RequestID:  header.Get("request-id"),
			Body:       string(body),
			Err:        classifyStatus(status),
		}
	}
}

// doOnce executes a single HTTP attempt (no retry). The bearer token is
// obtained fresh on every attempt so a long retry storm never sends a stale
// credential. The full response body is read and the connection released.
func (c *Client) doOnce(ctx context.Context, op call) (int, http.Header, []byte, error) {
	var reqBody io.Reader
	if op.body != nil {
		reqBody = bytes.NewReader(op.body)
	}

	req, err := http.NewRequestWithContext(ctx, op.method, c.baseURL+op.path, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("workbook: creating request: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("workbook: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("client-request-id", uuid.NewString())

	if op.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("workbook: %s %s: %w", op.method, op.path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("workbook: reading response body: %w", err)
	}

	return resp.StatusCode, resp.Header, body, nil
}

// retryAfterDelay returns the wait named by the Retry-After header, or the
// 30-second default when the header is absent or unparseable.
func retryAfterDelay(header http.Header) time.Duration {
	if ra := header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return defaultRetryAfter
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
