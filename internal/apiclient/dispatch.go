package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// attemptOutcome classifies the result of one dispatch attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeTransient
	outcomePermanent
)

// classifyAttempt decides the outcome for one attempt. A failure is
// transient when no HTTP response arrived at all, or the status was 5xx
// or 429. Every other failure is permanent.
func classifyAttempt(err error) attemptOutcome {
	if err == nil {
		return outcomeSuccess
	}
	if IsTransient(err) {
		return outcomeTransient
	}
	return outcomePermanent
}

// baseBackoff returns the minimum delay before retry attempt n (1-based),
// ignoring jitter: BaseDelay * 2^(n-1).
func (c *Client) baseBackoff(attempt int) time.Duration {
	return c.cfg.BaseDelay * time.Duration(1<<(attempt-1))
}

// backoffDelay adds random jitter in [0, MaxJitter) to the base delay, so
// concurrent callers do not retry in lockstep.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseBackoff(attempt)
	if c.cfg.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.cfg.MaxJitter))) //nolint:gosec
	}
	return delay
}

// dispatch runs the retried request loop for one logical call. The rate
// limiter has already been consulted; retries never consume further slots.
// On exhaustion the last attempt's error is returned unchanged.
func (c *Client) dispatch(ctx context.Context, method, path string, body []byte, contentType, accept string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.stats.retries.Add(1)
			delay := c.backoffDelay(attempt)
			c.logger.Debug("retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, "", &NetworkError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		respBody, respType, err := c.attempt(ctx, method, path, body, contentType, accept)
		switch classifyAttempt(err) {
		case outcomeSuccess:
			return respBody, respType, nil
		case outcomeTransient:
			lastErr = err
			continue
		default:
			c.stats.failures.Add(1)
			return nil, "", err
		}
	}

	c.stats.failures.Add(1)
	return nil, "", lastErr
}

// attempt performs exactly one request/response round trip.
func (c *Client) attempt(ctx context.Context, method, path string, body []byte, contentType, accept string) ([]byte, string, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, "", &ValidationError{Reason: fmt.Sprintf("build request: %v", err)}
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept == "" {
		accept = contentTypeJSON
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set(headerRequestID, uuid.New().String())
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		return nil, "", &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &APIError{
			Status:  resp.StatusCode,
			Message: apiErrorMessage(respBody, resp.Status),
			Body:    respBody,
		}
	}

	return respBody, resp.Header.Get("Content-Type"), nil
}

// apiErrorMessage extracts a short human-readable message from an error
// response body, falling back to the HTTP status line.
func apiErrorMessage(body []byte, statusLine string) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return statusLine
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
