package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// get makes an authenticated GET request to the Web API and decodes the JSON
// response into out.
//
// Rate limits and 5xx responses are retried with exponential backoff only
// when the client was configured with MaxRetries > 0.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	backoff := 1 * time.Second
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		c.logDebugf("spotify: GET %s (attempt %d/%d)", path, i+1, attempts)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "wrapped/1.0")
		tok.SetAuthHeader(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if isNetworkError(err) && i < attempts-1 {
				c.logDebugf("spotify: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return fmt.Errorf("http request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := parseError(resp.StatusCode, body)
			if apiErr.Temporary() && i < attempts-1 {
				c.logDebugf("spotify: temporary error, retrying: %v", apiErr)
				lastErr = apiErr
				if !sleep(ctx, retryAfter(resp, backoff)) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return apiErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse JSON response: %w", err)
		}

		c.logDebugf("spotify: GET %s succeeded", path)
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseError builds an *Error from a non-2xx response, falling back to the
// HTTP status text when the body is not an error envelope.
func parseError(status int, body []byte) *Error {
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		code := envelope.Error.Status
		if code == 0 {
			code = status
		}
		return &Error{Status: code, Message: envelope.Error.Message}
	}
	return &Error{Status: status, Message: http.StatusText(status)}
}

// retryAfter honours a Retry-After header in seconds, otherwise returns fallback.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := time.ParseDuration(v + "s"); err == nil && secs > 0 {
			return secs
		}
	}
	return fallback
}

// isNetworkError checks if an error came from the network layer.
func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(duration):
		return true
	}
}

// nextBackoff doubles the backoff, capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
