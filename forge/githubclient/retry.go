package githubclient

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// retryDelays is the fixed backoff schedule for the "submitted too quickly"
// secondary rate limit (spec §5): up to 4 attempts at 0s, 60s, 90s, 120s.
var retryDelays = []time.Duration{0, 60 * time.Second, 90 * time.Second, 120 * time.Second}

// rateLimitRetryTransport retries a request when the response body names
// GitHub's secondary rate limit ("you have exceeded a secondary rate
// limit", "submitted too quickly"); every other error or status propagates
// unretried.
type rateLimitRetryTransport struct {
	wrapped http.RoundTripper
	sleep   func(time.Duration)
}

func (t *rateLimitRetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	var resp *http.Response
	var err error
	for attempt, delay := range retryDelays {
		if delay > 0 {
			t.sleep(delay)
		}
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
		resp, err = t.wrapped.RoundTrip(req)
		if err != nil || !isSecondaryRateLimited(resp) {
			return resp, err
		}
		if attempt < len(retryDelays)-1 {
			resp.Body.Close()
		}
	}
	return resp, err
}

func isSecondaryRateLimited(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		return false
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}
	msg := strings.ToLower(string(body))
	return strings.Contains(msg, "secondary rate limit") || strings.Contains(msg, "submitted too quickly")
}
