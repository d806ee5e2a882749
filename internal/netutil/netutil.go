package netutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxProbeBody caps how much of a response body a probe keeps around; the lab
// only ever matches short markers.
const maxProbeBody = 64 << 10

// ProbeResult is the outcome of a single HTTP probe.
type ProbeResult struct {
	StatusCode int
	Body       string
}

// OK reports whether the probe got a 2xx response.
func (r *ProbeResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BodyContains reports whether the response body contains marker. An empty
// marker matches any response.
func (r *ProbeResult) BodyContains(marker string) bool {
	if marker == "" {
		return true
	}

	return strings.Contains(r.Body, marker)
}

// ProbeHTTP issues one GET against url with the given per-request timeout and
// returns the status code plus a bounded copy of the body. Redirects are not
// followed: the probe reports what the edge answered, not where it points.
func ProbeHTTP(ctx context.Context, url string, timeout time.Duration) (*ProbeResult, error) {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error probing %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, fmt.Errorf("error reading probe response from %s: %w", url, err)
	}

	return &ProbeResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
