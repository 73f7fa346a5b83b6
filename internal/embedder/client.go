package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// postJSON sends in as a JSON POST body to url, decodes the response body
// into out, and returns the HTTP status code. Extra headers (auth) come from
// hdr. The response body is decoded even on non-2xx statuses so callers can
// surface the backend's own error message.
func postJSON(ctx context.Context, client *http.Client, url string, hdr http.Header, in, out any) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A non-2xx body may not be JSON at all (proxies, HTML error pages);
		// let the caller report the status instead of a decode failure.
		if statusOK(resp.StatusCode) {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// statusOK reports whether code is a 2xx status.
func statusOK(code int) bool { return code >= 200 && code < 300 }
