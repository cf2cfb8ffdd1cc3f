package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxBodySize = 16 << 20

// getBody GETs target and returns the body of a 2xx reply. Failures are reported
// as *ConnectionError against activityURL.
func getBody(ctx context.Context, client *http.Client, activityURL, target string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &ConnectionError{URL: activityURL, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ConnectionError{URL: activityURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ConnectionError{URL: activityURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &ConnectionError{URL: activityURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
