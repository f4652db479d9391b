package restutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carelingo/carelingo/internal/inference/engine"
)

// DefaultClient has no overall timeout: calls are bounded by their context.
var DefaultClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	},
}

const maxErrorBody = 4 << 10

// DoJSON sends a JSON request and decodes the JSON response into dest.
// Non-2xx answers become *engine.StatusError tagged with backend.
func DoJSON(ctx context.Context, client *http.Client, backend, method, url string, headers map[string]string, body any, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	if body != nil {
		headers = withHeader(headers, "Content-Type", "application/json")
	}

	respBody, err := DoRaw(ctx, client, backend, method, url, headers, bodyReader)
	if err != nil {
		return err
	}
	defer respBody.Close()

	if dest != nil {
		if err := json.NewDecoder(respBody).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// DoRaw sends a request with raw body and returns the response body.
func DoRaw(ctx context.Context, client *http.Client, backend, method, url string, headers map[string]string, body io.Reader) (io.ReadCloser, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &engine.StatusError{Backend: backend, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	return resp.Body, nil
}

func withHeader(headers map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}
