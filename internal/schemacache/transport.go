package schemacache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "schemalint"

// Response carries the transport-level result of a schema fetch. A 304
// response has an empty Body.
type Response struct {
	StatusCode int
	Body       []byte
	ETag       string
}

// Transport issues HTTP GET requests for schema bodies. Implementations
// send If-None-Match when etag is non-empty and must honor ctx
// cancellation. Injectable so tests and offline tools can substitute the
// network.
type Transport interface {
	Get(ctx context.Context, url, etag string) (*Response, error)
}

type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport returns the default net/http-backed Transport.
func NewHTTPTransport(timeout time.Duration) Transport {
	return &httpTransport{client: &http.Client{Timeout: timeout}}
}

func (t *httpTransport) Get(ctx context.Context, url, etag string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Response{StatusCode: resp.StatusCode}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		ETag:       resp.Header.Get("ETag"),
	}, nil
}
