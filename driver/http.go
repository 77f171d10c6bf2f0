package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPSinkDriver issues one HTTP request per message: JSON body
// {"data": payload, "metadata": metadata}, configurable method (default
// POST), non-2xx treated as failure.
type HTTPSinkDriver struct {
	URL    string
	Method string
	Header http.Header
	client *http.Client
}

// NewHTTPSinkDriver builds a sink driver targeting url. method defaults to
// POST when empty.
func NewHTTPSinkDriver(url, method string) *HTTPSinkDriver {
	if method == "" {
		method = http.MethodPost
	}
	return &HTTPSinkDriver{
		URL:    url,
		Method: method,
		client: &http.Client{},
	}
}

func (d *HTTPSinkDriver) Open(_ context.Context) error { return nil }

func (d *HTTPSinkDriver) Write(ctx context.Context, msg Message) error {
	body, err := json.Marshal(struct {
		Data     any            `json:"data"`
		Metadata map[string]any `json:"metadata"`
	}{Data: msg.Payload, Metadata: msg.Metadata})
	if err != nil {
		return fmt.Errorf("marshal sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain sink response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sink request returned %s", resp.Status)
	}
	return nil
}

func (d *HTTPSinkDriver) Close(_ context.Context) error { return nil }

// HTTPSourceDriver issues one GET against URL per Poll call and returns the
// response body as a message payload (used by a source node's Kind:
// SourceHTTP). It keeps no interval of its own: the source node's poll loop
// calls Poll again as soon as the previous call returns.
type HTTPSourceDriver struct {
	URL    string
	client *http.Client
}

func NewHTTPSourceDriver(url string) *HTTPSourceDriver {
	return &HTTPSourceDriver{URL: url, client: &http.Client{}}
}

func (d *HTTPSourceDriver) Open(_ context.Context) error { return nil }

func (d *HTTPSourceDriver) Poll(ctx context.Context) (Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return Message{}, fmt.Errorf("build poll request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("poll request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Message{}, fmt.Errorf("poll request returned %s", resp.Status)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = string(body)
	}
	return Message{Payload: payload, Metadata: map[string]any{"source_url": d.URL}}, nil
}

func (d *HTTPSourceDriver) Close(_ context.Context) error { return nil }
