// Package elastic implements engine.Client over go-elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/esremap/internal/engine"
)

// Compile-time check: Client implements engine.Client.
var _ engine.Client = (*Client)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs    []string
	Username string
	Password string
	APIKey   string
	// Transport overrides the HTTP transport, e.g. in tests.
	Transport http.RoundTripper
}

// Client implements engine.Client via go-elasticsearch.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates an Elasticsearch client. No request is made until first use.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return engine.Transport(engine.OpPing, err)
	}
	defer closeBody(res)
	if res.IsError() {
		return decodeError(engine.OpPing, res)
	}
	return nil
}

// Close is a no-op: the HTTP transport holds no resources that need releasing.
func (c *Client) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// errorBody covers both error shapes: an object with type and reason, or a plain string.
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorCause struct {
	Type      string       `json:"type"`
	Reason    string       `json:"reason"`
	RootCause []errorCause `json:"root_cause"`
}

// decodeError turns a non-2xx response into a classified engine error.
func decodeError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(res.Body)
	return engine.Classify(op, res.StatusCode, reasonOf(res.StatusCode, raw))
}

func reasonOf(status int, raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Error) == 0 {
		if len(raw) == 0 {
			return http.StatusText(status)
		}
		return string(raw)
	}
	var s string
	if json.Unmarshal(body.Error, &s) == nil {
		return s
	}
	var cause errorCause
	if json.Unmarshal(body.Error, &cause) == nil {
		return causeString(cause)
	}
	return string(body.Error)
}

func causeString(c errorCause) string {
	if c.Type == "" {
		return c.Reason
	}
	return c.Type + ": " + c.Reason
}

// decode reads a 2xx body into out, or returns the classified error.
func decode(op string, res *esapi.Response, out any) error {
	if res.IsError() {
		return decodeError(op, res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return engine.Unknown(op, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func encode(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &buf, nil
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
