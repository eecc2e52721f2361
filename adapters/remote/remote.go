// Package remote provides a client for a running bazaargate API.
// The CLI uses it to query a deployed instance with the same routes clients use.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/artpar/bazaargate/domain/product"
	"github.com/go-resty/resty/v2"
)

// Client queries the bazaar endpoints of a bazaargate server.
type Client struct {
	http   *resty.Client
	apiKey string
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	Headers    map[string]string
}

// NewClient creates a new remote client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeaders(cfg.Headers).
		SetError(&errorBody{})

	if cfg.RetryCount > 0 {
		// Only transport failures are retried. Any HTTP response, 5xx included,
		// may already have consumed quota on a gated route.
		rc.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil
			})
	}

	return &Client{http: rc, apiKey: cfg.APIKey}
}

type errorBody struct {
	Error string `json:"error"`
}

type valueBody[T any] struct {
	Value T `json:"value"`
}

// Snapshot fetches the latest full snapshot of a product.
func (c *Client) Snapshot(ctx context.Context, productID string) (product.Snapshot, error) {
	var snap product.Snapshot
	if err := c.get(ctx, bazaarPath(productID), &snap); err != nil {
		return product.Snapshot{}, err
	}
	return snap, nil
}

// Field fetches the latest value of one field.
func (c *Client) Field(ctx context.Context, productID, field string) (json.RawMessage, error) {
	var body valueBody[json.RawMessage]
	if err := c.get(ctx, bazaarPath(productID, field), &body); err != nil {
		return nil, err
	}
	return body.Value, nil
}

// History fetches up to limit values of one field, newest first.
func (c *Client) History(ctx context.Context, productID, field string, limit int) ([]json.RawMessage, error) {
	var body valueBody[[]json.RawMessage]
	if err := c.get(ctx, bazaarPath(productID, field, strconv.Itoa(limit)), &body); err != nil {
		return nil, err
	}
	return body.Value, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req := c.http.R().SetContext(ctx).SetResult(result)
	if c.apiKey != "" {
		req.SetQueryParam("key", c.apiKey)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}

	if resp.IsError() {
		msg := resp.String()
		if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
			msg = eb.Error
		}
		return &RemoteError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

func bazaarPath(segments ...string) string {
	p := "/api/skyblock/bazaar"
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// RemoteError represents an error response from the server.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == 404
}

// IsLimitExceeded returns true if the key's quota is spent.
func IsLimitExceeded(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == 429
}
