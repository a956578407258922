package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxElapsed = 30 * time.Second
	maxErrorBody      = 1 << 10
)

type Config struct {
	URL      string
	User     string
	Password string
	// Timeout bounds a single request.
	Timeout time.Duration
	// MaxElapsed bounds all retries of one call.
	MaxElapsed time.Duration
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client is a JSON over HTTP client with basic auth. Network failures,
// 5xx and 429 responses are retried with exponential backoff; other 4xx
// responses and undecodable bodies fail immediately.
type Client struct {
	base       *url.URL
	user       string
	password   string
	http       *http.Client
	maxElapsed time.Duration
	logger     *zerolog.Logger
}

func New(cfg Config, component string) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s url: %w", component, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxElapsed := cfg.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxElapsed
	}

	return &Client{
		base:       base,
		user:       cfg.User,
		password:   cfg.Password,
		http:       &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
		logger:     log.Component(component),
	}, nil
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body []byte, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	endpoint := c.endpoint(path, query)

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.SetBasicAuth(c.user, c.password)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			statusErr := &StatusError{Method: method, URL: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return struct{}{}, statusErr
			}
			return struct{}{}, backoff.Permanent(statusErr)
		}

		if out == nil {
			return struct{}{}, nil
		}
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
		}
		return struct{}{}, nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Dur("backoff", wait).Str("url", endpoint).Msg("request failed, retrying")
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(notify),
	)
	return err
}
