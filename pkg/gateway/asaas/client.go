// Package asaas implements gateway.Gateway against the Asaas v3 REST API.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/logger"
)

// ProviderName is the provider key stored with customer refs and payments.
const ProviderName = "asaas"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 20

var _ gateway.Gateway = (*Client)(nil)

// Client talks to the Asaas API.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
	now  func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithClock overrides the clock used for due dates.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// New returns an Asaas client. The API key is required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: asaas api key is required", gateway.ErrInvalidRequest)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.DueDays < 0 {
		cfg.DueDays = 0
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		cfg:  cfg,
		http: httpClient,
		log:  logger.Discard(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return ProviderName }

// errorResponse is the Asaas error body.
type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// do sends a JSON request and decodes a 2xx response into out. Any other
// status becomes a *gateway.ProcessorError with the Asaas descriptions.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("asaas: encode %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("asaas: build %s request: %w", op, err)
	}
	req.Header.Set("access_token", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "biolink-billing")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.ProcessorError{
			Provider:  ProviderName,
			Operation: op,
			Message:   "payment processor is unreachable, please try again",
			Err:       err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &gateway.ProcessorError{Provider: ProviderName, Operation: op, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.DebugContext(ctx, "asaas request",
		logger.Provider(ProviderName),
		logger.Event(op),
		slog.Int("status_code", resp.StatusCode),
		logger.Duration(c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return processorError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &gateway.ProcessorError{
			Provider:   ProviderName,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("asaas: decode %s response: %w", op, err),
		}
	}
	return nil
}

func processorError(op string, status int, raw []byte) *gateway.ProcessorError {
	pe := &gateway.ProcessorError{Provider: ProviderName, Operation: op, StatusCode: status}

	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && len(er.Errors) > 0 {
		msgs := make([]string, 0, len(er.Errors))
		for _, e := range er.Errors {
			if e.Description != "" {
				msgs = append(msgs, e.Description)
			}
		}
		pe.Message = strings.Join(msgs, "; ")
		if len(er.Errors) > 0 {
			pe.Err = errors.New(er.Errors[0].Code)
		}
	}
	if pe.Message == "" {
		pe.Message = fmt.Sprintf("payment processor returned %d %s", status, http.StatusText(status))
	}
	return pe
}
