// Package restclient issues GET and POST calls against a single REST node,
// encoding protobuf request messages as query strings or JSON bodies and
// returning raw response bytes.
package restclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/samvad-hq/cosmos-rest/pkg/httpclient"
	"google.golang.org/protobuf/proto"
)

var jsonHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// Client talks to one REST address over a single owned session.
type Client struct {
	address string
	session httpclient.Client
	codec   Codec
	log     Logger

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default resty session. The client takes
// ownership and closes it on Close.
func WithHTTPClient(session httpclient.Client) Option {
	return func(c *Client) {
		if session != nil {
			c.session = session
		}
	}
}

// WithCodec replaces the protojson codec.
func WithCodec(codec Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// New creates a client for address. The address is used verbatim as the
// prefix of every request URL and is not validated here.
func New(address string, opts ...Option) *Client {
	c := &Client{
		address: address,
		codec:   DefaultCodec,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = httpclient.NewRestyClient(nil)
	}
	return c
}

// Address returns the configured base address.
func (c *Client) Address() string { return c.address }

// Get sends a GET to address+path. When request is set, its fields become the
// query string after removing usedParams, which must all be present.
func (c *Client) Get(ctx context.Context, path string, request proto.Message, usedParams []string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	url, err := c.getURL(path, request, usedParams)
	if err != nil {
		return nil, err
	}

	c.log.DebugObj("rest request", "request", map[string]any{
		"method": http.MethodGet,
		"url":    url,
	})

	resp, err := c.session.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logFailure(http.MethodGet, url, resp.StatusCode())
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        url,
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
		}
	}
	return resp.Body(), nil
}

// Post sends request as a JSON body to address+path.
func (c *Client) Post(ctx context.Context, path string, request proto.Message) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if isNilMessage(request) {
		return nil, ErrNilRequest
	}

	body, err := c.codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.address + path
	c.log.DebugObj("rest request", "request", map[string]any{
		"method": http.MethodPost,
		"url":    url,
		"bytes":  len(body),
	})

	resp, err := c.session.Post(ctx, url, body, jsonHeaders)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logFailure(http.MethodPost, url, resp.StatusCode())
		return nil, &StatusError{
			Method:     http.MethodPost,
			URL:        url,
			StatusCode: resp.StatusCode(),
			Request:    body,
			Body:       resp.Body(),
		}
	}
	return resp.Body(), nil
}

// Close releases the session. Only the first call reaches the transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}

func (c *Client) getURL(path string, request proto.Message, usedParams []string) (string, error) {
	base := c.address + path
	if isNilMessage(request) {
		return base, nil
	}

	params, err := encodeParams(c.codec, request, usedParams)
	if err != nil {
		return "", err
	}
	query := params.Encode()
	if query == "" {
		return base, nil
	}
	return base + "?" + query, nil
}

func (c *Client) logFailure(method, url string, status int) {
	c.log.WarnObj("rest request failed", "response", map[string]any{
		"method": method,
		"url":    url,
		"status": status,
	})
}
