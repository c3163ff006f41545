package httpclient

import (
	"context"
	"errors"
	"sync"

	"github.com/go-resty/resty/v2"
)

// ErrClosed is returned by calls issued after Close.
var ErrClosed = errors.New("httpclient: session closed")

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client

	mu     sync.RWMutex
	closed bool
}

// NewRestyClient creates a new RestyClient. The optional logger receives
// resty's own warnings and errors; zap's SugaredLogger satisfies it.
func NewRestyClient(log resty.Logger) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(log)}
}

// newRestyBaseClient creates a resty.Client without any timeout; deadlines come from the caller's context.
func newRestyBaseClient(log resty.Logger) *resty.Client {
	c := resty.New()
	if log != nil {
		c.SetLogger(log)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req, err := r.request(ctx, headers)
	if err != nil {
		return nil, err
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Post performs an HTTP POST request sending body as-is.
func (r *RestyClient) Post(ctx context.Context, url string, body []byte, headers map[string]string) (Response, error) {
	req, err := r.request(ctx, headers)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetBody(body).Post(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Close drops pooled idle connections. It is safe to call more than once.
func (r *RestyClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.client.GetClient().CloseIdleConnections()
	return nil
}

func (r *RestyClient) request(ctx context.Context, headers map[string]string) (*resty.Request, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	if ctx == nil {
		ctx = context.Background()
	}
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	return req, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
