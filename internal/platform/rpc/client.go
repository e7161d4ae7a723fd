package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
)

// Client issues JSON calls to a sibling service. Every call carries the
// caller's RequestContext as headers and is bounded by the client timeout.
// Calls are never retried.
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &Client{http: c, timeout: timeout}
}

// Do performs method on path. On 2xx the body is decoded into result (if
// non-nil). Transport failures become CodeUnavailable; error responses are
// decoded from ErrorBody, falling back to the status code.
func (c *Client) Do(ctx context.Context, rc reqctx.RequestContext, method, path string, body, result interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := c.http.R().SetContext(ctx).SetError(&ErrorBody{})
	reqctx.Apply(req, rc)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return Wrap(CodeUnavailable, err, fmt.Sprintf("%s %s", method, path))
	}
	if !resp.IsError() {
		return nil
	}

	code := CodeFromHTTPStatus(resp.StatusCode())
	msg := resp.Status()
	if eb, ok := resp.Error().(*ErrorBody); ok && eb != nil {
		if eb.Code != "" {
			code = eb.Code
		}
		if eb.Message != "" {
			msg = eb.Message
		}
	}
	return &Error{Code: code, Message: msg}
}
