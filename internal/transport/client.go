// Package transport provides the HTTP client used for outbound calls to OCPI
// peers. It carries the peer's Authorization token and propagates the request
// identifier so callbacks can be correlated across parties.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	apperrors "github.com/allisson/ocpi-hub/internal/errors"
)

// maxResponseBytes caps the size of peer response bodies.
const maxResponseBytes = 4 << 20

// Client is the peer-transport abstraction consumed by the credentials
// negotiator and the command dispatcher.
type Client interface {
	// Get performs a GET against url using the given authorization token.
	Get(ctx context.Context, url, token string) (int, []byte, error)

	// Post performs a POST with a JSON body against url.
	Post(ctx context.Context, url, token string, body []byte) (int, []byte, error)

	// Put performs a PUT with a JSON body against url.
	Put(ctx context.Context, url, token string, body []byte) (int, []byte, error)
}

// HTTPClient implements Client on top of net/http.
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient creates a peer client with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET against url.
func (c *HTTPClient) Get(ctx context.Context, url, token string) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, url, token, nil)
}

// Post performs a POST with a JSON body against url.
func (c *HTTPClient) Post(ctx context.Context, url, token string, body []byte) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, url, token, body)
}

// Put performs a PUT with a JSON body against url.
func (c *HTTPClient) Put(ctx context.Context, url, token string, body []byte) (int, []byte, error) {
	return c.do(ctx, http.MethodPut, url, token, body)
}

func (c *HTTPClient) do(ctx context.Context, method, url, token string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, apperrors.Wrap(err, "failed to build peer request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
		req.Header.Set("X-Correlation-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, apperrors.Wrap(apperrors.ErrPeerUnreachable, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, apperrors.Wrap(apperrors.ErrPeerUnreachable, err.Error())
	}

	return resp.StatusCode, respBody, nil
}

// requestIDKey is a context key type for carrying the request identifier into
// outbound peer calls.
type requestIDKey struct{}

// WithRequestID returns a context carrying the request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext extracts the request identifier from the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok && requestID != ""
}
