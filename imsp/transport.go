package imsp

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserAgent string.
var UserAgent = "Emome_IMSP_SMS"

// DefaultTimeout is used for both the connection and the whole request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of an error response is kept in TransportError.
const maxErrorBody = 512

// Poster sends a form to the gateway and returns the raw response body.
type Poster interface {
	PostForm(ctx context.Context, endpoint string, fields url.Values) ([]byte, error)
}

// HTTPPoster is a Poster working over HTTP.
type HTTPPoster struct {
	client *http.Client
}

// NewHTTPPoster returns an HTTPPoster with the given connect and request
// timeouts. Zero values fall back to DefaultTimeout.
func NewHTTPPoster(connectTimeout, timeout time.Duration) *HTTPPoster {
	if connectTimeout <= 0 {
		connectTimeout = DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	return &HTTPPoster{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// PostForm sends the fields as an application/x-www-form-urlencoded body.
// Network errors are returned as is; a non-2xx answer gives a TransportError.
func (p *HTTPPoster) PostForm(ctx context.Context, endpoint string, fields url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	if UserAgent != "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return io.ReadAll(resp.Body)
}
