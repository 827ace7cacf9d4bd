// internal/common/http/client.go
package http

import (
	"fmt"
	"net/http"
	"time"
)

// Doer is the subset of *http.Client the outbound clients depend on.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient *http.Client
}

// NewClient builds an HTTP/1.1-only client. A zero timeout waits for the
// server indefinitely; redirects are followed up to maxRedirects hops.
func NewClient(timeout time.Duration, maxRedirects int) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = false
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	transport.Protocols = protocols

	return &Client{
		httpClient: &http.Client{
			Transport:     transport,
			Timeout:       timeout,
			CheckRedirect: redirectPolicy(maxRedirects),
		},
	}
}

func redirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
