package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrTooLarge is returned when a response body exceeds the caller's limit.
var ErrTooLarge = errors.New("response body too large")

// Fetcher downloads small remote resources with retries. Private, loopback
// and link-local destinations are refused unless WithPrivateNetworks is set.
type Fetcher struct {
	client       *retryablehttp.Client
	maxBytes     int64
	allowPrivate bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithPrivateNetworks lets the Fetcher reach private and loopback addresses.
func WithPrivateNetworks() FetcherOption {
	return func(f *Fetcher) { f.allowPrivate = true }
}

// NewFetcher builds a Fetcher. A logger of nil keeps retryablehttp quiet.
func NewFetcher(timeout time.Duration, retryMax int, maxBytes int64, logger retryablehttp.LeveledLogger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{maxBytes: maxBytes}
	for _, opt := range opts {
		opt(f)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}

	if !f.allowPrivate {
		dialer := &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
			Control:   dialControl,
		}
		transport := cleanhttp.DefaultPooledTransport()
		transport.Proxy = nil
		transport.DialContext = dialer.DialContext
		client.HTTPClient.Transport = transport
		client.HTTPClient.CheckRedirect = checkRedirect
		client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
			if errors.Is(err, ErrBlockedAddress) {
				return false, err
			}
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
	}

	f.client = client
	return f
}

// GetBytes fetches rawURL and returns its body.
func (f *Fetcher) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !f.allowPrivate {
		if err := validateURL(u); err != nil {
			return nil, err
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}
