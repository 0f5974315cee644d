package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo":
			w.Write([]byte("0123456789"))
		case "/big":
			w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 0, 32, nil, WithPrivateNetworks())

	body, err := f.GetBytes(context.Background(), srv.URL+"/photo")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(body))

	_, err = f.GetBytes(context.Background(), srv.URL+"/big")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.GetBytes(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status 404")
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 2, 1024, nil, WithPrivateNetworks())
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = 5 * time.Millisecond

	body, err := f.GetBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(time.Second, 0, 1024, nil).GetBytes(ctx, "http://127.0.0.1:1/")
	assert.Error(t, err)
}

func TestFetcherBlocksLoopback(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("secret"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, 2, 1024, nil)

	_, err := f.GetBytes(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)

	// A hostname resolving to loopback is caught when dialling.
	byName := strings.Replace(srv.URL, "127.0.0.1", "localhost", 1)
	_, err = f.GetBytes(context.Background(), byName)
	assert.ErrorContains(t, err, ErrBlockedAddress.Error())

	assert.Zero(t, calls.Load())
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		blocked bool
	}{
		{"https://example.com/photo.jpg", false},
		{"http://93.184.216.34/a.png", false},
		{"file:///etc/passwd", true},
		{"gopher://example.com/", true},
		{"http://127.0.0.1:8080/", true},
		{"http://[::1]/", true},
		{"http://10.1.2.3/", true},
		{"http://172.16.0.1/", true},
		{"http://192.168.1.1/", true},
		{"http://169.254.169.254/latest/meta-data/", true},
		{"http://100.100.100.200/", true},
		{"http://0.0.0.0/", true},
		{"http:///nohost", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			if tt.blocked {
				assert.ErrorIs(t, validateURL(u), ErrBlockedAddress)
			} else {
				assert.NoError(t, validateURL(u))
			}
		})
	}
}

func TestDialControl(t *testing.T) {
	assert.ErrorIs(t, dialControl("tcp", "10.0.0.8:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, dialControl("tcp6", "[fd00::1]:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, dialControl("tcp", "garbage", nil), ErrBlockedAddress)
	assert.NoError(t, dialControl("tcp", "93.184.216.34:443", nil))
}

func TestCheckRedirect(t *testing.T) {
	to := func(raw string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, raw, nil)
		require.NoError(t, err)
		return req
	}
	assert.NoError(t, checkRedirect(to("https://example.com/b.png"), nil))
	assert.ErrorIs(t, checkRedirect(to("http://169.254.169.254/"), nil), ErrBlockedAddress)
	assert.Error(t, checkRedirect(to("https://example.com/"), make([]*http.Request, 10)))
}

func TestEnsureParentDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "nested", "frameapp.log")
	require.NoError(t, EnsureParentDir(file))

	fi, err := os.Stat(filepath.Dir(file))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}
