package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"NewsCollector/internal/ports"
)

func TestFetchSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := New(server.Client(), "", 0)
	body, err := f.Fetch(context.Background(), server.URL, ports.FetchOptions{})
	require.NoError(t, err)
	require.Contains(t, body, "ok")
	require.Equal(t, DefaultUserAgent, gotUA)
	require.Equal(t, acceptHeader, gotAccept)
}

func TestFetchReportsStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(server.Client(), "", 0)
	_, err := f.Fetch(context.Background(), server.URL, ports.FetchOptions{})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	require.Equal(t, "HTTP 503", err.Error())
}

func TestFetchTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := New(server.Client(), "", 0)
	_, err := f.Fetch(context.Background(), server.URL, ports.FetchOptions{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchDecodesLegacyCharsets(t *testing.T) {
	t.Parallel()

	encoded, err := simplifiedchinese.GBK.NewEncoder().String("<p>数据中心</p>")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(encoded))
	}))
	defer server.Close()

	f := New(server.Client(), "", 0)

	body, err := f.Fetch(context.Background(), server.URL, ports.FetchOptions{Encoding: "gbk"})
	require.NoError(t, err)
	require.Contains(t, body, "数据中心")

	_, err = f.Fetch(context.Background(), server.URL, ports.FetchOptions{Encoding: "no-such-charset"})
	require.Error(t, err)
}
