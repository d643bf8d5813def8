package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunSummary(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
		assert.Equal(t, "Collection finished", r.PostForm.Get("text"))
		assert.Equal(t, "true", r.PostForm.Get("disable_web_page_preview"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42").WithAPIBase(server.URL + "/")
	require.NoError(t, n.PublishRunSummary(context.Background(), "Collection finished"))
}

func TestPublishRunSummaryErrors(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewNotifier("", "42").PublishRunSummary(context.Background(), "x"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	err := NewNotifier("TOKEN", "42").WithAPIBase(server.URL).PublishRunSummary(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Unauthorized")

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer rejecting.Close()

	err = NewNotifier("TOKEN", "42").WithAPIBase(rejecting.URL).PublishRunSummary(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPublishRunSummaryTruncates(t *testing.T) {
	t.Parallel()

	texts := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		texts <- r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	long := strings.Repeat("新", maxMessageRunes+10)
	require.NoError(t, NewNotifier("TOKEN", "42").WithAPIBase(server.URL).PublishRunSummary(context.Background(), long))
	got := <-texts
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
