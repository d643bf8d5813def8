package snapshot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/config"
)

func TestDirStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewDirStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a/20250610T080000Z.html", "<html>快照</html>"))

	markup, err := store.Load(ctx, "a/20250610T080000Z.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>快照</html>", markup)

	_, err = store.Load(ctx, "a/missing.html")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestDirStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store := NewDirStore(t.TempDir())
	assert.Error(t, store.Save(context.Background(), "../outside.html", "x"))
	_, err := store.Load(context.Background(), "a/../../outside.html")
	assert.Error(t, err)
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		raw, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = string(raw)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := b.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreRoundTrip(t *testing.T) {
	t.Parallel()

	bucket := &fakeBucket{objects: map[string]string{}}
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3Store(ctx, config.SnapshotConfig{
		Bucket:   "snapshots",
		Prefix:   "/listings/",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	}, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
	})))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "a/20250610T080000Z.html", "<html>ok</html>"))

	bucket.mu.Lock()
	stored := bucket.objects["/snapshots/listings/a/20250610T080000Z.html"]
	bucket.mu.Unlock()
	assert.Equal(t, "<html>ok</html>", stored)

	markup, err := store.Load(ctx, "a/20250610T080000Z.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", markup)

	_, err = store.Load(ctx, "a/missing.html")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.True(t, strings.Contains(err.Error(), "a/missing.html"))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(context.Background(), config.SnapshotConfig{})
	assert.Error(t, err)
}
