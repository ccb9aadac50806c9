package gcs

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "reports"})
	require.ErrorContains(t, err, "client is required")

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	_, err = New(client, Config{})
	require.ErrorContains(t, err, "bucket name is required")

	store, err := New(client, Config{Bucket: "reports"})
	require.NoError(t, err)
	require.NoError(t, store.Close(), "borrowed clients are not closed")

	_, err = store.PutObject(context.Background(), "", "application/json", strings.NewReader("{}"))
	require.ErrorContains(t, err, "path is required")
}

func TestOpenRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Endpoint: "http://localhost:4443/storage/v1/"})
	require.Error(t, err)
}
