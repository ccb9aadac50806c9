package memory

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte(`{"empty":true}`)
	uri, err := store.PutObject(context.Background(), "reports/2024-05-01/a.json", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://reports/2024-05-01/a.json", uri)

	payload[0] = '['
	stored, contentType, ok := store.Object("reports/2024-05-01/a.json")
	require.True(t, ok)
	require.Equal(t, `{"empty":true}`, string(stored))
	require.Equal(t, "application/json", contentType)

	stored[0] = '['
	again, _, _ := store.Object("reports/2024-05-01/a.json")
	require.Equal(t, byte('{'), again[0])
}

func TestBlobStoreRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), " ", "", strings.NewReader("x"))
	require.Error(t, err)
}

func TestBlobStorePaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"b.json", "a.json"} {
		_, err := store.PutObject(context.Background(), p, "", strings.NewReader("{}"))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"a.json", "b.json"}, store.Paths())
	_, _, ok := store.Object("missing.json")
	require.False(t, ok)
}
