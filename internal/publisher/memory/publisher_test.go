package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "task-events", map[string]any{"task_id": 7})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "task-events", msgs[0].Topic)
	require.Equal(t, "audit", msgs[1].Topic)

	var event struct {
		TaskID int64 `json:"task_id"`
	}
	require.NoError(t, pub.Decode(0, &event))
	require.Equal(t, int64(7), event.TaskID)
	require.Error(t, pub.Decode(5, &event))

	msgs[0].Topic = "modified"
	require.Equal(t, "task-events", pub.Messages()[0].Topic)
}
