package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishToFakeServer(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	admin, err := pubsub.NewClient(ctx, "seo-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "task-events")
	require.NoError(t, err)

	pub, err := New(ctx, Config{ProjectID: "seo-project", TopicID: "task-events"}, option.WithGRPCConn(conn))
	require.NoError(t, err)

	id, err := pub.Publish(ctx, "task.completed", map[string]any{"task_id": 7})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"task_id":7}`, string(msgs[0].Data))
	require.NoError(t, pub.Close())
}

func TestNewRequiresTopic(t *testing.T) {
	_, err := New(context.Background(), Config{ProjectID: "p"})
	require.Error(t, err)

	var nilPub *Publisher
	_, err = nilPub.Publish(context.Background(), "t", 1)
	require.Error(t, err)
}
