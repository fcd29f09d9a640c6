package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/pkg/jobs"
)

func TestMultiTriesEveryPublisher(t *testing.T) {
	var calls []string
	failing := PublisherFunc(func(ctx context.Context, evt Event) error {
		calls = append(calls, "failing")
		return errors.New("down")
	})
	ok := PublisherFunc(func(ctx context.Context, evt Event) error {
		calls = append(calls, "ok")
		return nil
	})

	err := Multi(failing, nil, ok).Publish(context.Background(), New(AssetAssigned, "assets", "a1", "admin", nil))
	require.Error(t, err)
	assert.Equal(t, []string{"failing", "ok"}, calls)
}

func TestRedisPublisherPublishesOnTableChannel(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), "assetdesk:assets")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	pub := NewRedisPublisher(client, "", jobs.QueueConfig{Workers: 1})
	pub.Start(context.Background())
	require.NoError(t, pub.Publish(context.Background(), New(AssetAssigned, "assets", "a1", "admin", map[string]string{"assigned_to": "u1"})))

	select {
	case msg := <-sub.Channel():
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
		assert.Equal(t, AssetAssigned, evt.Type)
		assert.Equal(t, "a1", evt.EntityID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pub.Stop(ctx)
}
