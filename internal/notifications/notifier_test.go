package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := NewRedisClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNotifier_DisabledIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Publish(context.Background(), ChannelPosts, EventPostCreated, PostEventPayload{PostID: 1}))
	assert.NoError(t, n.Ping(context.Background()))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {
		t.Fatal("disabled notifier must not deliver")
	}))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("   ")
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()

	_, err = NewRedisClient("redis://%zz")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := Connect(context.Background(), mr.Addr())
	require.NotNil(t, client)
	_ = client.Close()

	assert.Nil(t, Connect(context.Background(), ""))

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, Connect(context.Background(), addr))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	require.NoError(t, n.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type received struct {
		channel string
		event   Event
	}
	var mu sync.Mutex
	var got []received
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		var evt Event
		assert.NoError(t, json.Unmarshal([]byte(payload), &evt))
		mu.Lock()
		got = append(got, received{channel, evt})
		mu.Unlock()
	}))

	require.NoError(t, n.Publish(ctx, ChannelPosts, EventPostCreated, PostEventPayload{PostID: 7, OwnerID: 3, Title: "T", Published: true}))
	require.NoError(t, n.Publish(ctx, ChannelVotes, EventVoteAdded, VoteEventPayload{PostID: 7, UserID: 3, Dir: 1}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ChannelPosts, got[0].channel)
	assert.Equal(t, EventPostCreated, got[0].event.Type)
	var post PostEventPayload
	require.NoError(t, json.Unmarshal(got[0].event.Payload, &post))
	assert.Equal(t, PostEventPayload{PostID: 7, OwnerID: 3, Title: "T", Published: true}, post)

	assert.Equal(t, ChannelVotes, got[1].channel)
	assert.Equal(t, EventVoteAdded, got[1].event.Type)
	assert.JSONEq(t, `{"post_id":7,"user_id":3,"dir":1}`, string(got[1].event.Payload))
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.Publish(context.Background(), ChannelPosts, EventPostDeleted, PostEventPayload{PostID: 1}))
	require.Eventually(t, func() bool { return len(payloads) == 1 }, time.Second, 10*time.Millisecond)
	<-payloads

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), ChannelPosts, EventPostDeleted, PostEventPayload{PostID: 2}))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberRecoversFromPanic(t *testing.T) {
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 2)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {
		calls <- struct{}{}
		panic("boom")
	}))

	require.NoError(t, n.Publish(ctx, ChannelVotes, EventVoteRemoved, VoteEventPayload{}))
	require.NoError(t, n.Publish(ctx, ChannelVotes, EventVoteRemoved, VoteEventPayload{}))
	assert.Eventually(t, func() bool { return len(calls) == 2 }, time.Second, 10*time.Millisecond)
}
