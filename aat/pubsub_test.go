package aat

import (
	"context"
	"testing"
	"time"

	"github.com/gammazero/wampv1/client"
	"github.com/gammazero/wampv1/wamp"
	"github.com/stretchr/testify/require"
)

const (
	testTopic = "http://example.com/simple"
	eventWait = 500 * time.Millisecond
)

// subscribe subscribes cli to topic and waits until the engine has seen the
// subscription by round-tripping a call on the same session.
func subscribe(t *testing.T, cli *client.Client, topic wamp.URI) <-chan interface{} {
	events := make(chan interface{}, 16)
	require.NoError(t, cli.Subscribe(topic, func(_ wamp.URI, event interface{}) {
		events <- event
	}))
	syncSession(t, cli)
	return events
}

// syncSession returns once every message cli sent before it has been
// processed.  Messages on a session are handled in order.
func syncSession(t *testing.T, cli *client.Client) {
	_, err := cli.Call(context.Background(), "/aat/sync#nothing")
	var rpcErr client.RPCError
	require.ErrorAs(t, err, &rpcErr)
}

func requireEvent(t *testing.T, events <-chan interface{}, want interface{}) {
	select {
	case ev := <-events:
		require.Equal(t, want, ev)
	case <-time.After(eventWait):
		require.FailNow(t, "did not get published event")
	}
}

func requireNoEvent(t *testing.T, events <-chan interface{}) {
	select {
	case ev := <-events:
		require.FailNow(t, "unexpected event", "%v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPubSub(t *testing.T) {
	checkGoLeaks(t)
	subscriber := connectClient(t)
	events := subscribe(t, subscriber, testTopic)

	publisher := connectClient(t)
	require.NoError(t, publisher.Publish(testTopic, "hello world"))
	requireEvent(t, events, "hello world")

	// Publisher is not subscribed, so exclude_me has no effect on subscriber.
	require.NoError(t, publisher.Publish(testTopic, "again", client.ExcludeMe()))
	requireEvent(t, events, "again")

	require.NoError(t, subscriber.Unsubscribe(testTopic))
	syncSession(t, subscriber)
	require.NoError(t, publisher.Publish(testTopic, "gone"))
	requireNoEvent(t, events)
}

func TestPubSubExcludeMe(t *testing.T) {
	checkGoLeaks(t)
	sess := connectClient(t)
	events := subscribe(t, sess, testTopic)

	require.NoError(t, sess.Publish(testTopic, "self", client.ExcludeMe()))
	syncSession(t, sess)
	requireNoEvent(t, events)

	require.NoError(t, sess.Publish(testTopic, "self"))
	requireEvent(t, events, "self")
}

func TestPubSubExcludeEligible(t *testing.T) {
	checkGoLeaks(t)
	sub1 := connectClient(t)
	sub2 := connectClient(t)
	events1 := subscribe(t, sub1, testTopic)
	events2 := subscribe(t, sub2, testTopic)
	publisher := connectClient(t)

	require.NoError(t, publisher.Publish(testTopic, "not sub1", client.Exclude(sub1.ID())))
	requireEvent(t, events2, "not sub1")
	requireNoEvent(t, events1)

	require.NoError(t, publisher.Publish(testTopic, "only sub1", client.Eligible(sub1.ID())))
	requireEvent(t, events1, "only sub1")
	requireNoEvent(t, events2)
}

func TestPubSubEngineSessionClose(t *testing.T) {
	checkGoLeaks(t)
	subscriber := connectClient(t)
	events := subscribe(t, subscriber, "http://example.com/closing")

	require.Equal(t, 1, engine.Publish("http://example.com/closing", "before"))
	requireEvent(t, events, "before")

	require.NoError(t, subscriber.Close())
	require.Eventually(t, func() bool {
		return engine.Publish("http://example.com/closing", "after") == 0
	}, time.Second, 10*time.Millisecond)
}
