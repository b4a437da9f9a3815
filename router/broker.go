package router

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/wamp"
)

// topicEntry is the subscriber set of one topic.  Its mutex serializes
// publications to the topic, so each subscriber receives the topic's events
// in publish order.
type topicEntry struct {
	mu   sync.Mutex
	subs map[*Session]struct{}
	// Set when the entry is removed from the topic map.  A removed entry is
	// never used again.
	removed bool
}

// Broker tracks topic subscriptions and fans out published events to the
// subscribed sessions.  Subscriptions of different topics never contend on a
// shared lock.
type Broker struct {
	// topic URI -> *topicEntry
	topics sync.Map

	filterFactory FilterFactory
	metrics       *Metrics
	// Set once the broker is bound to an engine.
	bound atomic.Bool

	log   stdlog.StdLog
	debug bool
}

// NewBroker returns a new broker.  If filterFactory is nil, the exclude and
// eligible lists of a PUBLISH message are applied by NewSimplePublishFilter.
func NewBroker(logger stdlog.StdLog, filterFactory FilterFactory, debug bool) *Broker {
	if filterFactory == nil {
		filterFactory = NewSimplePublishFilter
	}
	return &Broker{
		filterFactory: filterFactory,
		log:           logger,
		debug:         debug,
	}
}

// lockTopic returns the locked entry for topic, creating it if needed.
func (b *Broker) lockTopic(topic wamp.URI) *topicEntry {
	for {
		v, _ := b.topics.LoadOrStore(topic, &topicEntry{subs: map[*Session]struct{}{}})
		entry := v.(*topicEntry)
		entry.mu.Lock()
		if !entry.removed {
			return entry
		}
		entry.mu.Unlock()
	}
}

// deleteIfEmpty removes an empty entry from the topic map.  The caller holds
// the entry lock.
func (b *Broker) deleteIfEmpty(topic wamp.URI, entry *topicEntry) {
	if len(entry.subs) == 0 && !entry.removed {
		entry.removed = true
		b.topics.CompareAndDelete(topic, entry)
	}
}

// Subscribe adds sess to the subscribers of topic.  Subscribing more than
// once has no additional effect.  A closing session is not subscribed.
func (b *Broker) Subscribe(sess *Session, topic wamp.URI) {
	entry := b.lockTopic(topic)
	defer entry.mu.Unlock()
	if sess.trackTopic(topic) {
		entry.subs[sess] = struct{}{}
		if b.debug {
			b.log.Printf("Subscribed session %s to %s", sess, topic)
		}
	}
	b.deleteIfEmpty(topic, entry)
}

// Unsubscribe removes sess from the subscribers of topic, if present.
func (b *Broker) Unsubscribe(sess *Session, topic wamp.URI) {
	v, ok := b.topics.Load(topic)
	if !ok {
		sess.untrackTopic(topic)
		return
	}
	entry := v.(*topicEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	delete(entry.subs, sess)
	sess.untrackTopic(topic)
	b.deleteIfEmpty(topic, entry)
	if b.debug {
		b.log.Printf("Unsubscribed session %s from %s", sess, topic)
	}
}

// removeSession removes sess from each of the given topics.
func (b *Broker) removeSession(sess *Session, topics []wamp.URI) {
	for _, topic := range topics {
		v, ok := b.topics.Load(topic)
		if !ok {
			continue
		}
		entry := v.(*topicEntry)
		entry.mu.Lock()
		delete(entry.subs, sess)
		b.deleteIfEmpty(topic, entry)
		entry.mu.Unlock()
	}
}

// Publish sends an EVENT carrying payload to every active subscriber of topic
// and returns the number of events delivered.  Publishing to a topic with no
// subscribers is not an error.
//
// This is the entrypoint for events raised by the application rather than by
// a session.
func (b *Broker) Publish(topic wamp.URI, payload interface{}) int {
	return b.publish(topic, payload, nil)
}

// publishMsg handles a PUBLISH message from pub.
func (b *Broker) publishMsg(pub *Session, msg *wamp.Publish) int {
	topic := pub.resolve(msg.TopicURI)
	return b.publish(topic, msg.Event, b.filterFactory(pub, msg))
}

func (b *Broker) publish(topic wamp.URI, payload interface{}, filter PublishFilter) int {
	v, ok := b.topics.Load(topic)
	if !ok {
		return 0
	}
	entry := v.(*topicEntry)

	// All subscribers receive the same encoded event.
	event := wamp.Encode(&wamp.Event{TopicURI: topic, Event: payload})

	var sent int
	entry.mu.Lock()
	for sub := range entry.subs {
		if filter != nil && !filter.Allowed(sub) {
			continue
		}
		// Sessions that are not active are skipped.
		if err := sub.sendList(event); err != nil {
			if err != ErrSessionClosed {
				b.log.Printf("!!! Dropped EVENT %s to session %s: %s", topic, sub, err)
			}
			continue
		}
		sent++
	}
	entry.mu.Unlock()

	b.metrics.eventsDelivered(sent)
	if b.debug {
		b.log.Printf("Published %s to %d subscribers", topic, sent)
	}
	return sent
}

// Subscribers returns the number of sessions subscribed to topic.
func (b *Broker) Subscribers(topic wamp.URI) int {
	v, ok := b.topics.Load(topic)
	if !ok {
		return 0
	}
	entry := v.(*topicEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.subs)
}
