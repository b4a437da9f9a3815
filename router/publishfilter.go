package router

import (
	"github.com/gammazero/wampv1/wamp"
)

// PublishFilter is an interface to check whether a publication should be sent
// to a specific session
type PublishFilter interface {
	Allowed(sess *Session) bool
}

// FilterFactory is a function which creates a PublishFilter from a
// publication and the session that published it.
type FilterFactory func(pub *Session, msg *wamp.Publish) PublishFilter

type simplePublishFilter struct {
	excluded map[string]struct{}
	// nil means every session is eligible.
	eligible map[string]struct{}
}

// NewSimplePublishFilter gets the exclude and eligible session lists
// included in a PUBLISH message.  If the PUBLISH message defines no filter,
// then nil is returned.
//
// The fourth element of PUBLISH is either a boolean excludeMe, which excludes
// the publisher, or a list of excluded session IDs.  A fifth element is a list
// of eligible session IDs.
func NewSimplePublishFilter(pub *Session, msg *wamp.Publish) PublishFilter {
	var excluded map[string]struct{}
	if msg.ExcludeMe() && pub != nil {
		excluded = map[string]struct{}{pub.ID: {}}
	}
	if ids := msg.ExcludeList(); len(ids) != 0 {
		if excluded == nil {
			excluded = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}

	var eligible map[string]struct{}
	if ids := msg.EligibleList(); ids != nil {
		eligible = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			eligible[id] = struct{}{}
		}
	}

	if excluded == nil && eligible == nil {
		return nil
	}
	return &simplePublishFilter{excluded, eligible}
}

// Allowed determines if a message is allowed to be published to a
// subscriber.  The subscriber must not be excluded and, if an eligible list
// was given, must be in it.
func (f *simplePublishFilter) Allowed(sub *Session) bool {
	if _, ok := f.excluded[sub.ID]; ok {
		return false
	}
	if f.eligible != nil {
		if _, ok := f.eligible[sub.ID]; !ok {
			return false
		}
	}
	return true
}
