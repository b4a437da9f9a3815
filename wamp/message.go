/*
Package wamp defines the message types, data types, and reserved URI values
of the WAMP version 1 protocol, and the conversion of messages to and from
their wire form.

*/
package wamp

type MessageType int

// Message is a generic container for a WAMP message.
type Message interface {
	MessageType() MessageType
}

// List represents a list of items in a WAMP message.  The wire form of every
// message is a List whose first element is the message type code.
type List []interface{}

// Dict is a dictionary that maps keys to objects in a WAMP message payload.
type Dict map[string]interface{}

const (
	// ProtocolVersion is the WAMP protocol version announced in WELCOME.
	ProtocolVersion = 1

	// ServerIdent is the default server identity announced in WELCOME.
	ServerIdent = "wampv1/1.0"
)

// Message Codes and Direction
const (
	//                             | Server | Client |
	//                             | ------ | ------ |
	WELCOME     MessageType = 0 // | Tx     | Rx     |
	PREFIX      MessageType = 1 // | Rx     | Tx     |
	CALL        MessageType = 2 // | Rx     | Tx     |
	CALLRESULT  MessageType = 3 // | Tx     | Rx     |
	CALLERROR   MessageType = 4 // | Tx     | Rx     |
	SUBSCRIBE   MessageType = 5 // | Rx     | Tx     |
	UNSUBSCRIBE MessageType = 6 // | Rx     | Tx     |
	PUBLISH     MessageType = 7 // | Rx     | Tx     |
	EVENT       MessageType = 8 // | Tx     | Rx     |
)

var mtStrings = map[MessageType]string{
	WELCOME:     "WELCOME",
	PREFIX:      "PREFIX",
	CALL:        "CALL",
	CALLRESULT:  "CALLRESULT",
	CALLERROR:   "CALLERROR",
	SUBSCRIBE:   "SUBSCRIBE",
	UNSUBSCRIBE: "UNSUBSCRIBE",
	PUBLISH:     "PUBLISH",
	EVENT:       "EVENT",
}

// String returns the message type string.
func (mt MessageType) String() string { return mtStrings[mt] }

// NewMessage returns an empty message of the type specified.
func NewMessage(t MessageType) Message {
	switch t {
	case WELCOME:
		return &Welcome{}
	case PREFIX:
		return &Prefix{}
	case CALL:
		return &Call{}
	case CALLRESULT:
		return &CallResult{}
	case CALLERROR:
		return &CallError{}
	case SUBSCRIBE:
		return &Subscribe{}
	case UNSUBSCRIBE:
		return &Unsubscribe{}
	case PUBLISH:
		return &Publish{}
	case EVENT:
		return &Event{}
	}
	return nil
}

// ----- Session Lifecycle -----

// Sent by the server to a client immediately after the connection has been
// accepted.  The session ID is valid from this point on.
//
// [WELCOME, sessionId|string, protocolVersion|integer, serverIdent|string]
type Welcome struct {
	SessionID       string
	ProtocolVersion int
	ServerIdent     string
}

func (msg *Welcome) MessageType() MessageType { return WELCOME }

// Sent by a client to establish a CURIE prefix that is valid for the rest of
// the session.
//
// [PREFIX, prefix|string, URI|string]
type Prefix struct {
	Prefix string
	URI    URI
}

func (msg *Prefix) MessageType() MessageType { return PREFIX }

// ----- Remote Procedure Calls -----

// Sent by a client to call a procedure.  The call ID is chosen by the client
// and is echoed in the CALLRESULT or CALLERROR answering the call.
//
// [CALL, callID|string, procURI|uri|curie, arg|any, arg|any, ...]
//
// A call without arguments has nil Arguments.  An empty non-nil list has the
// same wire form and decodes as nil.
type Call struct {
	CallID    string
	ProcURI   URI
	Arguments List `wamp:"rest"`
}

func (msg *Call) MessageType() MessageType { return CALL }

// Sent by the server when a call completed successfully.
//
// [CALLRESULT, CALL.callID|string, result|any]
type CallResult struct {
	CallID string
	Result interface{}
}

func (msg *CallResult) MessageType() MessageType { return CALLRESULT }

// Sent by the server when a call could not be routed, or the called
// procedure failed.
//
// [CALLERROR, CALL.callID|string, errorURI|uri, errorDesc|string]
// [CALLERROR, CALL.callID|string, errorURI|uri, errorDesc|string,
//     errorDetails|any]
type CallError struct {
	CallID       string
	ErrorURI     URI
	ErrorDesc    string
	ErrorDetails interface{} `wamp:"omitempty"`
}

func (msg *CallError) MessageType() MessageType { return CALLERROR }

// ----- Publish & Subscribe -----

// Sent by a client to subscribe to a topic.
//
// [SUBSCRIBE, topicURI|uri|curie]
type Subscribe struct {
	TopicURI URI
}

func (msg *Subscribe) MessageType() MessageType { return SUBSCRIBE }

// Sent by a client to unsubscribe from a topic.
//
// [UNSUBSCRIBE, topicURI|uri|curie]
type Unsubscribe struct {
	TopicURI URI
}

func (msg *Unsubscribe) MessageType() MessageType { return UNSUBSCRIBE }

// Sent by a client to publish an event to a topic.
//
// Exclude is either a boolean (excludeMe) or a list of session IDs that must
// not receive the event.  Eligible, when present, is the list of session IDs
// that may receive the event.
//
// [PUBLISH, topicURI|uri|curie, event|any]
// [PUBLISH, topicURI|uri|curie, event|any, excludeMe|bool]
// [PUBLISH, topicURI|uri|curie, event|any, exclude|list, eligible|list]
type Publish struct {
	TopicURI URI
	Event    interface{}
	Exclude  interface{} `wamp:"omitempty"`
	Eligible List        `wamp:"omitempty"`
}

func (msg *Publish) MessageType() MessageType { return PUBLISH }

// ExcludeMe returns true if the publisher asked to be excluded from receiving
// its own event.
func (msg *Publish) ExcludeMe() bool {
	b, _ := AsBool(msg.Exclude)
	return b
}

// ExcludeList returns the session IDs the event must not be sent to.
func (msg *Publish) ExcludeList() []string {
	if _, isBool := msg.Exclude.(bool); isBool || msg.Exclude == nil {
		return nil
	}
	list, _ := AsList(msg.Exclude)
	ids, _ := ListToStrings(list)
	return ids
}

// EligibleList returns the session IDs the event may be sent to, or nil if
// there is no restriction.
func (msg *Publish) EligibleList() []string {
	if msg.Eligible == nil {
		return nil
	}
	ids, _ := ListToStrings(msg.Eligible)
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// Sent by the server to every subscriber of a topic an event was published to.
//
// [EVENT, topicURI|uri, event|any]
type Event struct {
	TopicURI URI
	Event    interface{}
}

func (msg *Event) MessageType() MessageType { return EVENT }

// IsClientMessage returns true if the message type is one a client may send
// to the server.
func IsClientMessage(mt MessageType) bool {
	switch mt {
	case PREFIX, CALL, SUBSCRIBE, UNSUBSCRIBE, PUBLISH:
		return true
	}
	return false
}
