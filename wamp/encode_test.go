package wamp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeWireForm(t *testing.T) {
	welcome := &Welcome{
		SessionID:       "sess-1",
		ProtocolVersion: ProtocolVersion,
		ServerIdent:     ServerIdent,
	}
	require.Equal(t, List{0, "sess-1", 1, ServerIdent}, Encode(welcome))

	call := &Call{CallID: "c1", ProcURI: "/calc#add", Arguments: List{2, 3}}
	require.Equal(t, List{2, "c1", URI("/calc#add"), 2, 3}, Encode(call))

	call = &Call{CallID: "c1", ProcURI: "/calc#now"}
	require.Equal(t, List{2, "c1", URI("/calc#now")}, Encode(call))

	res := &CallResult{CallID: "c1", Result: 5}
	require.Equal(t, List{3, "c1", 5}, Encode(res))

	cerr := &CallError{CallID: "c2", ErrorURI: ErrNoSuchProcedure, ErrorDesc: "no"}
	require.Equal(t, List{4, "c2", ErrNoSuchProcedure, "no"}, Encode(cerr))
	cerr.ErrorDetails = "details"
	require.Equal(t, List{4, "c2", ErrNoSuchProcedure, "no", "details"}, Encode(cerr))

	pub := &Publish{TopicURI: "simple", Event: Dict{"message": "hello"}}
	require.Equal(t, 3, len(Encode(pub)))
	pub.Exclude = true
	require.Equal(t, List{7, URI("simple"), Dict{"message": "hello"}, true}, Encode(pub))
	pub.Exclude = nil
	pub.Eligible = List{"x"}
	require.Equal(t, List{7, URI("simple"), Dict{"message": "hello"}, nil, List{"x"}},
		Encode(pub))

	event := &Event{TopicURI: "simple", Event: Dict{"message": "hello"}}
	require.Equal(t, List{8, URI("simple"), Dict{"message": "hello"}}, Encode(event))
}

func TestRoundTrip(t *testing.T) {
	msgs := []Message{
		&Welcome{SessionID: "abc", ProtocolVersion: 1, ServerIdent: "srv"},
		&Prefix{Prefix: "calc", URI: "http://example.com/calc#"},
		&Call{CallID: "c1", ProcURI: "calc:add", Arguments: List{2, 3}},
		&Call{CallID: "c2", ProcURI: "/calc#now"},
		&Call{CallID: "c3", ProcURI: "/calc#echo", Arguments: List{nil, "x"}},
		&CallResult{CallID: "c1", Result: 5},
		&CallResult{CallID: "c1"},
		&CallError{CallID: "c2", ErrorURI: ErrCallFailed, ErrorDesc: "boom"},
		&CallError{CallID: "c2", ErrorURI: ErrCallFailed, ErrorDesc: "boom",
			ErrorDetails: Dict{"code": 7}},
		&Subscribe{TopicURI: "simple"},
		&Unsubscribe{TopicURI: "simple"},
		&Publish{TopicURI: "simple", Event: Dict{"message": "hello"}},
		&Publish{TopicURI: "simple", Event: "x", Exclude: true},
		&Publish{TopicURI: "simple", Event: "x", Exclude: List{"a"},
			Eligible: List{"b"}},
		&Publish{TopicURI: "simple", Event: "x", Exclude: List{},
			Eligible: List{}},
		&Event{TopicURI: "simple", Event: Dict{"message": "hello"}},
	}
	for _, msg := range msgs {
		out, err := Decode(Encode(msg))
		require.NoError(t, err, msg.MessageType().String())
		require.Equal(t, msg, out)
		require.Equal(t, msg.MessageType(), out.MessageType())
	}
}

func TestDecodeConvertsWireTypes(t *testing.T) {
	// JSON decoders produce float64 for numbers and []interface{} for arrays.
	msg, err := Decode(List{float64(2), "c1", "/calc#add", float64(2), float64(3)})
	require.NoError(t, err)
	call, ok := msg.(*Call)
	require.True(t, ok)
	require.Equal(t, "c1", call.CallID)
	require.Equal(t, URI("/calc#add"), call.ProcURI)
	require.Equal(t, List{float64(2), float64(3)}, call.Arguments)

	msg, err = Decode(List{uint64(0), []byte("sid"), int64(1), "srv"})
	require.NoError(t, err)
	require.Equal(t, &Welcome{SessionID: "sid", ProtocolVersion: 1, ServerIdent: "srv"}, msg)

	msg, err = Decode(List{7, "t", "e", []interface{}{"a"}, []interface{}{"b"}})
	require.NoError(t, err)
	pub := msg.(*Publish)
	require.Equal(t, []string{"a"}, pub.ExcludeList())
	require.Equal(t, []string{"b"}, pub.EligibleList())
}

func TestCallNilArgumentsCanonical(t *testing.T) {
	empty := &Call{CallID: "c1", ProcURI: "/calc#now", Arguments: List{}}
	none := &Call{CallID: "c1", ProcURI: "/calc#now"}
	require.Equal(t, Encode(none), Encode(empty))

	out, err := Decode(Encode(empty))
	require.NoError(t, err)
	require.Equal(t, none, out)
	require.Nil(t, out.(*Call).Arguments)
}

func TestDecodePublishExclude(t *testing.T) {
	msg, err := Decode(List{7, "t", "e", false})
	require.NoError(t, err)
	require.False(t, msg.(*Publish).ExcludeMe())

	msg, err = Decode(List{7, "t", "e", nil, List{"b"}})
	require.NoError(t, err)
	require.Nil(t, msg.(*Publish).ExcludeList())
	require.Equal(t, []string{"b"}, msg.(*Publish).EligibleList())

	msg, err = Decode(List{7, "t", "e", []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, msg.(*Publish).ExcludeList())

	_, err = Decode(List{7, "t", "e", "x"})
	require.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDecodeMalformed(t *testing.T) {
	bad := []List{
		nil,
		{},
		{99},
		{-1},
		{"2", "c1", "/calc#add"},
		{2.5, "c1", "/calc#add"},
		{true},
		{2, "c1"},
		{2, 17, "/calc#add"},
		{2, nil, "/calc#add"},
		{0, "sid", "one", "srv"},
		{0, "sid", 1},
		{0, "sid", 1, "srv", "extra"},
		{5},
		{5, "t", "extra"},
		{3, "c1"},
		{4, "c1", "uri"},
		{7, "t", "e", true, 42},
		{7, "t", "e", true, []interface{}{}, "extra"},
		{7, "t", "e", "x"},
		{7, "t", "e", 1},
		{7, "t", "e", Dict{"a": 1}},
		{7, "t", "e", []byte("x"), List{}},
		{8, 1, "e"},
	}
	for _, list := range bad {
		msg, err := Decode(list)
		require.Error(t, err, "expected error decoding %v", list)
		require.True(t, errors.Is(err, ErrMalformedMessage), err.Error())
		require.Nil(t, msg)
	}
}
