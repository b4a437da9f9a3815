package serialize

import (
	"github.com/gammazero/wampv1/wamp"
	"github.com/ugorji/go/codec"
)

// MessagePackSerializer is an implementation of Serializer that handles
// serializing and deserializing msgpack encoded payloads.
type MessagePackSerializer struct{}

func msgpackHandle() *codec.MsgpackHandle {
	mph := &codec.MsgpackHandle{}
	mph.RawToString = true
	mph.MapType = mapType
	mph.WriteExt = true
	return mph
}

// Serialize encodes a wire list into a msgpack payload.
func (s *MessagePackSerializer) Serialize(list wamp.List) ([]byte, error) {
	return encodeList(msgpackHandle(), list)
}

// Deserialize decodes a msgpack payload into a wire list.
func (s *MessagePackSerializer) Deserialize(data []byte) (wamp.List, error) {
	return decodeList(msgpackHandle(), data)
}
