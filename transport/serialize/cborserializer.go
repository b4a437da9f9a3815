package serialize

import (
	"github.com/gammazero/wampv1/wamp"
	"github.com/ugorji/go/codec"
)

// CBORSerializer is an implementation of Serializer that handles
// serializing and deserializing cbor encoded payloads.
type CBORSerializer struct{}

func cborHandle() *codec.CborHandle {
	cbh := &codec.CborHandle{}
	cbh.MapType = mapType
	return cbh
}

// Serialize encodes a wire list into a cbor payload.
func (s *CBORSerializer) Serialize(list wamp.List) ([]byte, error) {
	return encodeList(cborHandle(), list)
}

// Deserialize decodes a cbor payload into a wire list.
func (s *CBORSerializer) Deserialize(data []byte) (wamp.List, error) {
	return decodeList(cborHandle(), data)
}
