/*
Package serialize provides a Serializer interface with implementations that
encode and decode the wire form of WAMP messages in various ways.

*/
package serialize

import (
	"reflect"

	"github.com/gammazero/wampv1/wamp"
	"github.com/ugorji/go/codec"
)

const (
	// Use JSON-encoded strings as a payload.
	JSON Serialization = iota
	// Use msgpack-encoded strings as a payload.
	MSGPACK
	// Use CBOR encoding as a payload
	CBOR
)

// Serialization indicates the data serialization format used in a WAMP session
type Serialization int

// Serializer is the interface implemented by an object that can serialize and
// deserialize the wire form of WAMP messages.
type Serializer interface {
	Serialize(wamp.List) ([]byte, error)
	Deserialize([]byte) (wamp.List, error)
}

var mapType = reflect.TypeOf(map[string]interface{}(nil))

// encodeList encodes a wire list with the given codec handle.
func encodeList(h codec.Handle, list wamp.List) ([]byte, error) {
	var b []byte
	err := codec.NewEncoderBytes(&b, h).Encode([]interface{}(list))
	return b, err
}

// decodeList decodes a payload into a wire list with the given codec handle.
// The payload must hold a list, but message level validation, including the
// rejection of an empty list, is left to wamp.Decode.
func decodeList(h codec.Handle, data []byte) (wamp.List, error) {
	var v []interface{}
	if err := codec.NewDecoderBytes(data, h).Decode(&v); err != nil {
		return nil, err
	}
	return wamp.List(v), nil
}
