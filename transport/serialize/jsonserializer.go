package serialize

import (
	"encoding/base64"
	"errors"

	"github.com/gammazero/wampv1/wamp"
	"github.com/ugorji/go/codec"
)

// JSONSerializer is an implementation of Serializer that handles
// serializing and deserializing json encoded payloads.
type JSONSerializer struct{}

func jsonHandle() *codec.JsonHandle {
	jsh := &codec.JsonHandle{}
	jsh.MapType = mapType
	return jsh
}

// Serialize encodes a wire list into a json payload.
func (s *JSONSerializer) Serialize(list wamp.List) ([]byte, error) {
	return encodeList(jsonHandle(), list)
}

// Deserialize decodes a json payload into a wire list.
func (s *JSONSerializer) Deserialize(data []byte) (wamp.List, error) {
	return decodeList(jsonHandle(), data)
}

// Binary data follows a convention for conversion to JSON strings.
//
// A byte array is converted to a JSON string as follows:
//
// 1. convert the byte array to a Base64 encoded (host language) string
// 2. prepend the string with a \0 character
// 3. serialize the string to a JSON string
type BinaryData []byte

func (b BinaryData) MarshalJSON() ([]byte, error) {
	s := base64.StdEncoding.EncodeToString([]byte(b))
	var out []byte
	return out, codec.NewEncoderBytes(&out, jsonHandle()).Encode("\x00" + s)
}

func (b *BinaryData) UnmarshalJSON(v []byte) error {
	var s string
	err := codec.NewDecoderBytes(v, jsonHandle()).Decode(&s)
	if err != nil {
		return err
	}
	if len(s) == 0 || s[0] != '\x00' {
		return errors.New("binary string does not start with NUL")
	}
	*b, err = base64.StdEncoding.DecodeString(s[1:])
	return err
}
