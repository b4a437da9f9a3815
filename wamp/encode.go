package wamp

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ErrMalformedMessage is wrapped by every error returned from Decode.
var ErrMalformedMessage = errors.New("malformed message")

func malformed(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, v...))
}

// Encode converts a message to its wire form: a list whose first element is
// the message type code followed by the message fields in declaration order.
// Trailing "omitempty" fields that are empty are not appended, and the
// elements of a "rest" field are appended individually.
func Encode(msg Message) List {
	val := reflect.ValueOf(msg)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	// Skip all empty fields at the end of the message structure by iterating
	// backwards until a non-empty or non-"omitempty" field is found.
	last := typ.NumField() - 1
	for ; last >= 0; last-- {
		if !hasTag(typ.Field(last), "omitempty") || !isEmpty(val.Field(last)) {
			break
		}
	}

	ret := make(List, 1, last+2)
	ret[0] = int(msg.MessageType())
	for i := 0; i <= last; i++ {
		f := val.Field(i)
		if hasTag(typ.Field(i), "rest") {
			for j := 0; j < f.Len(); j++ {
				ret = append(ret, f.Index(j).Interface())
			}
			continue
		}
		ret = append(ret, f.Interface())
	}
	return ret
}

// Decode converts a wire-form list into the message it represents.  The
// error wraps ErrMalformedMessage if the list is empty, does not start with a
// known message type code, or its elements do not match the layout of that
// message type.
func Decode(list List) (Message, error) {
	if len(list) == 0 {
		return nil, malformed("empty message")
	}
	code, ok := asCode(list[0])
	if !ok {
		return nil, malformed("message type code is not an integer: %v", list[0])
	}
	msgType := MessageType(code)
	msg := NewMessage(msgType)
	if msg == nil {
		return nil, malformed("unknown message type code %d", code)
	}

	val := reflect.ValueOf(msg).Elem()
	typ := val.Type()
	pos := 1
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		f := val.Field(i)
		if hasTag(sf, "rest") {
			if pos < len(list) {
				rest := make(List, len(list)-pos)
				copy(rest, list[pos:])
				f.Set(reflect.ValueOf(rest))
			}
			pos = len(list)
			break
		}
		if pos >= len(list) {
			if hasTag(sf, "omitempty") {
				continue
			}
			return nil, malformed("%s missing %s at position %d", msgType,
				sf.Name, pos)
		}
		if err := assignField(f, list[pos]); err != nil {
			return nil, malformed("%s field %s at position %d: %s", msgType,
				sf.Name, pos, err)
		}
		pos++
	}
	if pos < len(list) {
		return nil, malformed("%s has %d elements, expected at most %d",
			msgType, len(list), pos)
	}
	if v, ok := msg.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, malformed("%s %s", msgType, err)
		}
	}
	return msg, nil
}

// validator is implemented by messages with fields whose type a struct field
// cannot express.
type validator interface {
	validate() error
}

// Exclude is either excludeMe or a list of session IDs.
func (msg *Publish) validate() error {
	switch msg.Exclude.(type) {
	case nil, bool:
		return nil
	case []byte:
		return errors.New("exclude has binary data, want bool or list")
	}
	if _, ok := AsList(msg.Exclude); !ok {
		return fmt.Errorf("exclude has %T, want bool or list", msg.Exclude)
	}
	return nil
}

// assignField stores a wire value into a message field, converting it to the
// field type.
func assignField(f reflect.Value, v interface{}) error {
	switch f.Kind() {
	case reflect.Interface:
		if v != nil {
			f.Set(reflect.ValueOf(v))
		}
		return nil
	case reflect.String:
		s, ok := AsString(v)
		if !ok {
			return fmt.Errorf("has %T, want string", v)
		}
		f.SetString(s)
		return nil
	case reflect.Int, reflect.Int64, reflect.Int32:
		n, ok := asCode(v)
		if !ok {
			return fmt.Errorf("has %T, want integer", v)
		}
		f.SetInt(n)
		return nil
	case reflect.Slice:
		if v == nil {
			return nil
		}
		if _, isBytes := v.([]byte); isBytes {
			return errors.New("has binary data, want list")
		}
		list, ok := AsList(v)
		if !ok {
			return fmt.Errorf("has %T, want list", v)
		}
		if list == nil {
			list = List{}
		}
		f.Set(reflect.ValueOf(list))
		return nil
	}
	// Should never happen since this means that our own message type has a
	// field type that is not handled.  This is a programming error, so panic.
	panic(fmt.Sprintf("internal message field kind %s not recognized", f.Kind()))
}

// asCode converts an integral number to int64.  Decoders produce float64 for
// JSON numbers, so a float is accepted if it has no fractional part.
func asCode(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
	case float32:
		if float64(n) != math.Trunc(float64(n)) {
			return 0, false
		}
	}
	return AsInt64(v)
}

func hasTag(sf reflect.StructField, opt string) bool {
	return strings.Contains(sf.Tag.Get("wamp"), opt)
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Slice, reflect.Map, reflect.Ptr:
		return v.IsNil()
	}
	return v.IsZero()
}
