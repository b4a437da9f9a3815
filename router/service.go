package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/gammazero/wampv1/wamp"
	"github.com/ugorji/go/codec"
)

// Procedure is a callable operation of an exported service.  The context is
// cancelled when the calling session closes.
type Procedure func(ctx context.Context, args wamp.List) (interface{}, error)

// Service is implemented by objects that supply their own table of callable
// operations.  Objects that do not implement Service have their exported
// methods reflected into procedures when registered.
type Service interface {
	Procedures() map[string]Procedure
}

// ProcedureTable is a Service built from a map of named procedures.
type ProcedureTable map[string]Procedure

// Procedures returns the table itself.
func (t ProcedureTable) Procedures() map[string]Procedure { return t }

// ErrNoProcedures is wrapped by the RegistryError returned when registering
// an object that exposes no callable operations.
var ErrNoProcedures = errors.New("service has no procedures")

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()

	// Composite arguments are converted by re-encoding them as JSON.
	convHandle = &codec.JsonHandle{}
)

// procedureTable builds the operation table of obj.
func procedureTable(obj interface{}) (map[string]Procedure, error) {
	if obj == nil {
		return nil, ErrNoProcedures
	}
	if svc, ok := obj.(Service); ok {
		procs := svc.Procedures()
		if len(procs) == 0 {
			return nil, ErrNoProcedures
		}
		table := make(map[string]Procedure, len(procs))
		for name, proc := range procs {
			if proc == nil {
				return nil, fmt.Errorf("nil procedure %q", name)
			}
			table[name] = proc
		}
		return table, nil
	}

	v := reflect.ValueOf(obj)
	t := v.Type()
	table := map[string]Procedure{}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		proc, ok := methodProcedure(v.Method(i))
		if !ok {
			continue
		}
		table[procedureName(m.Name)] = proc
	}
	if len(table) == 0 {
		return nil, ErrNoProcedures
	}
	return table, nil
}

// procedureName lower-cases the first letter of a Go method name.
func procedureName(method string) string {
	r, n := utf8.DecodeRuneInString(method)
	return string(unicode.ToLower(r)) + method[n:]
}

// methodProcedure wraps a bound method as a Procedure.  Methods whose results
// cannot be mapped to a call result are not exported.
func methodProcedure(fn reflect.Value) (Procedure, bool) {
	ft := fn.Type()
	switch ft.NumOut() {
	case 0, 1:
	case 2:
		if ft.Out(1) != errType {
			return nil, false
		}
	default:
		return nil, false
	}

	var offset int
	if ft.NumIn() != 0 && ft.In(0) == ctxType {
		offset = 1
	}

	return func(ctx context.Context, args wamp.List) (interface{}, error) {
		in, err := callArgs(ft, offset, args)
		if err != nil {
			return nil, err
		}
		if offset == 1 {
			in[0] = reflect.ValueOf(ctx)
		}
		return callResult(ft, fn.Call(in))
	}, true
}

// callArgs converts wire arguments to the parameter types of ft.  The first
// offset parameters are left for the caller to fill.
func callArgs(ft reflect.Type, offset int, args wamp.List) ([]reflect.Value, error) {
	numIn := ft.NumIn()
	fixed := numIn - offset
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("wrong number of arguments: want at least %d, got %d",
				fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("wrong number of arguments: want %d, got %d",
			fixed, len(args))
	}

	in := make([]reflect.Value, offset+len(args))
	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = ft.In(offset + i)
		} else {
			pt = ft.In(numIn - 1).Elem()
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[offset+i] = v
	}
	return in, nil
}

func callResult(ft reflect.Type, out []reflect.Value) (interface{}, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errType {
			if err, _ := out[0].Interface().(error); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	}
	if err, _ := out[1].Interface().(error); err != nil {
		return nil, err
	}
	return out[0].Interface(), nil
}

// convertArg converts a decoded wire value to type t.
func convertArg(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := integral(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := integral(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, ok := wamp.AsFloat64(arg)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil
	case reflect.String:
		s, ok := wamp.AsString(arg)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Bool:
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Ptr:
		var b []byte
		if err := codec.NewEncoderBytes(&b, convHandle).Encode(arg); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s: %w", arg, t, err)
		}
		out := reflect.New(t)
		if err := codec.NewDecoderBytes(b, convHandle).Decode(out.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %T as %s: %w", arg, t, err)
		}
		return out.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

// integral returns the integer value of a numeric wire value.  Floats are
// accepted only if they have no fractional part.
func integral(v reflect.Value) (int64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	}
	n, ok := wamp.AsInt64(v.Interface())
	if !ok {
		return 0, fmt.Errorf("cannot use %s as integer", v.Type())
	}
	return n, nil
}
