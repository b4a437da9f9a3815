package router

import (
	"context"
	"errors"
	"testing"

	"github.com/gammazero/wampv1/wamp"
	"github.com/stretchr/testify/require"
)

type sampleService struct {
	lastCtx context.Context
}

func (s *sampleService) NoResult() {}
func (s *sampleService) OnlyError(fail bool) error { return failIf(fail) }
func (s *sampleService) Echo(v interface{}) interface{} { return v }
func (s *sampleService) Join(sep string, parts ...string) string {
	var out string
	for i, p := range parts {
		if i != 0 {
			out += sep
		}
		out += p
	}
	return out
}
func (s *sampleService) Ctx(ctx context.Context) bool { s.lastCtx = ctx; return ctx != nil }
func (s *sampleService) Unsigned(n uint8) uint8 { return n }
func (s *sampleService) Ratio(f float32) float32 { return f }
func (s *sampleService) Names(m map[string]int) int { return len(m) }
func (s *sampleService) List(l []int) int { return len(l) }
func (s *sampleService) Ptr(p *point) bool { return p == nil }
func (s *sampleService) URI(u wamp.URI) wamp.URI { return u }
func (s *sampleService) Flag(b bool) bool { return !b }

// Too many results to map to a call result.
func (s *sampleService) Triple() (int, int, error) { return 0, 0, nil }

// Second result is not an error.
func (s *sampleService) Pair() (int, int) { return 0, 0 }

func failIf(fail bool) error {
	if fail {
		return errors.New("failed")
	}
	return nil
}

func sampleProcs(t *testing.T) (*sampleService, map[string]Procedure) {
	svc := &sampleService{}
	procs, err := procedureTable(svc)
	require.NoError(t, err)
	return svc, procs
}

func call(t *testing.T, procs map[string]Procedure, name string, args ...interface{}) (interface{}, error) {
	proc, ok := procs[name]
	require.True(t, ok, "missing procedure %s", name)
	return proc(context.Background(), args)
}

func TestReflectedNames(t *testing.T) {
	_, procs := sampleProcs(t)
	for _, name := range []string{"noResult", "onlyError", "echo", "join", "ctx",
		"unsigned", "ratio", "names", "list", "ptr", "uRI", "flag"} {
		_, ok := procs[name]
		require.True(t, ok, "missing %s", name)
	}
	for _, name := range []string{"triple", "pair", "NoResult"} {
		_, ok := procs[name]
		require.False(t, ok, "unexpected %s", name)
	}
}

func TestReflectedResults(t *testing.T) {
	svc, procs := sampleProcs(t)

	out, err := call(t, procs, "noResult")
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = call(t, procs, "onlyError", false)
	require.NoError(t, err)
	require.Nil(t, out)
	_, err = call(t, procs, "onlyError", true)
	require.EqualError(t, err, "failed")

	out, err = call(t, procs, "ctx")
	require.NoError(t, err)
	require.Equal(t, true, out)
	require.NotNil(t, svc.lastCtx)
}

func TestArgumentConversion(t *testing.T) {
	_, procs := sampleProcs(t)

	out, err := call(t, procs, "echo", nil)
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = call(t, procs, "join", "-", "a", []byte("b"), wamp.URI("c"))
	require.NoError(t, err)
	require.Equal(t, "a-b-c", out)

	out, err = call(t, procs, "join", ",")
	require.NoError(t, err)
	require.Equal(t, "", out)

	out, err = call(t, procs, "unsigned", float64(200))
	require.NoError(t, err)
	require.Equal(t, uint8(200), out)

	out, err = call(t, procs, "ratio", 2)
	require.NoError(t, err)
	require.Equal(t, float32(2), out)

	out, err = call(t, procs, "names", wamp.Dict{"a": 1, "b": 2})
	require.NoError(t, err)
	require.Equal(t, 2, out)

	out, err = call(t, procs, "list", wamp.List{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, out)

	out, err = call(t, procs, "ptr", nil)
	require.NoError(t, err)
	require.Equal(t, true, out)

	out, err = call(t, procs, "uRI", "http://example.com")
	require.NoError(t, err)
	require.Equal(t, wamp.URI("http://example.com"), out)

	out, err = call(t, procs, "flag", true)
	require.NoError(t, err)
	require.Equal(t, false, out)
}

func TestArgumentErrors(t *testing.T) {
	_, procs := sampleProcs(t)

	bad := []struct {
		name string
		args []interface{}
	}{
		{"unsigned", []interface{}{-1}},
		{"unsigned", []interface{}{256}},
		{"unsigned", []interface{}{1.5}},
		{"unsigned", []interface{}{nil}},
		{"ratio", []interface{}{"x"}},
		{"flag", []interface{}{1}},
		{"uRI", []interface{}{42}},
		{"join", []interface{}{}},
		{"join", []interface{}{"-", 1}},
		{"noResult", []interface{}{1}},
	}
	for _, tc := range bad {
		_, err := call(t, procs, tc.name, tc.args...)
		require.Error(t, err, "%s%v", tc.name, tc.args)
	}
}

func TestProcedureName(t *testing.T) {
	require.Equal(t, "add", procedureName("Add"))
	require.Equal(t, "getServices", procedureName("GetServices"))
	require.Equal(t, "x", procedureName("X"))
}
