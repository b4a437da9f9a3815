package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gammazero/wampv1/wamp"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

func (g *greeter) Hello() string { return "hello from " + g.name }

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(logger, false)

	first, err := r.Register("/greet", &greeter{"first"})
	require.NoError(t, err)
	require.Equal(t, wamp.URI("/greet"), first.URI())
	require.Equal(t, []string{"hello"}, first.ProcedureNames())

	_, err = r.Register("/greet", &greeter{"second"})
	require.ErrorIs(t, err, ErrDuplicateURI)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	require.Equal(t, wamp.URI("/greet"), regErr.URI)

	// The first registration is unaffected.
	proc, ok := r.Lookup("/greet", "hello")
	require.True(t, ok)
	out, err := proc(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "hello from first", out)
	require.Equal(t, []wamp.URI{"/greet"}, r.Services())
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(logger, true)

	handle, err := r.Register("/calc", testCalc{})
	require.NoError(t, err)
	_, ok := r.Lookup("/calc", "add")
	require.True(t, ok)

	require.NoError(t, r.Unregister(handle))
	_, ok = r.Lookup("/calc", "add")
	require.False(t, ok)
	require.Empty(t, r.Services())

	// Already removed.
	err = r.Unregister(handle)
	require.ErrorIs(t, err, ErrUnknownService)

	// A stale handle does not remove a newer registration of the same URI.
	newHandle, err := r.Register("/calc", testCalc{})
	require.NoError(t, err)
	require.ErrorIs(t, r.Unregister(handle), ErrUnknownService)
	_, ok = r.Lookup("/calc", "add")
	require.True(t, ok)

	// Foreign handle.
	require.ErrorIs(t, r.Unregister(&ExportedService{uri: "/calc"}), ErrUnknownService)
	require.ErrorIs(t, r.Unregister(nil), ErrUnknownService)
	require.NoError(t, r.Unregister(newHandle))
}

func TestRegisterNoProcedures(t *testing.T) {
	r := NewRegistry(logger, false)
	for _, obj := range []interface{}{nil, struct{}{}, ProcedureTable{}} {
		_, err := r.Register("/empty", obj)
		require.ErrorIs(t, err, ErrNoProcedures)
	}
	_, err := r.Register("/nilproc", ProcedureTable{"x": nil})
	require.Error(t, err)
	require.Empty(t, r.Services())
}

func TestLookup(t *testing.T) {
	r := NewRegistry(logger, false)
	_, err := r.Register("/calc", testCalc{})
	require.NoError(t, err)

	_, ok := r.Lookup("/calc", "nope")
	require.False(t, ok)
	_, ok = r.Lookup("/other", "add")
	require.False(t, ok)
	// Go method names are not procedure names.
	_, ok = r.Lookup("/calc", "Add")
	require.False(t, ok)
}

func TestServices(t *testing.T) {
	r := NewRegistry(logger, false)
	for _, uri := range []wamp.URI{"/b", "/c", "/a"} {
		_, err := r.Register(uri, testCalc{})
		require.NoError(t, err)
	}
	require.Equal(t, []wamp.URI{"/a", "/b", "/c"}, r.Services())
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry(logger, false)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		uri := wamp.URI(fmt.Sprintf("/svc%d", i))
		go func() {
			defer wg.Done()
			if _, err := r.Register(uri, testCalc{}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			// A lookup sees either nothing or the complete service.
			if _, ok := r.Lookup(uri, "add"); ok {
				if _, ok = r.Lookup(uri, "sum"); !ok {
					errs <- errors.New("partially registered service")
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, r.Services(), n)

	// Exactly one of many registrations of the same URI wins.
	var wins int
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Register("/contended", testCalc{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
