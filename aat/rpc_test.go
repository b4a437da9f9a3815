package aat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gammazero/wampv1/client"
	"github.com/gammazero/wampv1/router"
	"github.com/gammazero/wampv1/wamp"
	"github.com/stretchr/testify/require"
)

type calc struct{}

func (calc) Add(a, b int) int { return a + b }

func (calc) Sum(numbers ...int) int {
	var total int
	for _, n := range numbers {
		total += n
	}
	return total
}

func (calc) Echo(s string) string { return s }

func (calc) Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errors.New("divide by zero")
	}
	return a / b, nil
}

func (calc) Sleep(ctx context.Context, ms int) error {
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
	}
	return nil
}

func registerCalc(t *testing.T, uri wamp.URI) {
	handle, err := engine.Register(uri, calc{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, engine.Unregister(handle))
	})
}

func requireInt(t *testing.T, want int64, res interface{}) {
	n, ok := wamp.AsInt64(res)
	require.True(t, ok, "result %v (%T) is not an integer", res, res)
	require.Equal(t, want, n)
}

func TestRPCRegisterAndCall(t *testing.T) {
	checkGoLeaks(t)
	registerCalc(t, "/calc")
	caller := connectClient(t)
	ctx := context.Background()

	res, err := caller.Call(ctx, "/calc#add", 2, 3)
	require.NoError(t, err)
	requireInt(t, 5, res)

	res, err = caller.Call(ctx, "/calc/sum", 1, 2, 3)
	require.NoError(t, err)
	requireInt(t, 6, res)

	res, err = caller.Call(ctx, "/calc#echo", "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", res)

	// Calls keep working once the transport is warmed.
	for i := 0; i < 10; i++ {
		res, err = caller.Call(ctx, "/calc#add", i, i)
		require.NoError(t, err)
		requireInt(t, int64(2*i), res)
	}
}

func TestRPCErrors(t *testing.T) {
	checkGoLeaks(t)
	registerCalc(t, "/errcalc")
	caller := connectClient(t)
	ctx := context.Background()

	var rpcErr client.RPCError

	_, err := caller.Call(ctx, "/errcalc#divide", 1, 0)
	require.True(t, errors.As(err, &rpcErr), "expected RPCError, got %v", err)
	require.Equal(t, wamp.ErrCallFailed, rpcErr.Err.ErrorURI)
	require.Contains(t, rpcErr.Err.ErrorDesc, "divide by zero")

	_, err = caller.Call(ctx, "/errcalc#add", "two", 3)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, wamp.ErrCallFailed, rpcErr.Err.ErrorURI)

	_, err = caller.Call(ctx, "/errcalc#multiply", 2, 3)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, wamp.ErrNoSuchProcedure, rpcErr.Err.ErrorURI)

	_, err = caller.Call(ctx, "/nothing#add", 2, 3)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, wamp.ErrNoSuchProcedure, rpcErr.Err.ErrorURI)

	// The session survives failed calls.
	res, err := caller.Call(ctx, "/errcalc#add", 2, 3)
	require.NoError(t, err)
	requireInt(t, 5, res)
}

func TestRPCUnregister(t *testing.T) {
	checkGoLeaks(t)
	handle, err := engine.Register("/tmpcalc", calc{})
	require.NoError(t, err)
	caller := connectClient(t)
	ctx := context.Background()

	_, err = engine.Register("/tmpcalc", calc{})
	require.ErrorIs(t, err, router.ErrDuplicateURI)

	res, err := caller.Call(ctx, "/tmpcalc#add", 1, 1)
	require.NoError(t, err)
	requireInt(t, 2, res)

	require.NoError(t, engine.Unregister(handle))
	require.ErrorIs(t, engine.Unregister(handle), router.ErrUnknownService)

	var rpcErr client.RPCError
	_, err = caller.Call(ctx, "/tmpcalc#add", 1, 1)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, wamp.ErrNoSuchProcedure, rpcErr.Err.ErrorURI)
}

func TestRPCPrefix(t *testing.T) {
	checkGoLeaks(t)
	registerCalc(t, "http://example.com/simple/calc")
	caller := connectClient(t)
	ctx := context.Background()

	require.NoError(t, caller.Prefix("calc", "http://example.com/simple/calc#"))
	res, err := caller.Call(ctx, "calc:add", 20, 22)
	require.NoError(t, err)
	requireInt(t, 42, res)

	// Prefixes are per session.
	other := connectClient(t)
	var rpcErr client.RPCError
	_, err = other.Call(ctx, "calc:add", 1, 2)
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, wamp.ErrNoSuchProcedure, rpcErr.Err.ErrorURI)
}

func TestRPCTimeout(t *testing.T) {
	checkGoLeaks(t)
	registerCalc(t, "/slowcalc")
	caller := connectClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := caller.Call(ctx, "/slowcalc#sleep", 500)
	require.ErrorIs(t, err, client.ErrReplyTimeout)

	res, err := caller.Call(context.Background(), "/slowcalc#add", 1, 2)
	require.NoError(t, err)
	requireInt(t, 3, res)
}

func TestRPCConcurrentCallers(t *testing.T) {
	checkGoLeaks(t)
	registerCalc(t, "/sharedcalc")

	const callers = 8
	const calls = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers*calls)
	for i := 0; i < callers; i++ {
		caller := connectClient(t)
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				res, err := caller.Call(context.Background(), "/sharedcalc#add", n, j)
				if err != nil {
					errs <- err
					continue
				}
				if v, _ := wamp.AsInt64(res); v != int64(n+j) {
					errs <- fmt.Errorf("caller %d: got %v, want %d", n, res, n+j)
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
