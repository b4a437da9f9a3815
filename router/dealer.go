package router

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/wamp"
)

// dealer routes CALL messages to the procedures of the service registry and
// answers each call with exactly one CALLRESULT or CALLERROR.
//
// Calls are dispatched on the calling session's own goroutine, so a slow
// procedure delays only its caller.
type dealer struct {
	registry *Registry
	metrics  *Metrics

	log   stdlog.StdLog
	debug bool
}

func newDealer(registry *Registry, metrics *Metrics, logger stdlog.StdLog, debug bool) *dealer {
	return &dealer{
		registry: registry,
		metrics:  metrics,
		log:      logger,
		debug:    debug,
	}
}

// call handles a CALL message from caller.  If the caller closed while the
// procedure ran, the reply is discarded.
func (d *dealer) call(caller *Session, msg *wamp.Call) {
	reply := d.dispatch(caller.Context(), caller.resolve(msg.ProcURI), msg)
	if err := caller.Send(reply); err != nil {
		if d.debug || err != ErrSessionClosed {
			d.log.Printf("!!! Dropped %s for call %q to session %s: %s",
				reply.MessageType(), msg.CallID, caller, err)
		}
	}
}

// dispatch resolves and invokes the called procedure, returning the reply
// message for the call.
func (d *dealer) dispatch(ctx context.Context, procURI wamp.URI, msg *wamp.Call) wamp.Message {
	svcURI, op, ok := procURI.SplitProcedure()
	var proc Procedure
	if ok {
		proc, ok = d.registry.Lookup(svcURI, op)
	}
	if !ok {
		d.metrics.callOutcome(outcomeNoSuchProcedure)
		return &wamp.CallError{
			CallID:    msg.CallID,
			ErrorURI:  wamp.ErrNoSuchProcedure,
			ErrorDesc: fmt.Sprintf("no such procedure: %s", procURI),
		}
	}

	result, err := d.invoke(ctx, proc, msg.Arguments)
	if err != nil {
		if d.debug {
			d.log.Printf("Call %q to %s failed: %s", msg.CallID, procURI, err)
		}
		d.metrics.callOutcome(outcomeCallFailed)
		return &wamp.CallError{
			CallID:    msg.CallID,
			ErrorURI:  wamp.ErrCallFailed,
			ErrorDesc: err.Error(),
		}
	}
	d.metrics.callOutcome(outcomeResult)
	return &wamp.CallResult{
		CallID: msg.CallID,
		Result: result,
	}
}

// invoke runs a procedure, converting a panic into an error.
func (d *dealer) invoke(ctx context.Context, proc Procedure, args wamp.List) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Printf("procedure panic: %v\n%s", r, debug.Stack())
			result = nil
			err = fmt.Errorf("procedure panic: %v", r)
		}
	}()
	return proc(ctx, args)
}
