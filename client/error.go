package client

import (
	"errors"
	"fmt"

	"github.com/gammazero/wampv1/wamp"
)

var (
	ErrAlreadyClosed = errors.New("already closed")
	ErrNotConn       = errors.New("not connected")
	ErrNotSubscribed = errors.New("not subscribed to topic")
	ErrReplyTimeout  = errors.New("timeout waiting for reply")
)

// RPCError is a wrapper for a CALLERROR message that is received as a result
// of a CALL.  This allows the client application to type assert the error to
// a RPCError and inspect the CALLERROR message contents.
type RPCError struct {
	Err       *wamp.CallError
	Procedure wamp.URI
}

// Error implements the error interface, returning an error string for the
// RPCError.
func (werr RPCError) Error() string {
	e := fmt.Sprintf("error calling remote procedure '%s': %v: %s", werr.Procedure,
		werr.Err.ErrorURI, werr.Err.ErrorDesc)
	if werr.Err.ErrorDetails != nil {
		e += fmt.Sprintf(": %v", werr.Err.ErrorDetails)
	}
	return e
}
