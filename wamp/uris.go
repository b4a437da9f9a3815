package wamp

// Error kinds carried in the errorURI position of a CALLERROR message.
const (
	// No service is registered under the called URI, or the service does not
	// export the called procedure.
	ErrNoSuchProcedure = URI("NoSuchProcedure")

	// The called procedure was found but raised a failure, or the call
	// arguments did not match the procedure signature.
	ErrCallFailed = URI("CallFailed")

	// A message could not be decoded.  The session that sent it is closed.
	ErrMalformed = URI("MalformedMessage")
)
