package router

import (
	"errors"
	"fmt"

	"github.com/gammazero/wampv1/wamp"
)

var (
	// ErrDuplicateURI is wrapped by the RegistryError returned when
	// registering a URI that already has a service.
	ErrDuplicateURI = errors.New("service already registered")

	// ErrUnknownService is wrapped by the RegistryError returned when
	// unregistering a handle that is not currently registered.
	ErrUnknownService = errors.New("service not registered")

	// ErrSessionClosed is returned when sending to a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// RegistryError reports a registration conflict or the unregistration of an
// unknown service.  It is not fatal to the caller.
type RegistryError struct {
	URI wamp.URI
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry error for %q: %v", e.URI, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

type configError struct {
	Err error
}

func (e configError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e configError) Unwrap() error {
	return e.Err
}
