package router

import (
	"sort"
	"sync"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/wamp"
)

// ExportedService is a service registered under a URI.  The value returned by
// Registry.Register is the handle used to unregister it.
type ExportedService struct {
	uri        wamp.URI
	obj        interface{}
	procedures map[string]Procedure
}

// URI returns the URI the service is registered under.
func (s *ExportedService) URI() wamp.URI { return s.uri }

// Object returns the registered service object.
func (s *ExportedService) Object() interface{} { return s.obj }

// ProcedureNames returns the sorted names of the service's procedures.
func (s *ExportedService) ProcedureNames() []string {
	names := make([]string, 0, len(s.procedures))
	for name := range s.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry maps service URIs to exported services.  It is safe for
// concurrent use.  A service is fully built before it is published, so a
// lookup never observes a partially registered service.
type Registry struct {
	// service URI -> *ExportedService
	services sync.Map

	log   stdlog.StdLog
	debug bool
}

// NewRegistry creates an empty service registry.
func NewRegistry(logger stdlog.StdLog, debug bool) *Registry {
	return &Registry{
		log:   logger,
		debug: debug,
	}
}

// Register exports obj under uri.  It returns a *RegistryError wrapping
// ErrDuplicateURI if uri is already registered, in which case the existing
// registration is unaffected.
func (r *Registry) Register(uri wamp.URI, obj interface{}) (*ExportedService, error) {
	procs, err := procedureTable(obj)
	if err != nil {
		return nil, &RegistryError{URI: uri, Err: err}
	}
	svc := &ExportedService{
		uri:        uri,
		obj:        obj,
		procedures: procs,
	}
	if _, loaded := r.services.LoadOrStore(uri, svc); loaded {
		return nil, &RegistryError{URI: uri, Err: ErrDuplicateURI}
	}
	if r.debug {
		r.log.Printf("Registered service %s: %v", uri, svc.ProcedureNames())
	}
	return svc, nil
}

// Unregister removes the service identified by handle.  It returns a
// *RegistryError wrapping ErrUnknownService if handle is not the service
// currently registered under its URI.
func (r *Registry) Unregister(handle *ExportedService) error {
	if handle == nil {
		return &RegistryError{Err: ErrUnknownService}
	}
	if !r.services.CompareAndDelete(handle.uri, handle) {
		return &RegistryError{URI: handle.uri, Err: ErrUnknownService}
	}
	if r.debug {
		r.log.Println("Unregistered service", handle.uri)
	}
	return nil
}

// Lookup returns the procedure named op of the service registered under uri.
func (r *Registry) Lookup(uri wamp.URI, op string) (Procedure, bool) {
	v, ok := r.services.Load(uri)
	if !ok {
		return nil, false
	}
	proc, ok := v.(*ExportedService).procedures[op]
	return proc, ok
}

// Services returns the sorted URIs of all registered services.
func (r *Registry) Services() []wamp.URI {
	var uris []wamp.URI
	r.services.Range(func(k, _ interface{}) bool {
		uris = append(uris, k.(wamp.URI))
		return true
	})
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}
