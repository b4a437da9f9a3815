package wamp

import (
	"strings"

	"github.com/google/uuid"
)

// URIs identify procedures and topics.  In WAMP v1 they are usually HTTP
// URIs, such as "http://example.com/calc#add", or CURIEs, such as "calc:add",
// that are expanded using a prefix established by a PREFIX message.
type URI string

// NewSessionID returns a new random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// SplitCURIE splits a compact URI into its prefix and reference parts.  It
// returns false if the URI is not a CURIE, which is the case for any URI that
// contains "//" after the colon, such as "http://example.com/...".
func (u URI) SplitCURIE() (prefix, ref string, ok bool) {
	s := string(u)
	i := strings.Index(s, ":")
	if i <= 0 {
		return "", "", false
	}
	ref = s[i+1:]
	if strings.HasPrefix(ref, "//") {
		return "", "", false
	}
	return s[:i], ref, true
}

// SplitProcedure splits a procedure URI into the URI of the service that
// exports the procedure and the procedure name.  The name follows the last
// "#", or, if there is no "#", the last "/".  Returns false if the URI has
// neither or the name is empty.
func (u URI) SplitProcedure() (service URI, name string, ok bool) {
	s := string(u)
	i := strings.LastIndex(s, "#")
	if i < 0 {
		i = strings.LastIndex(s, "/")
	}
	if i < 0 || i == len(s)-1 {
		return "", "", false
	}
	return URI(s[:i]), s[i+1:], true
}
