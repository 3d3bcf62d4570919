package amplifi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTokenNotFound is returned by ExtractToken when no inline script carries
// a token='...' assignment.
var ErrTokenNotFound = errors.New("amplifi: session token not found")

// AuthError reports a login handshake that completed at the HTTP level but
// did not yield a usable session token.
type AuthError struct {
	URL string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("amplifi: authenticate %s: %v", e.URL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports a failed HTTP exchange with the router: connection
// errors, timeouts and non-2xx responses.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("amplifi: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a snapshot body that is not the expected JSON document.
// The router answers with an HTML page once the session expires, so this is
// the one error the poller recovers from.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("amplifi: decode snapshot: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SchemaError reports a well-formed snapshot whose consumed entries carry a
// value of an unexpected JSON type, typically after a firmware update. Unlike
// DecodeError it is not recovered: logging in again cannot fix it.
type SchemaError struct {
	Entry int    // position in the six-entry array
	Name  string // e.g. "wireless stats"
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("amplifi: snapshot entry %d (%s): unexpected schema: %v", e.Entry, e.Name, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// RequiredFieldMissing reports a consumed snapshot record that lacks one of
// its mandatory leaf fields.
type RequiredFieldMissing struct {
	Record string   // record kind, e.g. "wireless station"
	Path   []string // keys leading to the record inside the snapshot
	Field  string
}

func (e *RequiredFieldMissing) Error() string {
	return fmt.Sprintf("amplifi: %s %s: required field %q missing",
		e.Record, strings.Join(e.Path, "/"), e.Field)
}

// IsDecodeError reports whether err is, or wraps, a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
