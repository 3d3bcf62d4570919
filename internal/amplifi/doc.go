// Package amplifi talks to the embedded web management interface of an
// AmpliFi mesh router.
//
// The login handshake (Client.Connect) fetches info.php, submits the password
// form when one is served, follows meta refreshes, and scrapes the session
// token out of the page's inline script (ExtractToken). Client.Fetch then
// POSTs do=full to info-async.php and decodes the six-entry JSON snapshot.
//
// Two Source implementations feed the poller: LiveSource, which owns one
// Client and the current Session, and FileSource, which replays a static
// snapshot file and never authenticates.
//
// Errors: ErrTokenNotFound / AuthError, TransportError, DecodeError and
// RequiredFieldMissing. Only DecodeError is treated as transient upstream.
package amplifi
