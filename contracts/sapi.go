// Package contracts holds the capability contracts that plugin types are
// discovered against: HTTP adaptation, exception handling and validation
// rules. Each contract exists twice: as a Go interface for Go callers, and
// as a builtin capability registered in every type registry so that plugin
// units can declare they implement it.
package contracts

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// SAPI adapts a server API to the application: it exposes the incoming
// request and emits the response.
type SAPI interface {
	// Server returns the server and execution environment parameters.
	Server() map[string]string
	// RequestBody returns the raw request body as a stream.
	RequestBody() io.Reader
	// ParsedBody returns the decoded body, or nil if it was not decoded.
	ParsedBody() any
	QueryParams() url.Values
	Cookies() []*http.Cookie
	Files() map[string][]*multipart.FileHeader
	Headers() http.Header
	URI() *url.URL
	Method() string
	// HandleResponse emits resp to the client.
	HandleResponse(resp *http.Response) error
}
