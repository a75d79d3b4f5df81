// Package httpapi exposes the auth engine and the catalog store over
// HTTP. Routes use the method-qualified ServeMux patterns; guarded
// routes require a bearer access token and attach the verified claims
// to the request context.
package httpapi
