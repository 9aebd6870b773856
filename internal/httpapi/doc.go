// Package httpapi exposes kioskgate over HTTP.
//
// # Surfaces
//
// Device endpoints under /api/v1/devices are unauthenticated: a device in
// provisioning has no credential yet. The admin surface under
// /api/v1/admin sits behind the admin predicate, and /api/v1/operator
// behind the operator predicate; see the auth package for what those
// check.
//
// # Errors
//
// Every error body is {"error": "..."}. Status codes follow one taxonomy:
// 401 for failed authentication (always the same opaque message), 403 for
// authorization and lifecycle denials, 409 for state conflicts such as a
// second credential fetch, 404 for missing records, 500 for everything
// else with the detail kept in the server log.
package httpapi
