// Package client is the REST transport of the LingoPost CLI.
//
// HTTPClient attaches the current bearer token to every authenticated call,
// bounds each call with a timeout, and turns non-2xx responses and transport
// failures into *APIError values that unwrap to the sentinels in package
// common. No request is retried.
package client
