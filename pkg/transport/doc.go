// Package transport defines the caller-facing handler contract and
// cross-cutting middleware for the gemgate gateway. The HTTP/SSE binding
// lives in the http subpackage; this package is protocol-neutral so
// handlers and middleware can be tested without a network.
package transport
