// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the orchestrator, translating HTTP concerns to task submissions and
// translating failure kinds back into status codes.
package api
