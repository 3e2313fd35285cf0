// Package orderapi is the HTTP client for the remote order-management service.
//
// Three calls are exposed: CreateOrder for manual orders and the two sales
// reports. Every request carries the configured token in the Authorization
// header. Requests marked with X-Content-Encoding: gzip have their body
// compressed by the client transport before they leave the process.
//
// The client never retries; callers decide what a failed call means for the
// file that produced it.
package orderapi
