// Package resilience provides bounded retries with exponential backoff and a
// circuit breaker for calls to external collaborators.
package resilience
