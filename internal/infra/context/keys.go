// Package context carries request scoped values between middleware, services and logging.
package context

type contextKey string
