package context

import (
	"context"

	"github.com/mkrupp/taskmanager/internal/domain"
)

const contextKeyPrincipal = contextKey("principal")

// PrincipalFromContext returns the verified token claims of the caller.
// Returns false for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (domain.Claims, bool) {
	claims, ok := ctx.Value(contextKeyPrincipal).(domain.Claims)

	return claims, ok
}

// WithPrincipal stores the verified claims of the caller in the context.
func WithPrincipal(ctx context.Context, claims domain.Claims) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, claims)
}
