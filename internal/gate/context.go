package gate

import (
	"context"

	"eventgate/internal/principal"
)

type principalKey struct{}

// WithPrincipal attaches the admitted principal to the context for handlers
// behind the gate.
func WithPrincipal(ctx context.Context, p *principal.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the admitted principal, or nil outside the gate.
func PrincipalFromContext(ctx context.Context) *principal.Principal {
	if p, ok := ctx.Value(principalKey{}).(*principal.Principal); ok {
		return p
	}
	return nil
}
