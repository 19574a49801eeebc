// Package tenant carries the tenant context scope through context.Context.
package tenant

import (
	"context"
	"fmt"
)

type contextKey string

const tenantKey contextKey = "tenant"

// WithContext returns a new context carrying the tenant scope.
func WithContext(ctx context.Context, tenant string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantKey, tenant)
}

// FromContext retrieves the tenant scope from the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value := ctx.Value(tenantKey)
	if value == nil {
		return "", false
	}
	tenant, ok := value.(string)
	if !ok || tenant == "" {
		return "", false
	}
	return tenant, true
}

// EnforceScope ensures the provided tenant matches the scope carried by the
// context when one is present.
func EnforceScope(ctx context.Context, tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant is required")
	}
	scoped, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	if scoped != tenant {
		return fmt.Errorf("tenant %s does not match authenticated scope", tenant)
	}
	return nil
}
