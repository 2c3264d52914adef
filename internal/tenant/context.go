// Package tenant carries the per-request tenant identity.
package tenant

import (
	"context"
	"sync"

	"github.com/pilab-dev/reviewdesk/domain"
	serrors "github.com/pilab-dev/reviewdesk/errors"
)

// BusinessContext holds the tenant identity of one request. It is created
// per request, never shared between requests, and cleared when the request
// ends. All methods are safe on a nil receiver, which behaves as "no tenant".
type BusinessContext struct {
	mu      sync.RWMutex
	current *domain.TenantContext
}

// New returns an empty BusinessContext.
func New() *BusinessContext {
	return &BusinessContext{}
}

// Set records the tenant, actor and role for the request.
func (b *BusinessContext) Set(tenantID, actorID string, role domain.Role) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.current = &domain.TenantContext{TenantID: tenantID, ActorID: actorID, Role: role}
	b.mu.Unlock()
}

// Clear forgets the tenant identity.
func (b *BusinessContext) Clear() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
}

// Current returns a copy of the tenant identity, if any.
func (b *BusinessContext) Current() (domain.TenantContext, bool) {
	if b == nil {
		return domain.TenantContext{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil || b.current.TenantID == "" {
		return domain.TenantContext{}, false
	}
	return *b.current, true
}

// CurrentTenantID returns the tenant id, if any.
func (b *BusinessContext) CurrentTenantID() (string, bool) {
	tc, ok := b.Current()
	return tc.TenantID, ok
}

// HasAccess reports whether the current tenant is tenantID.
func (b *BusinessContext) HasAccess(tenantID string) bool {
	id, ok := b.CurrentTenantID()
	return ok && id == tenantID
}

// HasPermission reports whether the actor's role is at least required.
func (b *BusinessContext) HasPermission(required domain.Role) bool {
	tc, ok := b.Current()
	return ok && tc.Role.Satisfies(required)
}

// RequireTenant returns the tenant id or a NoTenantContext error for op.
func (b *BusinessContext) RequireTenant(op string) (string, error) {
	id, ok := b.CurrentTenantID()
	if !ok {
		return "", serrors.NoTenantContext(op)
	}
	return id, nil
}

type ctxKey struct{}

// WithBusinessContext returns a copy of ctx carrying b.
func WithBusinessContext(ctx context.Context, b *BusinessContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}

// FromContext returns the BusinessContext carried by ctx, or nil.
func FromContext(ctx context.Context) *BusinessContext {
	b, _ := ctx.Value(ctxKey{}).(*BusinessContext)
	return b
}

// TenantID returns the tenant id carried by ctx or a NoTenantContext error for op.
func TenantID(ctx context.Context, op string) (string, error) {
	return FromContext(ctx).RequireTenant(op)
}

// Background returns a context carrying a BusinessContext already set to the
// given identity. It is used by non-HTTP entry points such as the CLI.
func Background(parent context.Context, tenantID, actorID string, role domain.Role) context.Context {
	b := New()
	b.Set(tenantID, actorID, role)
	return WithBusinessContext(parent, b)
}
