package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pilab-dev/reviewdesk/domain"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessContext_SetAndClear(t *testing.T) {
	b := tenant.New()

	_, ok := b.CurrentTenantID()
	assert.False(t, ok)

	b.Set("42", "7", domain.RoleManager)
	id, ok := b.CurrentTenantID()
	require.True(t, ok)
	assert.Equal(t, "42", id)
	assert.True(t, b.HasAccess("42"))
	assert.False(t, b.HasAccess("43"))

	b.Clear()
	_, ok = b.CurrentTenantID()
	assert.False(t, ok)
	assert.False(t, b.HasAccess("42"))
}

func TestBusinessContext_HasPermission(t *testing.T) {
	b := tenant.New()
	assert.False(t, b.HasPermission(domain.RoleViewer))

	b.Set("1", "1", domain.RoleAdmin)
	assert.True(t, b.HasPermission(domain.RoleManager))
	assert.True(t, b.HasPermission(domain.RoleAdmin))
	assert.False(t, b.HasPermission(domain.RoleOwner))

	b.Set("1", "1", domain.Role("Intern"))
	assert.False(t, b.HasPermission(domain.RoleViewer))
}

func TestBusinessContext_NilSafe(t *testing.T) {
	var b *tenant.BusinessContext

	_, ok := b.CurrentTenantID()
	assert.False(t, ok)
	assert.False(t, b.HasPermission(domain.RoleViewer))
	b.Set("1", "1", domain.RoleOwner)
	b.Clear()
}

func TestTenantID_FromContext(t *testing.T) {
	_, err := tenant.TenantID(context.Background(), "reviews.ingest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, serrors.ErrNoTenantContext))

	ctx := tenant.Background(context.Background(), "42", "1", domain.RoleOwner)
	id, err := tenant.TenantID(ctx, "reviews.ingest")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestBusinessContext_RequestsAreIsolated(t *testing.T) {
	a := tenant.New()
	b := tenant.New()
	a.Set("1", "1", domain.RoleOwner)
	b.Set("2", "2", domain.RoleViewer)

	ctxA := tenant.WithBusinessContext(context.Background(), a)
	ctxB := tenant.WithBusinessContext(context.Background(), b)

	idA, _ := tenant.TenantID(ctxA, "op")
	idB, _ := tenant.TenantID(ctxB, "op")
	assert.Equal(t, "1", idA)
	assert.Equal(t, "2", idB)
}
