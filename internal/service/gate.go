package service

import (
	"context"
	"fmt"

	"verification-service/internal/models"
)

// The tenant verification gate is the single authorization primitive shared by
// every tenant-facing path: listing, verification, rejection and order intake
// all consult it before exposing or accepting anything for a tenant.

// CanAccessTransactions reports whether a tenant may view and act on its
// transactions. A tenant qualifies only once an admin has marked it verified
// and its verification stage is document or physical.
func CanAccessTransactions(t *models.Tenant) bool {
	if t == nil || !t.IsVerified {
		return false
	}
	return t.VerificationStatus == models.VerificationDocument ||
		t.VerificationStatus == models.VerificationPhysical
}

// CanReceiveOrders reports whether a tenant may receive fanned-out orders.
// Defined identically to transaction access.
func CanReceiveOrders(t *models.Tenant) bool {
	return CanAccessTransactions(t)
}

// authorizeTenantActor checks that the actor is a super-admin or the owning
// tenant passing the verification gate. Shared by every tenant-scoped
// operation so the gate cannot be bypassed on any path.
func authorizeTenantActor(ctx context.Context, st Store, actor *models.Actor, tenantID string) error {
	if actor == nil {
		return ErrForbidden
	}
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.Role != models.RoleTenant || actor.TenantID != tenantID {
		return ErrForbidden
	}
	tenant, err := st.GetTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant: %w", err)
	}
	if !CanAccessTransactions(tenant) {
		return ErrForbidden
	}
	return nil
}
