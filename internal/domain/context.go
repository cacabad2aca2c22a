package domain

// ExecutionContext identifies the tenant scope (and optional brand) a call
// operates on. Every engine entry point receives one explicitly; there is
// no ambient tenant state.
type ExecutionContext struct {
	TenantID string
	BrandID  *string
}

// Owns reports whether a record scoped by (tenantID, brandID) belongs to
// this context.
func (c ExecutionContext) Owns(tenantID string, brandID *string) bool {
	if c.TenantID != tenantID {
		return false
	}
	if c.BrandID == nil || brandID == nil {
		return c.BrandID == nil && brandID == nil
	}
	return *c.BrandID == *brandID
}
