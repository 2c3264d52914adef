package domain

// TenantContext identifies on whose behalf a request runs.
type TenantContext struct {
	TenantID string
	ActorID  string
	Role     Role
}
