package domain

// ServiceRole classifies a machine caller's privilege level.
type ServiceRole string

const (
	// ServiceRoleAdmin may author workflow definitions and SLA policies.
	ServiceRoleAdmin ServiceRole = "ADMIN"
	// ServiceRoleAgent may trigger ticket lifecycle operations.
	ServiceRoleAgent ServiceRole = "AGENT"
)

// Known reports whether the role is one the engine recognizes.
func (r ServiceRole) Known() bool {
	return r == ServiceRoleAdmin || r == ServiceRoleAgent
}
