package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner, full access
	RoleManager  Role = "manager"  // Approves overtime for the company
	RoleEmployee Role = "employee" // Requests and executes overtime
	RolePending  Role = "pending"  // Still in onboarding
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee, RolePending:
		return true
	}
	return false
}

// CanApprove reports whether the role acts as an overtime approval authority.
func (r Role) CanApprove() bool {
	return r == RoleManager || r == RoleOwner
}
