package enums

import "fmt"

// ActorRole identifies the terminal role of the authenticated actor.
type ActorRole string

const (
	ActorRoleCashier ActorRole = "cashier"
	ActorRoleAdmin   ActorRole = "admin"
	ActorRoleOwner   ActorRole = "owner"
)

var validActorRoles = []ActorRole{
	ActorRoleCashier,
	ActorRoleAdmin,
	ActorRoleOwner,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into a ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

// IsPrivileged reports whether the role may adjust wallets and decide refunds.
func (a ActorRole) IsPrivileged() bool {
	return a == ActorRoleAdmin || a == ActorRoleOwner
}
