package enums

import "fmt"

// ActorRole identifies who is acting on an order in the fulfillment flow.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleDriver   ActorRole = "driver"
	RoleFacility ActorRole = "facility"
	RoleAdmin    ActorRole = "admin"
	RoleSystem   ActorRole = "system"
)

var validActorRoles = []ActorRole{
	RoleCustomer,
	RoleDriver,
	RoleFacility,
	RoleAdmin,
	RoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
