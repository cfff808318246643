package salesdoc

import "fmt"

// Role is the class of an authenticated caller.
type Role string

const (
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStaff, RoleCustomer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrUnauthorized, s)
	}
}

// Actor is the authenticated caller supplied by the identity provider. For
// customers, ID is the contact id their documents are addressed to.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Staff returns a staff actor.
func Staff(id string) Actor { return Actor{ID: id, Role: RoleStaff} }

// Customer returns a customer actor for contact id.
func Customer(contactID string) Actor { return Actor{ID: contactID, Role: RoleCustomer} }

// IsStaff reports whether the actor is staff.
func (a Actor) IsStaff() bool { return a.Role == RoleStaff }

// IsCustomer reports whether the actor is a customer.
func (a Actor) IsCustomer() bool { return a.Role == RoleCustomer }

func (a Actor) valid() bool {
	return a.ID != "" && (a.Role == RoleStaff || a.Role == RoleCustomer)
}

// allow checks that the actor holds one of roles.
func (a Actor) allow(roles ...Role) error {
	if !a.valid() {
		return fmt.Errorf("%w: missing or unknown actor", ErrUnauthorized)
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not perform this operation", ErrUnauthorized, a.Role)
}

// sees reports whether the actor may see a document addressed to contactID.
func (a Actor) sees(contactID string) bool {
	return a.Role == RoleStaff || (a.Role == RoleCustomer && contactID == a.ID)
}
