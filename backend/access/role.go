package access

import "fmt"

// Role is the closed set of roles an authenticated user can hold.
// The zero value RoleNone stands for "no authenticated identity".
type Role int

const (
	RoleNone Role = iota
	RoleLaw
	RoleManagement
	RoleInternal
	RoleGuest
)

// Roles lists every assignable role in display order.
var Roles = []Role{RoleLaw, RoleManagement, RoleInternal, RoleGuest}

var roleNames = map[Role]string{
	RoleLaw:        "Law",
	RoleManagement: "Management",
	RoleInternal:   "Internal",
	RoleGuest:      "Guest",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "None"
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLaw, RoleManagement, RoleInternal, RoleGuest:
		return true
	case RoleNone:
		return false
	default:
		return false
	}
}

// ParseRole maps a role name to a Role. Unknown or empty names yield RoleNone,
// which the gate treats as unauthenticated.
func ParseRole(s string) Role {
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleNone
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike ParseRole it
// rejects unknown names, so a typo in configuration fails at startup.
func (r *Role) UnmarshalText(text []byte) error {
	role := ParseRole(string(text))
	if role == RoleNone {
		return fmt.Errorf("unknown role %q", string(text))
	}
	*r = role
	return nil
}
