package auth

import "fmt"

// Role is the closed set of dashboard roles. Handlers switch on it
// exhaustively; unknown strings are rejected at parse time instead of
// falling through a default branch.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
	RoleDispatch Role = "dispatch"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFarmer, RoleAdmin, RoleDispatch:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

func (r Role) String() string {
	return string(r)
}
