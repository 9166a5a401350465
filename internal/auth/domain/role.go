package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is a rank on a totally ordered scale. Authorization compares ranks,
// there is no inheritance.
type Role int

const (
	RolePublic     Role = 0 // no authentication required; never assigned to a user
	RoleUser       Role = 1
	RoleSupervisor Role = 2
	RoleModerator  Role = 3
	RoleAdmin      Role = 4
)

// MinAssignableRole is the lowest rank a real user can hold.
const MinAssignableRole = RoleUser

var roleNames = map[Role]string{
	RolePublic:     "public",
	RoleUser:       "user",
	RoleSupervisor: "supervisor",
	RoleModerator:  "moderator",
	RoleAdmin:      "admin",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return "role(" + strconv.Itoa(int(r)) + ")"
}

// Valid reports whether r can be held by a user.
func (r Role) Valid() bool {
	return r >= MinAssignableRole && r <= RoleAdmin
}

// AtLeast reports whether r meets the required minimum.
func (r Role) AtLeast(min Role) bool { return r >= min }

// ParseRole accepts either a rank number or a role name.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if r := Role(n); r.Valid() {
			return r, nil
		}
		return 0, fmt.Errorf("domain: role rank %d out of range", n)
	}
	for r, name := range roleNames {
		if name == s && r.Valid() {
			return r, nil
		}
	}
	return 0, fmt.Errorf("domain: unknown role %q", s)
}
