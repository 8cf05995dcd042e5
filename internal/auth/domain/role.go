package domain

import (
	"errors"
	"strings"
)

// Role is a privilege level. Roles form a total order, see Rank.
type Role string

const (
	RoleJobSeeker  Role = "job_seeker"
	RoleEmployer   Role = "employer"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// hierarchy lists every role from least to most privileged.
var hierarchy = [...]Role{RoleJobSeeker, RoleEmployer, RoleInstructor, RoleAdmin}

// ErrUnknownRole is returned by ParseRole for names outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

// Rank is the role's position in the hierarchy, or -1 for an unknown role.
func (r Role) Rank() int {
	for i, h := range hierarchy {
		if h == r {
			return i
		}
	}
	return -1
}

func (r Role) Valid() bool { return r.Rank() >= 0 }

// Outranks reports whether r is strictly above other. Comparisons involving
// an unknown role are always false.
func (r Role) Outranks(other Role) bool {
	rr := r.Rank()
	return rr >= 0 && other.Valid() && rr > other.Rank()
}

// AtLeast reports whether r is other or above it.
func (r Role) AtLeast(other Role) bool {
	rr := r.Rank()
	return rr >= 0 && other.Valid() && rr >= other.Rank()
}

func (r Role) String() string { return string(r) }

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}
