package service

import (
	"fmt"
	"slices"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
)

// RequireRole passes when identity holds one of roles exactly.
func RequireRole(identity domain.Identity, roles ...domain.Role) error {
	if slices.Contains(roles, identity.Role) {
		return nil
	}
	return fmt.Errorf("%w: role %q not permitted", ErrForbidden, identity.Role)
}

// RequireMinimumRole passes only when identity strictly outranks target.
// Equal ranks fail, so an admin cannot manage another admin.
func RequireMinimumRole(identity domain.Identity, target domain.Role) error {
	if identity.Role.Outranks(target) {
		return nil
	}
	return fmt.Errorf("%w: %q does not outrank %q", ErrForbidden, identity.Role, target)
}

// GuardRoleChange stops an admin from demoting themselves, which could leave
// the platform without one.
func GuardRoleChange(actorID, targetID int64, newRole domain.Role) error {
	if actorID == targetID && newRole != domain.RoleAdmin {
		return fmt.Errorf("%w: cannot change own role", ErrForbidden)
	}
	return nil
}

// GuardSelfAction stops an identity from deactivating or deleting itself.
func GuardSelfAction(actorID, targetID int64) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot target own account", ErrForbidden)
	}
	return nil
}
