package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"
)

// AccountService carries out privileged changes to other identities. Every
// change ends by invalidating the target's sessions so it applies at once
// rather than when the current access tokens expire.
type AccountService struct {
	Identities store.Identities
	Sessions   store.Sessions
}

// ChangeRole sets target's role. The actor must be an admin, must outrank
// the target and may not grant a role above their own.
func (s *AccountService) ChangeRole(ctx context.Context, actor domain.Identity, targetID int64, newRole domain.Role) (domain.Identity, error) {
	if !newRole.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrValidation, domain.ErrUnknownRole)
	}
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Identity{}, err
	}
	if err := GuardRoleChange(actor.ID, targetID, newRole); err != nil {
		return domain.Identity{}, err
	}

	target, err := s.load(ctx, actor, targetID)
	if err != nil {
		return domain.Identity{}, err
	}
	if !actor.Role.AtLeast(newRole) {
		return domain.Identity{}, fmt.Errorf("%w: cannot grant %q", ErrForbidden, newRole)
	}
	if target.Role == newRole {
		return target, nil
	}

	if err := s.Identities.UpdateRole(ctx, target.ID, newRole); err != nil {
		return domain.Identity{}, mapStoreError("update role", err)
	}
	target.Role = newRole

	s.invalidate(ctx, target.ID)
	slogx.FromContext(ctx).Info("role changed",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", target.ID),
		slog.String("new_role", newRole.String()),
	)
	return target, nil
}

// Deactivate blocks future logins for target and ends its sessions.
func (s *AccountService) Deactivate(ctx context.Context, actor domain.Identity, targetID int64) (domain.Identity, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Identity{}, err
	}
	if err := GuardSelfAction(actor.ID, targetID); err != nil {
		return domain.Identity{}, err
	}

	target, err := s.load(ctx, actor, targetID)
	if err != nil {
		return domain.Identity{}, err
	}

	if err := s.Identities.SetActive(ctx, target.ID, false); err != nil {
		return domain.Identity{}, mapStoreError("deactivate", err)
	}
	target.Active = false

	s.invalidate(ctx, target.ID)
	slogx.FromContext(ctx).Info("account deactivated",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", target.ID),
	)
	return target, nil
}

// Delete removes target. Sessions are invalidated first because the session
// backend may not share the identity store's foreign keys.
func (s *AccountService) Delete(ctx context.Context, actor domain.Identity, targetID int64) error {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := GuardSelfAction(actor.ID, targetID); err != nil {
		return err
	}

	target, err := s.load(ctx, actor, targetID)
	if err != nil {
		return err
	}

	s.invalidate(ctx, target.ID)
	if err := s.Identities.DeleteIdentity(ctx, target.ID); err != nil {
		return mapStoreError("delete identity", err)
	}

	slogx.FromContext(ctx).Info("account deleted",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", target.ID),
	)
	return nil
}

// load fetches the target and, unless it is the actor, checks the actor
// outranks it.
func (s *AccountService) load(ctx context.Context, actor domain.Identity, targetID int64) (domain.Identity, error) {
	if targetID <= 0 {
		return domain.Identity{}, ErrNotFound
	}
	target, err := s.Identities.GetIdentityByID(ctx, targetID)
	if err != nil {
		return domain.Identity{}, mapStoreError("load identity", err)
	}
	if target.ID != actor.ID {
		if err := RequireMinimumRole(actor, target.Role); err != nil {
			return domain.Identity{}, err
		}
	}
	return target, nil
}

func (s *AccountService) invalidate(ctx context.Context, identityID int64) {
	n, err := s.Sessions.InvalidateIdentitySessions(ctx, identityID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to invalidate sessions",
			slog.Int64("identity_id", identityID),
			slog.Any("error", err),
		)
		return
	}
	slogx.FromContext(ctx).Debug("sessions invalidated",
		slog.Int64("identity_id", identityID),
		slog.Int64("count", n),
	)
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
