package mongodb

import (
	"context"
	"fmt"
	"slices"

	"github.com/pilab-dev/identity-mongodb/domain"
)

// userRoles manages the role names denormalized onto the user document. Role
// names are not checked against the role collection.
type userRoles struct{}

func (userRoles) AddToRole(user *domain.User, roleName string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireKey("role name", roleName); err != nil {
		return err
	}
	user.AddRole(roleName)
	return nil
}

func (userRoles) RemoveFromRole(user *domain.User, roleName string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireKey("role name", roleName); err != nil {
		return err
	}
	user.RemoveRole(roleName)
	return nil
}

func (userRoles) Roles(user *domain.User) ([]string, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return slices.Clone(user.Roles), nil
}

func (userRoles) IsInRole(user *domain.User, roleName string) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	if err := requireKey("role name", roleName); err != nil {
		return false, err
	}
	return user.InRole(roleName), nil
}

// UsersInRole is not implemented and always fails, so an empty result is
// never mistaken for a role without members.
func (userRoles) UsersInRole(_ context.Context, roleName string) ([]*domain.User, error) {
	return nil, fmt.Errorf("users in role '%s': %w", roleName, domain.ErrNotImplemented)
}
