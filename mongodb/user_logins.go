package mongodb

import (
	"context"
	"slices"

	"github.com/pilab-dev/identity-mongodb/domain"
)

type userLogins struct {
	backend *userBackend
}

// AddLogin links login to user. A login with the same provider and key
// already on user is rejected with ErrInvalidOperation.
func (l userLogins) AddLogin(user *domain.User, login domain.Login) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireKey("login provider", login.LoginProvider); err != nil {
		return err
	}
	if err := requireKey("provider key", login.ProviderKey); err != nil {
		return err
	}
	return user.AddLogin(login)
}

// RemoveLogin unlinks the login for provider and key, if present.
func (l userLogins) RemoveLogin(user *domain.User, provider, key string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireKey("login provider", provider); err != nil {
		return err
	}
	if err := requireKey("provider key", key); err != nil {
		return err
	}
	user.RemoveLogin(provider, key)
	return nil
}

// Logins returns a copy of the logins of user.
func (l userLogins) Logins(user *domain.User) ([]domain.Login, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return slices.Clone(user.Logins), nil
}

// FindByLogin returns the active user linked to provider and key.
func (l userLogins) FindByLogin(ctx context.Context, provider, key string) (*domain.User, error) {
	if err := requireKey("login provider", provider); err != nil {
		return nil, err
	}
	if err := requireKey("provider key", key); err != nil {
		return nil, err
	}
	filter := active(elemMatch(fieldLogins,
		eq(fieldLoginProvider, provider),
		eq(fieldProviderKey, key),
	))
	return l.backend.findOne(ctx, "find_by_login", filter)
}
