package mongodb

import (
	"context"
	"fmt"

	"github.com/pilab-dev/identity-mongodb/domain"
)

type userProfile struct {
	backend *userBackend
}

func (p userProfile) SetPasswordHash(user *domain.User, hash string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

func (p userProfile) PasswordHash(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

func (p userProfile) HasPassword(user *domain.User) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	return user.PasswordHash != "", nil
}

func (p userProfile) SetSecurityStamp(user *domain.User, stamp string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.SecurityStamp = stamp
	return nil
}

func (p userProfile) SecurityStamp(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.SecurityStamp, nil
}

// SetEmail changes the email of user. A different address is unconfirmed and
// gets a fresh lookup key; an empty address removes the email.
func (p userProfile) SetEmail(user *domain.User, email string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if user.Email == email {
		return nil
	}
	user.Email = email
	user.EmailConfirmed = false
	user.NormalizedEmail = p.backend.normalizer.NormalizeEmail(email)
	return nil
}

func (p userProfile) Email(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.Email, nil
}

// EmailConfirmed fails with ErrInvalidOperation when user has no email.
func (p userProfile) EmailConfirmed(user *domain.User) (bool, error) {
	if err := requireEmail(user); err != nil {
		return false, err
	}
	return user.EmailConfirmed, nil
}

// SetEmailConfirmed fails with ErrInvalidOperation when user has no email.
func (p userProfile) SetEmailConfirmed(user *domain.User, confirmed bool) error {
	if err := requireEmail(user); err != nil {
		return err
	}
	user.EmailConfirmed = confirmed
	return nil
}

// NormalizedEmail returns the email lookup key, or "" when user has no email.
func (p userProfile) NormalizedEmail(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	if user.Email == "" {
		return "", nil
	}
	return user.NormalizedEmail, nil
}

func (p userProfile) SetNormalizedEmail(user *domain.User, normalizedEmail string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.NormalizedEmail = normalizedEmail
	return nil
}

// FindByEmail returns the active user with the given normalized email.
func (p userProfile) FindByEmail(ctx context.Context, normalizedEmail string) (*domain.User, error) {
	if err := requireKey("normalized email", normalizedEmail); err != nil {
		return nil, err
	}
	return p.backend.findOne(ctx, "find_by_email", active(eq(fieldNormalizedEmail, normalizedEmail)))
}

// SetPhoneNumber changes the phone number of user. A different number is
// unconfirmed.
func (p userProfile) SetPhoneNumber(user *domain.User, phone string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if user.PhoneNumber == phone {
		return nil
	}
	user.PhoneNumber = phone
	user.PhoneNumberConfirmed = false
	return nil
}

func (p userProfile) PhoneNumber(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.PhoneNumber, nil
}

// PhoneNumberConfirmed fails with ErrInvalidOperation when user has no phone
// number.
func (p userProfile) PhoneNumberConfirmed(user *domain.User) (bool, error) {
	if err := requirePhone(user); err != nil {
		return false, err
	}
	return user.PhoneNumberConfirmed, nil
}

// SetPhoneNumberConfirmed fails with ErrInvalidOperation when user has no
// phone number.
func (p userProfile) SetPhoneNumberConfirmed(user *domain.User, confirmed bool) error {
	if err := requirePhone(user); err != nil {
		return err
	}
	user.PhoneNumberConfirmed = confirmed
	return nil
}

func requireEmail(user *domain.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if user.Email == "" {
		return fmt.Errorf("%w: user '%s' has no email", domain.ErrInvalidOperation, user.UserName)
	}
	return nil
}

func requirePhone(user *domain.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if user.PhoneNumber == "" {
		return fmt.Errorf("%w: user '%s' has no phone number", domain.ErrInvalidOperation, user.UserName)
	}
	return nil
}
