package mongodb

import "github.com/pilab-dev/identity-mongodb/domain"

type userTwoFactor struct{}

func (userTwoFactor) TwoFactorEnabled(user *domain.User) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	return user.IsTwoFactorEnabled, nil
}

func (userTwoFactor) SetTwoFactorEnabled(user *domain.User, enabled bool) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.IsTwoFactorEnabled = enabled
	return nil
}

func (userTwoFactor) AuthenticatorKey(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.AuthenticatorKey, nil
}

func (userTwoFactor) SetAuthenticatorKey(user *domain.User, key string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.AuthenticatorKey = key
	return nil
}

// ReplaceCodes overwrites the recovery codes of user.
func (userTwoFactor) ReplaceCodes(user *domain.User, codes []string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.ReplaceRecoveryCodes(codes)
	return nil
}

// RedeemCode consumes one occurrence of code and reports whether it was
// present.
func (userTwoFactor) RedeemCode(user *domain.User, code string) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	if err := requireKey("recovery code", code); err != nil {
		return false, err
	}
	return user.RedeemCode(code), nil
}

// CountCodes returns the number of unused recovery codes.
func (userTwoFactor) CountCodes(user *domain.User) (int, error) {
	if err := requireUser(user); err != nil {
		return 0, err
	}
	return len(user.RecoveryCodes), nil
}
