package mongodb

import (
	"context"
	"time"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/log"
)

type userLockout struct {
	backend *userBackend
}

// LockoutEndDate returns the end of the lockout, or nil when user is not
// locked out.
func (l userLockout) LockoutEndDate(user *domain.User) (*time.Time, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if user.LockoutEndDate == nil {
		return nil, nil
	}
	end := user.LockoutEndDate.Instant
	return &end, nil
}

// SetLockoutEndDate locks user out until end. A nil end lifts the lockout.
func (l userLockout) SetLockoutEndDate(user *domain.User, end *time.Time) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.LockUntil(end)
	return nil
}

// IncrementAccessFailedCount atomically increments the stored counter and
// copies the new value onto user.
func (l userLockout) IncrementAccessFailedCount(ctx context.Context, user *domain.User) (int, error) {
	if err := requireUser(user); err != nil {
		return 0, err
	}
	b := l.backend

	var out struct {
		AccessFailedCount int
	}
	err := b.docs.findOneAndUpdate(ctx,
		active(byID(user.ID)),
		increment(fieldAccessFailedCount, 1),
		&out,
		fieldAccessFailedCount,
	)
	b.record("increment_access_failed_count", err)
	if err != nil {
		b.logger.Error(ctx, "Error incrementing access failed count", err, log.Fields{"id": user.ID})
		return 0, err
	}

	user.AccessFailedCount = out.AccessFailedCount
	return out.AccessFailedCount, nil
}

func (l userLockout) ResetAccessFailedCount(user *domain.User) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.AccessFailedCount = 0
	return nil
}

func (l userLockout) AccessFailedCount(user *domain.User) (int, error) {
	if err := requireUser(user); err != nil {
		return 0, err
	}
	return user.AccessFailedCount, nil
}

func (l userLockout) LockoutEnabled(user *domain.User) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	return user.IsLockoutEnabled, nil
}

func (l userLockout) SetLockoutEnabled(user *domain.User, enabled bool) error {
	if err := requireUser(user); err != nil {
		return err
	}
	user.IsLockoutEnabled = enabled
	return nil
}
