package mongodb

import (
	"context"
	"slices"

	"github.com/pilab-dev/identity-mongodb/domain"
)

type userClaims struct {
	backend *userBackend
}

func requireClaim(c domain.Claim) error {
	if c.Type == "" {
		return domain.ArgumentRequired("claim type")
	}
	return nil
}

// Claims returns a copy of the claims of user.
func (c userClaims) Claims(user *domain.User) ([]domain.Claim, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	return slices.Clone(user.Claims), nil
}

// AddClaims appends claims to user. Duplicates are kept.
func (c userClaims) AddClaims(user *domain.User, claims ...domain.Claim) error {
	if err := requireUser(user); err != nil {
		return err
	}
	for _, claim := range claims {
		if err := requireClaim(claim); err != nil {
			return err
		}
	}

	for _, claim := range claims {
		user.AddClaim(claim)
	}
	return nil
}

// ReplaceClaim removes claim from user and adds newClaim.
func (c userClaims) ReplaceClaim(user *domain.User, claim, newClaim domain.Claim) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireClaim(claim); err != nil {
		return err
	}
	if err := requireClaim(newClaim); err != nil {
		return err
	}

	user.RemoveClaim(claim)
	user.AddClaim(newClaim)
	return nil
}

// RemoveClaims removes one occurrence of each of claims from user.
func (c userClaims) RemoveClaims(user *domain.User, claims ...domain.Claim) error {
	if err := requireUser(user); err != nil {
		return err
	}
	for _, claim := range claims {
		if err := requireClaim(claim); err != nil {
			return err
		}
	}

	for _, claim := range claims {
		user.RemoveClaim(claim)
	}
	return nil
}

// UsersForClaim returns the active users holding claim.
func (c userClaims) UsersForClaim(ctx context.Context, claim domain.Claim) ([]*domain.User, error) {
	if err := requireClaim(claim); err != nil {
		return nil, err
	}
	filter := active(elemMatch(fieldClaims,
		eq(fieldClaimType, claim.Type),
		eq(fieldClaimValue, claim.Value),
	))
	return c.backend.findMany(ctx, "users_for_claim", filter)
}
