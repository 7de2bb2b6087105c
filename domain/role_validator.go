package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RoleValidator is a pluggable acceptance check run before a role is written.
type RoleValidator interface {
	Validate(ctx context.Context, role *Role) Result
}

// RoleValidatorFunc adapts a function to RoleValidator.
type RoleValidatorFunc func(ctx context.Context, role *Role) Result

// Validate implements RoleValidator.
func (f RoleValidatorFunc) Validate(ctx context.Context, role *Role) Result {
	return f(ctx, role)
}

// RoleFinder looks a role up by its normalized name.
type RoleFinder interface {
	FindByName(ctx context.Context, normalizedName string) (*Role, error)
}

// RoleNameValidator rejects blank names and names already taken by another
// role.
type RoleNameValidator struct {
	finder     RoleFinder
	normalizer LookupNormalizer
}

// NewRoleNameValidator returns a RoleNameValidator. A nil normalizer falls
// back to UpperInvariantNormalizer.
func NewRoleNameValidator(finder RoleFinder, normalizer LookupNormalizer) *RoleNameValidator {
	if normalizer == nil {
		normalizer = UpperInvariantNormalizer{}
	}
	return &RoleNameValidator{finder: finder, normalizer: normalizer}
}

// Validate implements RoleValidator.
func (v *RoleNameValidator) Validate(ctx context.Context, role *Role) Result {
	if strings.TrimSpace(role.Name) == "" {
		return Failed(ResultError{
			Code:        CodeInvalidRoleName,
			Description: fmt.Sprintf("role name '%s' is invalid", role.Name),
		})
	}

	existing, err := v.finder.FindByName(ctx, v.normalizer.NormalizeName(role.Name))
	switch {
	case errors.Is(err, ErrNotFound):
		return Success()
	case err != nil:
		return Failed(ResultError{Code: CodeInvalidRoleName, Description: err.Error()})
	case existing.ID != role.ID:
		return Failed(ResultError{
			Code:        CodeDuplicateRoleName,
			Description: fmt.Sprintf("role name '%s' is already taken", role.Name),
		})
	}
	return Success()
}
