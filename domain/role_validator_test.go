package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRoleFinder struct {
	mock.Mock
}

func (m *mockRoleFinder) FindByName(ctx context.Context, normalizedName string) (*Role, error) {
	args := m.Called(ctx, normalizedName)
	role, _ := args.Get(0).(*Role)
	return role, args.Error(1)
}

func TestRoleNameValidator(t *testing.T) {
	ctx := context.Background()

	t.Run("blank name", func(t *testing.T) {
		finder := new(mockRoleFinder)
		v := NewRoleNameValidator(finder, nil)

		res := v.Validate(ctx, NewRole("  "))
		assert.False(t, res.Succeeded)
		assert.Equal(t, []string{CodeInvalidRoleName}, res.Codes())
		finder.AssertNotCalled(t, "FindByName", mock.Anything, mock.Anything)
	})

	t.Run("unused name", func(t *testing.T) {
		finder := new(mockRoleFinder)
		finder.On("FindByName", ctx, "ADMIN").Return(nil, ErrRoleNotFound)
		v := NewRoleNameValidator(finder, UpperInvariantNormalizer{})

		res := v.Validate(ctx, NewRole("admin"))
		assert.True(t, res.Succeeded)
		finder.AssertExpectations(t)
	})

	t.Run("taken by another role", func(t *testing.T) {
		finder := new(mockRoleFinder)
		finder.On("FindByName", ctx, "ADMIN").Return(&Role{ID: "other", Name: "Admin"}, nil)
		v := NewRoleNameValidator(finder, nil)

		role := NewRole("admin")
		role.ID = "mine"
		res := v.Validate(ctx, role)
		assert.False(t, res.Succeeded)
		assert.Equal(t, []string{CodeDuplicateRoleName}, res.Codes())
	})

	t.Run("same role keeps its name", func(t *testing.T) {
		finder := new(mockRoleFinder)
		finder.On("FindByName", ctx, "ADMIN").Return(&Role{ID: "mine", Name: "admin"}, nil)
		v := NewRoleNameValidator(finder, nil)

		role := NewRole("admin")
		role.ID = "mine"
		assert.True(t, v.Validate(ctx, role).Succeeded)
	})

	t.Run("lookup error", func(t *testing.T) {
		finder := new(mockRoleFinder)
		finder.On("FindByName", ctx, "ADMIN").Return(nil, errors.New("connection reset"))
		v := NewRoleNameValidator(finder, nil)

		res := v.Validate(ctx, NewRole("admin"))
		assert.False(t, res.Succeeded)
	})
}

func TestUpperInvariantNormalizer(t *testing.T) {
	n := UpperInvariantNormalizer{}

	assert.Equal(t, "ALICE", n.NormalizeName("alice"))
	assert.Equal(t, "ALICE@EXAMPLE.COM", n.NormalizeEmail(" Alice@Example.com "))
	assert.Equal(t, "STRASSE", n.NormalizeName("straße"))
	assert.Equal(t, "", n.NormalizeEmail(""))
}
