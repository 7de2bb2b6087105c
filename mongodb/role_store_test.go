package mongodb

import (
	"context"
	"testing"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoleValidator struct {
	mock.Mock
}

func (m *mockRoleValidator) Validate(ctx context.Context, role *domain.Role) domain.Result {
	args := m.Called(ctx, role)
	return args.Get(0).(domain.Result)
}

func setupRoleStore(t *testing.T, validators ...domain.RoleValidator) *RoleStore {
	t.Helper()
	store, err := setupProvider(t, Options{}).RoleStore(context.Background(), validators...)
	require.NoError(t, err)
	return store
}

func createRole(t *testing.T, store *RoleStore, name string) *domain.Role {
	t.Helper()
	role := domain.NewRole(name)
	res, err := store.Create(context.Background(), role)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	return role
}

// Scenario: a role gains and loses a claim and stays findable by its
// normalized name.
func TestRoleStore_ClaimLifecycle(t *testing.T) {
	store := setupRoleStore(t)
	ctx := context.Background()

	admin := createRole(t, store, "admin")
	require.NotEmpty(t, admin.ID)
	assert.Equal(t, "ADMIN", admin.NormalizedName)

	god := domain.NewClaim("role", "god")
	res, err := store.AddClaim(ctx, admin, god)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Empty(t, admin.Claims, "the passed role is not modified")

	found, err := store.FindByName(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, found.ID)
	assert.Equal(t, []domain.Claim{god}, found.Claims)

	res, err = store.RemoveClaim(ctx, found, god)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	claims, err := store.Claims(ctx, admin)
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Empty(t, claims)

	// Removing an absent claim is not an error.
	res, err = store.RemoveClaim(ctx, admin, god)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
}

func TestRoleStore_ClaimOnMissingRole(t *testing.T) {
	store := setupRoleStore(t)

	_, err := store.AddClaim(context.Background(), &domain.Role{ID: "missing"}, domain.NewClaim("a", "b"))
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)

	_, err = store.AddClaim(context.Background(), &domain.Role{ID: "missing"}, domain.Claim{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRoleStore_DefaultValidation(t *testing.T) {
	store := setupRoleStore(t)
	ctx := context.Background()

	createRole(t, store, "Editor")

	res, err := store.Create(ctx, domain.NewRole("editor"))
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeDuplicateRoleName}, res.Codes())

	res, err = store.Create(ctx, domain.NewRole(" "))
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeInvalidRoleName}, res.Codes())

	roles, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRoleStore_CustomValidatorsAggregate(t *testing.T) {
	first := new(mockRoleValidator)
	first.On("Validate", mock.Anything, mock.Anything).Return(domain.Failed(domain.ResultError{Code: "TooShort"}))
	second := new(mockRoleValidator)
	second.On("Validate", mock.Anything, mock.Anything).Return(domain.Failed(domain.ResultError{Code: "Reserved"}))

	store := setupRoleStore(t, first, second)
	ctx := context.Background()

	role := domain.NewRole("x")
	res, err := store.Create(ctx, role)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{"TooShort", "Reserved"}, res.Codes())
	assert.Empty(t, role.ID, "nothing is written")

	roles, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestRoleStore_UpdateRename(t *testing.T) {
	store := setupRoleStore(t)
	ctx := context.Background()

	role := createRole(t, store, "support")
	require.NoError(t, store.SetRoleName(role, "helpdesk"))

	res, err := store.Update(ctx, role)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.Equal(t, "HELPDESK", role.NormalizedName)

	_, err = store.FindByName(ctx, "SUPPORT")
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)
	found, err := store.FindByName(ctx, "HELPDESK")
	require.NoError(t, err)
	assert.Equal(t, role.ID, found.ID)

	// Re-saving under its own name passes the uniqueness check.
	res, err = store.Update(ctx, found)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
}

func TestRoleStore_DeleteAndMissing(t *testing.T) {
	store := setupRoleStore(t)
	ctx := context.Background()

	role := createRole(t, store, "temporary")

	res, err := store.Delete(ctx, role)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	_, err = store.FindByID(ctx, role.ID)
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)

	res, err = store.Delete(ctx, role)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeConcurrencyFailure}, res.Codes())

	res, err = store.Update(ctx, role)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeConcurrencyFailure}, res.Codes())
}

func TestRoleStore_ListSorted(t *testing.T) {
	store := setupRoleStore(t)

	for _, name := range []string{"viewer", "Admin", "editor"} {
		createRole(t, store, name)
	}

	roles, err := store.List(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.NormalizedName)
	}
	assert.Equal(t, []string{"ADMIN", "EDITOR", "VIEWER"}, names)
}
