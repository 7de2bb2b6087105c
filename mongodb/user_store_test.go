package mongodb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/mongodb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func setupProvider(t *testing.T, opts Options) *Provider {
	t.Helper()
	db, cleanup := testutil.SetupTestMongoDB(t, "identity_store_test")
	t.Cleanup(cleanup)
	return NewProvider(db, opts)
}

func setupUserStore(t *testing.T) *UserStore {
	t.Helper()
	store, err := setupProvider(t, Options{}).UserStore(context.Background())
	require.NoError(t, err)
	return store
}

func createUser(t *testing.T, store *UserStore, user *domain.User) *domain.User {
	t.Helper()
	res, err := store.Create(context.Background(), user)
	require.NoError(t, err)
	require.True(t, res.Succeeded, res.String())
	return user
}

func TestUserStore_ArgumentValidation(t *testing.T) {
	var store UserStore
	ctx := context.Background()

	_, err := store.Create(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.Update(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.Delete(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.Purge(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.FindByID(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.FindByLogin(ctx, "github", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = store.UsersForClaim(ctx, domain.Claim{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.ErrorIs(t, store.AddClaims(nil, domain.NewClaim("a", "b")), domain.ErrInvalidArgument)

	u := domain.NewUser("alice", "")
	assert.ErrorIs(t, store.AddClaims(u, domain.NewClaim("a", "b"), domain.Claim{}), domain.ErrInvalidArgument)
	assert.Empty(t, u.Claims, "no partial mutation")
}

func TestUserStore_InMemoryContract(t *testing.T) {
	var store UserStore
	u := domain.NewUser("alice", "")

	assert.ErrorIs(t, store.SetUserName(u, "bob"), domain.ErrNotSupported)
	assert.ErrorIs(t, store.SetUserName(nil, ""), domain.ErrNotSupported)
	assert.Equal(t, "alice", u.UserName)

	_, err := store.UsersInRole(context.Background(), domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	_, err = store.EmailConfirmed(u)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	_, err = store.PhoneNumberConfirmed(u)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	assert.ErrorIs(t, store.SetPhoneNumberConfirmed(u, true), domain.ErrInvalidOperation)

	require.NoError(t, store.SetPhoneNumber(u, "+3612345678"))
	require.NoError(t, store.SetPhoneNumberConfirmed(u, true))
	confirmed, err := store.PhoneNumberConfirmed(u)
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.False(t, u.EmailConfirmed, "phone confirmation must not touch the email flag")

	require.NoError(t, store.SetPhoneNumber(u, "+3687654321"))
	assert.False(t, u.PhoneNumberConfirmed, "a new number is unconfirmed")

	end := time.Now().Add(time.Hour)
	require.NoError(t, store.SetLockoutEndDate(u, &end))
	got, err := store.LockoutEndDate(u)
	require.NoError(t, err)
	assert.WithinDuration(t, end, *got, time.Millisecond)
	require.NoError(t, store.SetLockoutEndDate(u, nil))
	got, err = store.LockoutEndDate(u)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.AddToRole(u, domain.RoleUser))
	in, err := store.IsInRole(u, domain.RoleUser)
	require.NoError(t, err)
	assert.True(t, in)
}

// Scenario: a user without email is found by its normalized name and cannot
// have its email confirmed.
func TestUserStore_CreateWithoutEmail(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	alice := createUser(t, store, domain.NewUser("alice", ""))
	require.NotEmpty(t, alice.ID)
	assert.Equal(t, "ALICE", alice.NormalizedUserName)

	found, err := store.FindByName(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
	assert.NotNil(t, found.Claims)
	assert.Empty(t, found.Claims)

	assert.ErrorIs(t, store.SetEmailConfirmed(found, true), domain.ErrInvalidOperation)

	// Any number of users without email can coexist under the unique index.
	createUser(t, store, domain.NewUser("bob", ""))
}

func TestUserStore_IdentifierStability(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := createUser(t, store, domain.NewUser("carol", "carol@example.com"))
	id := u.ID

	require.NoError(t, store.SetPasswordHash(u, "hash"))
	require.NoError(t, store.AddClaims(u, domain.NewClaim("department", "sales")))
	res, err := store.Update(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	// Replacing with an identical document still succeeds.
	res, err = store.Update(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	found, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.Equal(t, []domain.Claim{domain.NewClaim("department", "sales")}, found.Claims)
	assert.True(t, u.CreatedOn.Instant.Equal(found.CreatedOn.Instant))

	byEmail, err := store.FindByEmail(ctx, "CAROL@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
}

func TestUserStore_UserNameImmutable(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := createUser(t, store, domain.NewUser("dave", ""))
	for _, name := range []string{"eve", "", "dave"} {
		assert.ErrorIs(t, store.SetUserName(u, name), domain.ErrNotSupported)
	}

	found, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "dave", found.UserName)
}

func TestUserStore_SoftDeleteExcludesFromLookups(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := domain.NewUser("frank", "frank@example.com")
	require.NoError(t, store.AddLogin(u, domain.NewLogin("github", "frank-gh", "GitHub")))
	require.NoError(t, store.AddClaims(u, domain.NewClaim("team", "blue")))
	createUser(t, store, u)

	res, err := store.Delete(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	assert.True(t, u.IsDeleted())

	_, err = store.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.FindByName(ctx, "FRANK")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.FindByEmail(ctx, "FRANK@EXAMPLE.COM")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = store.FindByLogin(ctx, "github", "frank-gh")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	holders, err := store.UsersForClaim(ctx, domain.NewClaim("team", "blue"))
	require.NoError(t, err)
	assert.Empty(t, holders)

	n, err := store.Collection().CountDocuments(ctx, bson.D{{Key: "_id", Value: u.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the document is still stored")

	_, err = store.Delete(ctx, u)
	assert.ErrorIs(t, err, domain.ErrAlreadyDeleted)

	res, err = store.Purge(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	n, err = store.Collection().CountDocuments(ctx, bson.D{{Key: "_id", Value: u.ID}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

// Scenario: updating a user that was deleted meanwhile reports a failure.
func TestUserStore_UpdateAfterDelete(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := createUser(t, store, domain.NewUser("grace", ""))
	res, err := store.Delete(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	res, err = store.Update(ctx, u)
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeConcurrencyFailure}, res.Codes())
}

func TestUserStore_ConcurrentIncrement(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := createUser(t, store, domain.NewUser("heidi", ""))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(copyOf domain.User) {
			defer wg.Done()
			_, err := store.IncrementAccessFailedCount(ctx, &copyOf)
			assert.NoError(t, err)
		}(*u)
	}
	wg.Wait()

	found, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, n, found.AccessFailedCount)

	count, err := store.IncrementAccessFailedCount(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, n+1, count)
	assert.Equal(t, n+1, u.AccessFailedCount)

	require.NoError(t, store.ResetAccessFailedCount(u))
	res, err := store.Update(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	found, err = store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, found.AccessFailedCount)
}

func TestUserStore_IncrementMissingUser(t *testing.T) {
	store := setupUserStore(t)

	_, err := store.IncrementAccessFailedCount(context.Background(), &domain.User{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserStore_RecoveryCodes(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := domain.NewUser("ivan", "")
	require.NoError(t, store.ReplaceCodes(u, []string{"alpha", "bravo", "charlie"}))
	require.NoError(t, store.SetAuthenticatorKey(u, "JBSWY3DPEHPK3PXP"))
	require.NoError(t, store.SetTwoFactorEnabled(u, true))
	createUser(t, store, u)

	found, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)

	ok, err := store.RedeemCode(found, "bravo")
	require.NoError(t, err)
	assert.True(t, ok)
	left, err := store.CountCodes(found)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	ok, err = store.RedeemCode(found, "bravo")
	require.NoError(t, err)
	assert.False(t, ok)
	left, err = store.CountCodes(found)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	res, err := store.Update(ctx, found)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	again, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "charlie"}, again.RecoveryCodes)
	assert.True(t, again.IsTwoFactorEnabled)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", again.AuthenticatorKey)
}

func TestUserStore_Logins(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := domain.NewUser("judy", "")
	require.NoError(t, store.AddLogin(u, domain.NewLogin("google", "g-1", "Google")))
	err := store.AddLogin(u, domain.NewLogin("google", "g-1", "Google again"))
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	logins, err := store.Logins(u)
	require.NoError(t, err)
	assert.Len(t, logins, 1)
	createUser(t, store, u)

	found, err := store.FindByLogin(ctx, "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	// Provider and key must match on the same element.
	other := domain.NewUser("mallory", "")
	require.NoError(t, store.AddLogin(other, domain.NewLogin("google", "g-2", "")))
	require.NoError(t, store.AddLogin(other, domain.NewLogin("github", "g-1", "")))
	createUser(t, store, other)

	found, err = store.FindByLogin(ctx, "google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	require.NoError(t, store.RemoveLogin(found, "google", "g-1"))
	res, err := store.Update(ctx, found)
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	_, err = store.FindByLogin(ctx, "google", "g-1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserStore_Claims(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	old := domain.NewClaim("level", "1")
	u := domain.NewUser("ken", "")
	require.NoError(t, store.AddClaims(u, old, domain.NewClaim("team", "red")))
	createUser(t, store, u)

	holders, err := store.UsersForClaim(ctx, old)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, u.ID, holders[0].ID)

	require.NoError(t, store.ReplaceClaim(u, old, domain.NewClaim("level", "2")))
	require.NoError(t, store.RemoveClaims(u, domain.NewClaim("team", "red")))
	res, err := store.Update(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	holders, err = store.UsersForClaim(ctx, old)
	require.NoError(t, err)
	assert.Empty(t, holders)

	found, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	claims, err := store.Claims(found)
	require.NoError(t, err)
	assert.Equal(t, []domain.Claim{domain.NewClaim("level", "2")}, claims)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	store := setupUserStore(t)

	createUser(t, store, domain.NewUser("leo", "shared@example.com"))

	res, err := store.Create(context.Background(), domain.NewUser("lea", "shared@example.com"))
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, []string{domain.CodeDuplicateKey}, res.Codes())
}

func TestUserStore_EmailChange(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	u := createUser(t, store, domain.NewUser("mia", "mia@example.com"))
	require.NoError(t, store.SetEmailConfirmed(u, true))

	require.NoError(t, store.SetEmail(u, "mia@example.org"))
	assert.False(t, u.EmailConfirmed)
	normalized, err := store.NormalizedEmail(u)
	require.NoError(t, err)
	assert.Equal(t, "MIA@EXAMPLE.ORG", normalized)

	res, err := store.Update(ctx, u)
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	_, err = store.FindByEmail(ctx, "MIA@EXAMPLE.COM")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	found, err := store.FindByEmail(ctx, "MIA@EXAMPLE.ORG")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestUserStore_Count(t *testing.T) {
	store := setupUserStore(t)
	ctx := context.Background()

	createUser(t, store, domain.NewUser("nina", ""))
	gone := createUser(t, store, domain.NewUser("oscar", ""))
	_, err := store.Delete(ctx, gone)
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserStore_CancelledContext(t *testing.T) {
	store := setupUserStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := domain.NewUser("peggy", "")
	_, err := store.Create(ctx, u)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.FindByName(context.Background(), "PEGGY")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
