package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// User is a detached user record. The store persists it wholesale; every
// setter on the store mutates this value in memory only.
//
// Field names are mapped to lower camel case by the mongodb schema. Optional
// fields carry omitempty; counters, flags, lookup keys and the embedded
// arrays are always written so they round-trip at their zero value.
type User struct {
	ID                 string `bson:"_id"`
	UserName           string
	NormalizedUserName string

	Email                string `bson:",omitempty"`
	NormalizedEmail      string `bson:",omitempty"`
	EmailConfirmed       bool
	PhoneNumber          string `bson:",omitempty"`
	PhoneNumberConfirmed bool

	PasswordHash  string `bson:",omitempty"`
	SecurityStamp string `bson:",omitempty"`

	IsTwoFactorEnabled bool
	AuthenticatorKey   string `bson:",omitempty"`
	RecoveryCodes      []string

	IsLockoutEnabled  bool
	LockoutEndDate    *Occurrence `bson:",omitempty"`
	AccessFailedCount int

	Roles  []string
	Claims []Claim
	Logins []Login

	CreatedOn Occurrence
	DeletedOn *Occurrence `bson:",omitempty"`
}

// NewUser constructs a user with a fresh security stamp and creation time.
// The identifier is assigned by the store on Create.
func NewUser(userName, email string) *User {
	u := &User{
		UserName:      userName,
		Email:         email,
		SecurityStamp: uuid.NewString(),
		CreatedOn:     NewOccurrence(),
	}
	u.Hydrate()
	return u
}

func (u *User) GetID() string { return u.ID }

func (u *User) SetID(id string) { u.ID = id }

func (u *User) GetName() string { return u.UserName }

func (u *User) GetNormalizedName() string { return u.NormalizedUserName }

func (u *User) SetNormalizedName(name string) { u.NormalizedUserName = name }

func (u *User) Created() time.Time { return u.CreatedOn.Instant }

// Hydrate makes sure the embedded collections are never nil.
func (u *User) Hydrate() {
	if u.Claims == nil {
		u.Claims = []Claim{}
	}
	if u.Logins == nil {
		u.Logins = []Login{}
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	if u.RecoveryCodes == nil {
		u.RecoveryCodes = []string{}
	}
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedOn != nil
}

// MarkDeleted records the deletion time. Deleting twice is an error.
func (u *User) MarkDeleted(at Occurrence) error {
	if u.DeletedOn != nil {
		return fmt.Errorf("user '%s': %w", u.ID, ErrAlreadyDeleted)
	}
	u.DeletedOn = &at
	return nil
}

// AddClaim appends c. Claims are not deduplicated.
func (u *User) AddClaim(c Claim) {
	u.Claims = append(u.Claims, c)
}

// RemoveClaim removes the first claim structurally equal to c.
func (u *User) RemoveClaim(c Claim) bool {
	i := slices.Index(u.Claims, c)
	if i < 0 {
		return false
	}
	u.Claims = slices.Delete(u.Claims, i, i+1)
	return true
}

// HasLogin reports whether a login for provider and key is present.
func (u *User) HasLogin(provider, key string) bool {
	return slices.ContainsFunc(u.Logins, func(l Login) bool { return l.Matches(provider, key) })
}

// AddLogin appends l unless a login with the same provider and key exists.
func (u *User) AddLogin(l Login) error {
	if u.HasLogin(l.LoginProvider, l.ProviderKey) {
		return fmt.Errorf("%w: login %s/%s already exists", ErrInvalidOperation, l.LoginProvider, l.ProviderKey)
	}
	u.Logins = append(u.Logins, l)
	return nil
}

// RemoveLogin removes the login for provider and key, if present.
func (u *User) RemoveLogin(provider, key string) bool {
	i := slices.IndexFunc(u.Logins, func(l Login) bool { return l.Matches(provider, key) })
	if i < 0 {
		return false
	}
	u.Logins = slices.Delete(u.Logins, i, i+1)
	return true
}

// AddRole adds roleName to the membership set.
func (u *User) AddRole(roleName string) {
	if !slices.Contains(u.Roles, roleName) {
		u.Roles = append(u.Roles, roleName)
	}
}

// RemoveRole removes roleName from the membership set.
func (u *User) RemoveRole(roleName string) {
	u.Roles = slices.DeleteFunc(u.Roles, func(r string) bool { return r == roleName })
}

// InRole reports whether the user is a member of roleName.
func (u *User) InRole(roleName string) bool {
	return slices.Contains(u.Roles, roleName)
}

// ReplaceRecoveryCodes overwrites the recovery codes with a copy of codes.
func (u *User) ReplaceRecoveryCodes(codes []string) {
	u.RecoveryCodes = append([]string{}, codes...)
}

// RedeemCode consumes exactly one occurrence of code.
func (u *User) RedeemCode(code string) bool {
	i := slices.Index(u.RecoveryCodes, code)
	if i < 0 {
		return false
	}
	u.RecoveryCodes = slices.Delete(u.RecoveryCodes, i, i+1)
	return true
}

// LockUntil sets the lockout end. A nil end clears it.
func (u *User) LockUntil(end *time.Time) {
	if end == nil {
		u.LockoutEndDate = nil
		return
	}
	o := OccurrenceAt(*end)
	u.LockoutEndDate = &o
}
