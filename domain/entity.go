package domain

import "time"

// Identified is implemented by every persisted entity.
type Identified interface {
	GetID() string
	SetID(id string)
}

// Named is implemented by entities with a display name.
type Named interface {
	GetName() string
}

// NormalizedNamed is implemented by entities looked up by a folded name.
type NormalizedNamed interface {
	Named
	GetNormalizedName() string
	SetNormalizedName(name string)
}

// Timestamped is implemented by entities that record their creation time.
type Timestamped interface {
	Created() time.Time
}

// Hydrator is implemented by entities that must repair their in-memory state
// after being decoded from storage.
type Hydrator interface {
	Hydrate()
}

// Occurrence is a point in time stored as a nested document.
type Occurrence struct {
	Instant time.Time
}

// NewOccurrence returns an Occurrence for now, in UTC with the millisecond
// precision of the database.
func NewOccurrence() Occurrence {
	return OccurrenceAt(time.Now())
}

// OccurrenceAt returns an Occurrence for t, in UTC with millisecond precision.
func OccurrenceAt(t time.Time) Occurrence {
	return Occurrence{Instant: t.UTC().Truncate(time.Millisecond)}
}

// Claim is a type/value pair attached to a user or a role.
type Claim struct {
	Type  string `bson:"claimType"`
	Value string `bson:"claimValue"`
}

// NewClaim returns a Claim.
func NewClaim(claimType, value string) Claim {
	return Claim{Type: claimType, Value: value}
}

// Login links a user to an external login provider.
type Login struct {
	LoginProvider       string
	ProviderKey         string
	ProviderDisplayName string
}

// NewLogin returns a Login.
func NewLogin(provider, key, displayName string) Login {
	return Login{LoginProvider: provider, ProviderKey: key, ProviderDisplayName: displayName}
}

// Matches reports whether l refers to the given provider and key. The display
// name is not part of a login's identity.
func (l Login) Matches(provider, key string) bool {
	return l.LoginProvider == provider && l.ProviderKey == key
}
