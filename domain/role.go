package domain

import "slices"

// Standard role names.
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// Role is a named group of claims. Roles are hard-deleted.
type Role struct {
	ID             string `bson:"_id"`
	Name           string
	NormalizedName string
	Claims         []Claim
}

// NewRole constructs a role. The identifier is assigned by the store.
func NewRole(name string) *Role {
	r := &Role{Name: name}
	r.Hydrate()
	return r
}

func (r *Role) GetID() string { return r.ID }

func (r *Role) SetID(id string) { r.ID = id }

func (r *Role) GetName() string { return r.Name }

func (r *Role) GetNormalizedName() string { return r.NormalizedName }

func (r *Role) SetNormalizedName(name string) { r.NormalizedName = name }

func (r *Role) String() string { return r.Name }

// Hydrate makes sure Claims is never nil.
func (r *Role) Hydrate() {
	if r.Claims == nil {
		r.Claims = []Claim{}
	}
}

// AddClaim appends c.
func (r *Role) AddClaim(c Claim) {
	r.Claims = append(r.Claims, c)
}

// RemoveClaim removes the first claim equal to c.
func (r *Role) RemoveClaim(c Claim) bool {
	i := slices.Index(r.Claims, c)
	if i < 0 {
		return false
	}
	r.Claims = slices.Delete(r.Claims, i, i+1)
	return true
}
