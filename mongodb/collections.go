package mongodb

// Default collection names. Existing deployments depend on them, so changing
// either is a breaking change.
const (
	DefaultUsersCollection = "users"
	DefaultRolesCollection = "Roles"
)

// Stored field names.
const (
	fieldID                 = "_id"
	fieldEmail              = "email"
	fieldNormalizedEmail    = "normalizedEmail"
	fieldNormalizedUserName = "normalizedUserName"
	fieldNormalizedName     = "normalizedName"
	fieldAccessFailedCount  = "accessFailedCount"
	fieldDeletedOn          = "deletedOn"
	fieldClaims             = "claims"
	fieldClaimType          = "claimType"
	fieldClaimValue         = "claimValue"
	fieldLogins             = "logins"
	fieldLoginProvider      = "loginProvider"
	fieldProviderKey        = "providerKey"
	fieldInstant            = "instant"
)

// Index names created on the users collection.
const (
	IndexEmailUnique = "identity_email_unique"
	IndexLogins      = "identity_logins_loginProvider_providerKey"
)
