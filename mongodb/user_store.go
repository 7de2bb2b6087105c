package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/internal/metrics"
	"github.com/pilab-dev/identity-mongodb/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersStoreLabel = "users"

// StoreOption configures a UserStore or a RoleStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	collection string
	normalizer domain.LookupNormalizer
	logger     log.Logger
	metrics    *metrics.StoreMetrics
	validators []domain.RoleValidator
}

// WithCollection overrides the default collection name.
func WithCollection(name string) StoreOption {
	return func(c *storeConfig) { c.collection = name }
}

// WithNormalizer sets the normalizer used to fill lookup keys.
func WithNormalizer(n domain.LookupNormalizer) StoreOption {
	return func(c *storeConfig) { c.normalizer = n }
}

// WithLogger sets the store logger.
func WithLogger(l log.Logger) StoreOption {
	return func(c *storeConfig) { c.logger = l }
}

// WithMetrics enables operation counters.
func WithMetrics(m *metrics.StoreMetrics) StoreOption {
	return func(c *storeConfig) { c.metrics = m }
}

func newStoreConfig(defaultCollection string, opts []StoreOption) storeConfig {
	cfg := storeConfig{collection: defaultCollection}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.normalizer == nil {
		cfg.normalizer = domain.UpperInvariantNormalizer{}
	}
	cfg.logger = log.OrNop(cfg.logger)
	return cfg
}

// userBackend is the storage state shared by the user store components.
type userBackend struct {
	docs       documents[domain.User, *domain.User]
	schema     *Schema
	normalizer domain.LookupNormalizer
	logger     log.Logger
	metrics    *metrics.StoreMetrics
}

func (b *userBackend) record(op string, err error) {
	switch {
	case err == nil:
		b.metrics.Observe(usersStoreLabel, op, metrics.OutcomeSuccess)
	case errors.Is(err, domain.ErrNotFound):
		b.metrics.Observe(usersStoreLabel, op, metrics.OutcomeNotFound)
	default:
		b.metrics.Observe(usersStoreLabel, op, metrics.OutcomeError)
	}
}

func (b *userBackend) findOne(ctx context.Context, op string, filter bson.D) (*domain.User, error) {
	user, err := b.docs.findOne(ctx, filter)
	b.record(op, err)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		b.logger.Error(ctx, "User lookup failed", err, log.Fields{"operation": op})
	}
	return user, err
}

func (b *userBackend) findMany(ctx context.Context, op string, filter bson.D) ([]*domain.User, error) {
	users, err := b.docs.findMany(ctx, filter)
	b.record(op, err)
	if err != nil {
		b.logger.Error(ctx, "User query failed", err, log.Fields{"operation": op})
	}
	return users, err
}

func requireUser(user *domain.User) error {
	if user == nil {
		return domain.ArgumentRequired("user")
	}
	return nil
}

func requireKey(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.ArgumentRequired(name)
	}
	return nil
}

// UserStore persists users in MongoDB.
//
// Only Create, Update, Delete, Purge, the Find methods, Count, UsersForClaim
// and IncrementAccessFailedCount reach the database. Every other method
// mutates or reads the given *domain.User in memory; the change is persisted
// by the next Update.
type UserStore struct {
	userClaims
	userLogins
	userProfile
	userLockout
	userTwoFactor
	userRoles

	backend *userBackend
}

// NewUserStore binds a store to db. It blocks until the schema registry is
// built and the user indexes exist, so it fails when the database is not
// reachable.
func NewUserStore(ctx context.Context, db *mongo.Database, schema *Schema, opts ...StoreOption) (*UserStore, error) {
	if db == nil {
		return nil, domain.ArgumentRequired("database")
	}
	if schema == nil {
		return nil, domain.ArgumentRequired("schema")
	}
	cfg := newStoreConfig(DefaultUsersCollection, opts)

	coll, err := schema.Collection(ctx, db, cfg.collection)
	if err != nil {
		return nil, err
	}
	if err := schema.EnsureIndexes(ctx, coll, userIndexes()); err != nil {
		return nil, err
	}

	b := &userBackend{
		docs:       documents[domain.User, *domain.User]{coll: coll, notFound: domain.ErrUserNotFound},
		schema:     schema,
		normalizer: cfg.normalizer,
		logger:     cfg.logger.With(log.Fields{"store": usersStoreLabel, "collection": cfg.collection}),
		metrics:    cfg.metrics,
	}

	return &UserStore{
		userClaims:    userClaims{b},
		userLogins:    userLogins{b},
		userProfile:   userProfile{b},
		userLockout:   userLockout{b},
		userTwoFactor: userTwoFactor{},
		userRoles:     userRoles{},
		backend:       b,
	}, nil
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// Users without an email are not indexed, so any number of them
			// can coexist.
			Keys: bson.D{{Key: fieldEmail, Value: 1}},
			Options: options.Index().
				SetName(IndexEmailUnique).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: fieldEmail, Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
		{
			Keys: bson.D{
				{Key: fieldLogins + "." + fieldLoginProvider, Value: 1},
				{Key: fieldLogins + "." + fieldProviderKey, Value: 1},
			},
			Options: options.Index().SetName(IndexLogins),
		},
	}
}

// Collection returns the underlying collection.
func (s *UserStore) Collection() *mongo.Collection {
	return s.backend.docs.coll
}

// Create inserts user. An empty ID is assigned from the schema's generator
// and empty lookup keys are filled with the normalizer. A duplicate email or
// id yields a failed Result with code DuplicateKey.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (domain.Result, error) {
	if err := requireUser(user); err != nil {
		return domain.Result{}, err
	}
	b := s.backend

	if user.ID == "" {
		user.ID = b.schema.NewID()
	}
	if user.NormalizedUserName == "" {
		user.NormalizedUserName = b.normalizer.NormalizeName(user.UserName)
	}
	if user.NormalizedEmail == "" && user.Email != "" {
		user.NormalizedEmail = b.normalizer.NormalizeEmail(user.Email)
	}
	if user.CreatedOn.Instant.IsZero() {
		user.CreatedOn = domain.NewOccurrence()
	}

	if err := b.docs.insert(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			b.metrics.Observe(usersStoreLabel, "create", metrics.OutcomeConflict)
			b.logger.Warn(ctx, "Duplicate user rejected", log.Fields{"id": user.ID, "userName": user.UserName})
			return domain.Failed(domain.ResultError{
				Code:        domain.CodeDuplicateKey,
				Description: fmt.Sprintf("user '%s' or its email already exists", user.UserName),
			}), nil
		}
		b.record("create", err)
		b.logger.Error(ctx, "Error creating user", err, log.Fields{"id": user.ID})
		return domain.Result{}, err
	}

	b.record("create", nil)
	return domain.Success(), nil
}

// Update replaces the stored document of user, as long as it still exists and
// has not been deleted. Zero matches are reported as a concurrency failure.
func (s *UserStore) Update(ctx context.Context, user *domain.User) (domain.Result, error) {
	if err := requireUser(user); err != nil {
		return domain.Result{}, err
	}
	if err := requireKey("user id", user.ID); err != nil {
		return domain.Result{}, err
	}
	b := s.backend

	ok, err := b.docs.replace(ctx, active(byID(user.ID)), user)
	if err != nil {
		b.record("update", err)
		b.logger.Error(ctx, "Error updating user", err, log.Fields{"id": user.ID})
		return domain.Result{}, err
	}
	if !ok {
		b.metrics.Observe(usersStoreLabel, "update", metrics.OutcomeConflict)
		b.logger.Warn(ctx, "User update matched no document", log.Fields{"id": user.ID})
		return domain.ConcurrencyFailure(), nil
	}

	b.record("update", nil)
	return domain.Success(), nil
}

// Delete soft-deletes user: the stored document gets a deletion marker and
// disappears from every lookup. The marker is set on user only once the
// database accepted it. Deleting a deleted user fails with ErrAlreadyDeleted.
func (s *UserStore) Delete(ctx context.Context, user *domain.User) (domain.Result, error) {
	if err := requireUser(user); err != nil {
		return domain.Result{}, err
	}
	if user.IsDeleted() {
		return domain.Result{}, fmt.Errorf("user '%s': %w", user.ID, domain.ErrAlreadyDeleted)
	}
	b := s.backend

	at := domain.NewOccurrence()
	ok, err := b.docs.updateOne(ctx, active(byID(user.ID)), set(fieldDeletedOn, at))
	if err != nil {
		b.record("delete", err)
		b.logger.Error(ctx, "Error deleting user", err, log.Fields{"id": user.ID})
		return domain.Result{}, err
	}
	if !ok {
		b.metrics.Observe(usersStoreLabel, "delete", metrics.OutcomeConflict)
		b.logger.Warn(ctx, "User delete matched no document", log.Fields{"id": user.ID})
		return domain.ConcurrencyFailure(), nil
	}

	if err := user.MarkDeleted(at); err != nil {
		return domain.Result{}, err
	}
	b.record("delete", nil)
	return domain.Success(), nil
}

// Purge physically removes the user with the given id, whether or not it was
// soft-deleted.
func (s *UserStore) Purge(ctx context.Context, id string) (domain.Result, error) {
	if err := requireKey("user id", id); err != nil {
		return domain.Result{}, err
	}
	b := s.backend

	ok, err := b.docs.deleteOne(ctx, byID(id))
	if err != nil {
		b.record("purge", err)
		b.logger.Error(ctx, "Error purging user", err, log.Fields{"id": id})
		return domain.Result{}, err
	}
	if !ok {
		b.metrics.Observe(usersStoreLabel, "purge", metrics.OutcomeNotFound)
		return domain.ConcurrencyFailure(), nil
	}

	b.record("purge", nil)
	b.logger.Info(ctx, "User purged", log.Fields{"id": id})
	return domain.Success(), nil
}

// FindByID returns the active user with id or ErrUserNotFound.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := requireKey("user id", id); err != nil {
		return nil, err
	}
	return s.backend.findOne(ctx, "find_by_id", active(byID(id)))
}

// FindByName returns the active user with the given normalized user name.
func (s *UserStore) FindByName(ctx context.Context, normalizedUserName string) (*domain.User, error) {
	if err := requireKey("normalized user name", normalizedUserName); err != nil {
		return nil, err
	}
	return s.backend.findOne(ctx, "find_by_name", active(eq(fieldNormalizedUserName, normalizedUserName)))
}

// Count returns the number of users that have not been deleted.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	n, err := s.backend.docs.count(ctx, notDeleted())
	s.backend.record("count", err)
	return n, err
}

// UserID returns the identifier of user.
func (s *UserStore) UserID(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// UserName returns the user name of user.
func (s *UserStore) UserName(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.UserName, nil
}

// SetUserName always fails: the user name is fixed at creation.
func (s *UserStore) SetUserName(_ *domain.User, _ string) error {
	return fmt.Errorf("changing the user name: %w", domain.ErrNotSupported)
}

// NormalizedUserName returns the lookup key of the user name.
func (s *UserStore) NormalizedUserName(user *domain.User) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}
	return user.NormalizedUserName, nil
}

// SetNormalizedUserName sets the lookup key of the user name.
func (s *UserStore) SetNormalizedUserName(user *domain.User, normalizedName string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if err := requireKey("normalized user name", normalizedName); err != nil {
		return err
	}
	user.SetNormalizedName(normalizedName)
	return nil
}
