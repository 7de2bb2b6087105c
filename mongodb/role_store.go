package mongodb

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/internal/metrics"
	"github.com/pilab-dev/identity-mongodb/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const rolesStoreLabel = "roles"

// WithRoleValidators replaces the validators run before a role is written.
// Without this option a RoleStore checks that role names are non-blank and
// unique.
func WithRoleValidators(validators ...domain.RoleValidator) StoreOption {
	return func(c *storeConfig) {
		c.validators = append([]domain.RoleValidator{}, validators...)
	}
}

// RoleStore persists roles in MongoDB. Roles are removed for good on Delete.
//
// Unlike the user store, claim changes re-read the stored role and write it
// back; the role passed in is left untouched. Two concurrent claim changes on
// the same role can therefore lose one of the updates.
type RoleStore struct {
	docs       documents[domain.Role, *domain.Role]
	schema     *Schema
	normalizer domain.LookupNormalizer
	validators []domain.RoleValidator
	logger     log.Logger
	metrics    *metrics.StoreMetrics
}

var _ domain.RoleFinder = (*RoleStore)(nil)

// NewRoleStore binds a role store to db.
func NewRoleStore(ctx context.Context, db *mongo.Database, schema *Schema, opts ...StoreOption) (*RoleStore, error) {
	if db == nil {
		return nil, domain.ArgumentRequired("database")
	}
	if schema == nil {
		return nil, domain.ArgumentRequired("schema")
	}
	cfg := newStoreConfig(DefaultRolesCollection, opts)

	coll, err := schema.Collection(ctx, db, cfg.collection)
	if err != nil {
		return nil, err
	}

	s := &RoleStore{
		docs:       documents[domain.Role, *domain.Role]{coll: coll, notFound: domain.ErrRoleNotFound},
		schema:     schema,
		normalizer: cfg.normalizer,
		validators: cfg.validators,
		logger:     cfg.logger.With(log.Fields{"store": rolesStoreLabel, "collection": cfg.collection}),
		metrics:    cfg.metrics,
	}
	if s.validators == nil {
		s.validators = []domain.RoleValidator{domain.NewRoleNameValidator(s, s.normalizer)}
	}
	return s, nil
}

// Collection returns the underlying collection.
func (s *RoleStore) Collection() *mongo.Collection {
	return s.docs.coll
}

func (s *RoleStore) record(op string, err error) {
	switch {
	case err == nil:
		s.metrics.Observe(rolesStoreLabel, op, metrics.OutcomeSuccess)
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.Observe(rolesStoreLabel, op, metrics.OutcomeNotFound)
	default:
		s.metrics.Observe(rolesStoreLabel, op, metrics.OutcomeError)
	}
}

func requireRole(role *domain.Role) error {
	if role == nil {
		return domain.ArgumentRequired("role")
	}
	return nil
}

// validate runs every validator and merges their failures.
func (s *RoleStore) validate(ctx context.Context, op string, role *domain.Role) domain.Result {
	var errs []domain.ResultError
	for _, v := range s.validators {
		if res := v.Validate(ctx, role); !res.Succeeded {
			errs = append(errs, res.Errors...)
		}
	}
	if len(errs) == 0 {
		return domain.Success()
	}

	res := domain.Failed(errs...)
	s.metrics.Observe(rolesStoreLabel, op, metrics.OutcomeFailure)
	s.logger.Warn(ctx, "Role validation failed", log.Fields{"role": role.Name, "operation": op, "codes": res.Codes()})
	return res
}

// Create validates role, fills its lookup key and identifier and inserts it.
func (s *RoleStore) Create(ctx context.Context, role *domain.Role) (domain.Result, error) {
	if err := requireRole(role); err != nil {
		return domain.Result{}, err
	}
	if res := s.validate(ctx, "create", role); !res.Succeeded {
		return res, nil
	}

	s.updateNormalizedName(role)
	if role.ID == "" {
		role.ID = s.schema.NewID()
	}

	if err := s.docs.insert(ctx, role); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.metrics.Observe(rolesStoreLabel, "create", metrics.OutcomeConflict)
			return domain.Failed(domain.ResultError{
				Code:        domain.CodeDuplicateKey,
				Description: fmt.Sprintf("role '%s' already exists", role.ID),
			}), nil
		}
		s.record("create", err)
		s.logger.Error(ctx, "Error creating role", err, log.Fields{"role": role.Name})
		return domain.Result{}, err
	}

	s.record("create", nil)
	return domain.Success(), nil
}

// Update validates role and replaces the stored document. A role that no
// longer exists yields a concurrency failure.
func (s *RoleStore) Update(ctx context.Context, role *domain.Role) (domain.Result, error) {
	if err := requireRole(role); err != nil {
		return domain.Result{}, err
	}
	if err := requireKey("role id", role.ID); err != nil {
		return domain.Result{}, err
	}
	if res := s.validate(ctx, "update", role); !res.Succeeded {
		return res, nil
	}

	s.updateNormalizedName(role)
	return s.replace(ctx, "update", role)
}

func (s *RoleStore) replace(ctx context.Context, op string, role *domain.Role) (domain.Result, error) {
	ok, err := s.docs.replace(ctx, byID(role.ID), role)
	if err != nil {
		s.record(op, err)
		s.logger.Error(ctx, "Error replacing role", err, log.Fields{"id": role.ID, "operation": op})
		return domain.Result{}, err
	}
	if !ok {
		s.metrics.Observe(rolesStoreLabel, op, metrics.OutcomeConflict)
		s.logger.Warn(ctx, "Role replace matched no document", log.Fields{"id": role.ID, "operation": op})
		return domain.ConcurrencyFailure(), nil
	}
	s.record(op, nil)
	return domain.Success(), nil
}

// Delete removes role.
func (s *RoleStore) Delete(ctx context.Context, role *domain.Role) (domain.Result, error) {
	if err := requireRole(role); err != nil {
		return domain.Result{}, err
	}
	if err := requireKey("role id", role.ID); err != nil {
		return domain.Result{}, err
	}

	ok, err := s.docs.deleteOne(ctx, byID(role.ID))
	if err != nil {
		s.record("delete", err)
		s.logger.Error(ctx, "Error deleting role", err, log.Fields{"id": role.ID})
		return domain.Result{}, err
	}
	if !ok {
		s.metrics.Observe(rolesStoreLabel, "delete", metrics.OutcomeNotFound)
		return domain.ConcurrencyFailure(), nil
	}
	s.record("delete", nil)
	return domain.Success(), nil
}

// FindByID returns the role with id or ErrRoleNotFound.
func (s *RoleStore) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	if err := requireKey("role id", id); err != nil {
		return nil, err
	}
	role, err := s.docs.findOne(ctx, byID(id))
	s.record("find_by_id", err)
	return role, err
}

// FindByName returns the role with the given normalized name or
// ErrRoleNotFound.
func (s *RoleStore) FindByName(ctx context.Context, normalizedName string) (*domain.Role, error) {
	if err := requireKey("normalized role name", normalizedName); err != nil {
		return nil, err
	}
	role, err := s.docs.findOne(ctx, eq(fieldNormalizedName, normalizedName))
	s.record("find_by_name", err)
	return role, err
}

// List returns every role ordered by normalized name.
func (s *RoleStore) List(ctx context.Context) ([]*domain.Role, error) {
	roles, err := s.docs.findMany(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: fieldNormalizedName, Value: 1}}))
	s.record("list", err)
	return roles, err
}

func (s *RoleStore) RoleID(role *domain.Role) (string, error) {
	if err := requireRole(role); err != nil {
		return "", err
	}
	return role.ID, nil
}

func (s *RoleStore) RoleName(role *domain.Role) (string, error) {
	if err := requireRole(role); err != nil {
		return "", err
	}
	return role.Name, nil
}

func (s *RoleStore) SetRoleName(role *domain.Role, name string) error {
	if err := requireRole(role); err != nil {
		return err
	}
	role.Name = name
	return nil
}

func (s *RoleStore) NormalizedRoleName(role *domain.Role) (string, error) {
	if err := requireRole(role); err != nil {
		return "", err
	}
	return role.NormalizedName, nil
}

func (s *RoleStore) SetNormalizedRoleName(role *domain.Role, normalizedName string) error {
	if err := requireRole(role); err != nil {
		return err
	}
	role.SetNormalizedName(normalizedName)
	return nil
}

// UpdateNormalizedRoleName recomputes the lookup key from the role name.
func (s *RoleStore) UpdateNormalizedRoleName(role *domain.Role) error {
	if err := requireRole(role); err != nil {
		return err
	}
	s.updateNormalizedName(role)
	return nil
}

func (s *RoleStore) updateNormalizedName(role *domain.Role) {
	role.SetNormalizedName(s.normalizer.NormalizeName(role.Name))
}

// Claims returns the claims of the stored copy of role.
func (s *RoleStore) Claims(ctx context.Context, role *domain.Role) ([]domain.Claim, error) {
	stored, err := s.stored(ctx, role)
	if err != nil {
		return nil, err
	}
	return slices.Clone(stored.Claims), nil
}

// AddClaim appends claim to the stored copy of role and writes it back.
func (s *RoleStore) AddClaim(ctx context.Context, role *domain.Role, claim domain.Claim) (domain.Result, error) {
	if err := requireClaim(claim); err != nil {
		return domain.Result{}, err
	}
	stored, err := s.stored(ctx, role)
	if err != nil {
		return domain.Result{}, err
	}

	stored.AddClaim(claim)
	return s.replace(ctx, "add_claim", stored)
}

// RemoveClaim removes claim from the stored copy of role and writes it back.
// Removing a claim the role does not hold succeeds without a write.
func (s *RoleStore) RemoveClaim(ctx context.Context, role *domain.Role, claim domain.Claim) (domain.Result, error) {
	if err := requireClaim(claim); err != nil {
		return domain.Result{}, err
	}
	stored, err := s.stored(ctx, role)
	if err != nil {
		return domain.Result{}, err
	}

	if !stored.RemoveClaim(claim) {
		return domain.Success(), nil
	}
	return s.replace(ctx, "remove_claim", stored)
}

func (s *RoleStore) stored(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	if err := requireRole(role); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, role.ID)
}
