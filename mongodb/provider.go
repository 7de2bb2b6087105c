package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/internal/idx"
	"github.com/pilab-dev/identity-mongodb/internal/metrics"
	"github.com/pilab-dev/identity-mongodb/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Options tunes a Provider. The zero value selects the defaults.
type Options struct {
	ConnectTimeout  time.Duration
	UsersCollection string
	RolesCollection string
	IDGenerator     idx.Generator
	Normalizer      domain.LookupNormalizer
	Logger          log.Logger
	Metrics         *metrics.StoreMetrics
}

// Provider is the process-wide factory of user and role stores. All stores it
// creates share one Schema, so the mapping and each collection's indexes are
// set up once.
type Provider struct {
	client *mongo.Client
	db     *mongo.Database
	schema *Schema
	opts   Options
	logger log.Logger
}

// Connect dials uri and returns a Provider for the database dbName. The
// Provider owns the client; call Disconnect when done.
func Connect(ctx context.Context, uri, dbName string, opts Options) (*Provider, error) {
	if dbName == "" {
		return nil, errors.New("mongodb database name must be provided")
	}
	logger := log.OrNop(opts.Logger)

	client, err := newClient(ctx, uri, opts.ConnectTimeout, logger)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Using MongoDB database", log.Fields{"database": dbName})

	return newProvider(client, client.Database(dbName), opts), nil
}

// NewProvider wraps an already connected database.
func NewProvider(db *mongo.Database, opts Options) *Provider {
	return newProvider(db.Client(), db, opts)
}

func newProvider(client *mongo.Client, db *mongo.Database, opts Options) *Provider {
	if opts.UsersCollection == "" {
		opts.UsersCollection = DefaultUsersCollection
	}
	if opts.RolesCollection == "" {
		opts.RolesCollection = DefaultRolesCollection
	}
	logger := log.OrNop(opts.Logger)

	schemaOpts := []SchemaOption{WithSchemaLogger(logger), WithSchemaMetrics(opts.Metrics)}
	if opts.IDGenerator != nil {
		schemaOpts = append(schemaOpts, WithIDGenerator(opts.IDGenerator))
	}

	return &Provider{
		client: client,
		db:     db,
		schema: NewSchema(schemaOpts...),
		opts:   opts,
		logger: logger,
	}
}

// Database returns the database the stores are bound to.
func (p *Provider) Database() *mongo.Database {
	return p.db
}

// Schema returns the shared schema.
func (p *Provider) Schema() *Schema {
	return p.schema
}

func (p *Provider) storeOptions(collection string) []StoreOption {
	opts := []StoreOption{
		WithCollection(collection),
		WithLogger(p.logger),
		WithMetrics(p.opts.Metrics),
	}
	if p.opts.Normalizer != nil {
		opts = append(opts, WithNormalizer(p.opts.Normalizer))
	}
	return opts
}

// UserStore returns a user store. The first call for the database creates the
// user indexes.
func (p *Provider) UserStore(ctx context.Context) (*UserStore, error) {
	return NewUserStore(ctx, p.db, p.schema, p.storeOptions(p.opts.UsersCollection)...)
}

// RoleStore returns a role store. Without validators the store checks that
// role names are non-blank and unique.
func (p *Provider) RoleStore(ctx context.Context, validators ...domain.RoleValidator) (*RoleStore, error) {
	opts := p.storeOptions(p.opts.RolesCollection)
	if len(validators) > 0 {
		opts = append(opts, WithRoleValidators(validators...))
	}
	return NewRoleStore(ctx, p.db, p.schema, opts...)
}

// Migrate builds the mapping and creates every index the stores need.
func (p *Provider) Migrate(ctx context.Context) error {
	if _, err := p.UserStore(ctx); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if _, err := p.RoleStore(ctx); err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	return nil
}

// Ping checks the connection to the primary.
func (p *Provider) Ping(ctx context.Context) error {
	return ping(ctx, p.client)
}

// Disconnect closes the client.
func (p *Provider) Disconnect(ctx context.Context) error {
	if p.client == nil {
		return nil
	}
	p.logger.Info(ctx, "Closing MongoDB connection")
	return p.client.Disconnect(ctx)
}
