package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/pilab-dev/identity-mongodb/internal/idx"
	"github.com/pilab-dev/identity-mongodb/internal/lazy"
	"github.com/pilab-dev/identity-mongodb/internal/metrics"
	"github.com/pilab-dev/identity-mongodb/log"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Schema owns the one-time setup shared by every store built from the same
// Provider: the BSON registry and the index bootstrap of each collection.
// A Schema is safe for concurrent use.
type Schema struct {
	ids     idx.Generator
	logger  log.Logger
	metrics *metrics.StoreMetrics

	registry *lazy.Value[*bsoncodec.Registry]

	mu      sync.Mutex
	indexes map[string]*lazy.Value[struct{}]
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithIDGenerator sets the generator used for new entity ids.
func WithIDGenerator(g idx.Generator) SchemaOption {
	return func(s *Schema) { s.ids = g }
}

// WithSchemaLogger sets the logger used for bootstrap messages.
func WithSchemaLogger(l log.Logger) SchemaOption {
	return func(s *Schema) { s.logger = l }
}

// WithSchemaMetrics records failed bootstrap attempts.
func WithSchemaMetrics(m *metrics.StoreMetrics) SchemaOption {
	return func(s *Schema) { s.metrics = m }
}

// NewSchema returns a Schema with ObjectID identifiers unless configured
// otherwise.
func NewSchema(opts ...SchemaOption) *Schema {
	s := &Schema{
		ids:     idx.ObjectID{},
		indexes: make(map[string]*lazy.Value[struct{}]),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrNop(s.logger)

	s.registry = lazy.New(func(ctx context.Context) (*bsoncodec.Registry, error) {
		reg, err := buildRegistry()
		if err != nil {
			s.metrics.InitFailed("registry")
			return nil, err
		}
		s.logger.Debug(ctx, "BSON registry built")
		return reg, nil
	})
	return s
}

// NewID returns a fresh entity identifier.
func (s *Schema) NewID() string {
	return s.ids.NewID()
}

// Registry returns the BSON registry, building it on first use.
func (s *Schema) Registry(ctx context.Context) (*bsoncodec.Registry, error) {
	return s.registry.Get(ctx)
}

// Collection returns the named collection bound to the schema's registry.
func (s *Schema) Collection(ctx context.Context, db *mongo.Database, name string) (*mongo.Collection, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, fmt.Errorf("bson registry: %w", err)
	}
	return db.Collection(name, options.Collection().SetRegistry(reg)), nil
}

// EnsureIndexes creates models on coll exactly once per namespace for the
// lifetime of the Schema. A failed attempt is returned to every caller
// waiting on it and retried by the next call.
func (s *Schema) EnsureIndexes(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	ns := coll.Database().Name() + "." + coll.Name()

	s.mu.Lock()
	once, ok := s.indexes[ns]
	if !ok {
		once = lazy.New(func(ctx context.Context) (struct{}, error) {
			names, err := coll.Indexes().CreateMany(ctx, models)
			if err != nil {
				s.metrics.InitFailed("indexes")
				s.logger.Error(ctx, "Failed to create indexes", err, log.Fields{"namespace": ns})
				return struct{}{}, fmt.Errorf("create indexes on %s: %w", ns, err)
			}
			s.logger.Info(ctx, "Indexes ensured", log.Fields{"namespace": ns, "indexes": names})
			return struct{}{}, nil
		})
		s.indexes[ns] = once
	}
	s.mu.Unlock()

	_, err := once.Get(ctx)
	return err
}

// IndexesReady reports whether index creation has completed for the
// namespace db.collection.
func (s *Schema) IndexesReady(namespace string) bool {
	s.mu.Lock()
	once, ok := s.indexes[namespace]
	s.mu.Unlock()

	return ok && once.Done()
}
