// Package idx generates the opaque string identifiers assigned to stored
// entities. Every generator yields ids that sort lexically by creation time.
package idx

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generator names accepted by ByName.
const (
	NameObjectID = "objectid"
	NameULID     = "ulid"
)

// Generator produces a new identifier on every call. Implementations are safe
// for concurrent use.
type Generator interface {
	NewID() string
}

// ObjectID renders a fresh BSON ObjectID as 24 hex characters.
type ObjectID struct{}

// NewID implements Generator.
func (ObjectID) NewID() string {
	return primitive.NewObjectID().Hex()
}

// ULID generates ULIDs from a monotonic entropy source, so ids created within
// the same millisecond still sort in creation order.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULID returns a ULID generator.
func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID implements Generator.
func (g *ULID) NewID() string {
	return g.NewAt(time.Now().UTC())
}

// NewAt generates an id for the given time.
func (g *ULID) NewAt(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// ByName returns the generator registered under name. An empty name selects
// ObjectID.
func ByName(name string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameObjectID:
		return ObjectID{}, nil
	case NameULID:
		return NewULID(), nil
	default:
		return nil, fmt.Errorf("idx: unknown id generator %q", name)
	}
}
