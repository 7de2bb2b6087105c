package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/identity-mongodb/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entity is the constraint of the generic document layer: a pointer to a
// stored struct that knows its identifier.
type entity[T any] interface {
	*T
	domain.Identified
}

// documents wraps one collection of T. Every method checks ctx before any
// I/O and hands it to the driver.
type documents[T any, PT entity[T]] struct {
	coll     *mongo.Collection
	notFound error
}

func (d documents[T, PT]) findOne(ctx context.Context, filter bson.D, opts ...*options.FindOneOptions) (PT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc T
	if err := d.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, d.notFound
		}
		return nil, fmt.Errorf("find in %s: %w", d.coll.Name(), err)
	}
	return PT(&doc), nil
}

func (d documents[T, PT]) findMany(ctx context.Context, filter bson.D, opts ...*options.FindOptions) ([]PT, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cursor, err := d.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", d.coll.Name(), err)
	}
	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode from %s: %w", d.coll.Name(), err)
	}

	out := make([]PT, len(docs))
	for i := range docs {
		out[i] = PT(&docs[i])
	}
	return out, nil
}

func (d documents[T, PT]) insert(ctx context.Context, doc PT) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hydrate(doc)

	if _, err := d.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", d.coll.Name(), err)
	}
	return nil
}

// replace overwrites the single document matching filter without upserting.
// It reports whether a document matched; an unchanged document still counts.
func (d documents[T, PT]) replace(ctx context.Context, filter bson.D, doc PT) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	hydrate(doc)

	res, err := d.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(false))
	if err != nil {
		return false, fmt.Errorf("replace in %s: %w", d.coll.Name(), err)
	}
	return res.MatchedCount == 1, nil
}

func (d documents[T, PT]) updateOne(ctx context.Context, filter, update bson.D) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	res, err := d.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update in %s: %w", d.coll.Name(), err)
	}
	return res.MatchedCount == 1, nil
}

// findOneAndUpdate applies update atomically and decodes the document as it is
// after the update into out.
func (d documents[T, PT]) findOneAndUpdate(ctx context.Context, filter, update bson.D, out interface{}, fields ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if len(fields) > 0 {
		opts.SetProjection(projection(fields...))
	}
	if err := d.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return d.notFound
		}
		return fmt.Errorf("find and update in %s: %w", d.coll.Name(), err)
	}
	return nil
}

func (d documents[T, PT]) deleteOne(ctx context.Context, filter bson.D) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	res, err := d.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", d.coll.Name(), err)
	}
	return res.DeletedCount == 1, nil
}

func (d documents[T, PT]) count(ctx context.Context, filter bson.D) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := d.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count in %s: %w", d.coll.Name(), err)
	}
	return n, nil
}

// hydrate restores non-nil collections before a write so arrays are stored as
// empty arrays rather than null.
func hydrate(doc interface{}) {
	if h, ok := doc.(domain.Hydrator); ok {
		h.Hydrate()
	}
}
