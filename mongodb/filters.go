package mongodb

import "go.mongodb.org/mongo-driver/bson"

func eq(field string, value interface{}) bson.D {
	return bson.D{{Key: field, Value: value}}
}

func byID(id string) bson.D {
	return eq(fieldID, id)
}

// and joins filters with $and. A single filter is returned unchanged.
func and(filters ...bson.D) bson.D {
	if len(filters) == 1 {
		return filters[0]
	}
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, f)
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

// notDeleted matches documents without a deletion marker. Equality with null
// also matches a missing field.
func notDeleted() bson.D {
	return eq(fieldDeletedOn, nil)
}

// active restricts filter to documents that have not been soft-deleted.
func active(filter bson.D) bson.D {
	return and(filter, notDeleted())
}

// elemMatch requires one element of the array field to satisfy every
// condition at once.
func elemMatch(field string, conds ...bson.D) bson.D {
	merged := bson.D{}
	for _, c := range conds {
		merged = append(merged, c...)
	}
	return bson.D{{Key: field, Value: bson.D{{Key: "$elemMatch", Value: merged}}}}
}

func increment(field string, by int) bson.D {
	return bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: by}}}}
}

func set(field string, value interface{}) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}}
}

func projection(fields ...string) bson.D {
	p := bson.D{}
	for _, f := range fields {
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}
