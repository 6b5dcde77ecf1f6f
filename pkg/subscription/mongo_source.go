package subscription

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// PlansCollection is the Mongo collection holding the plan catalog.
const PlansCollection = "subscriptionplans"

type mongoSource struct {
	coll *mongo.Collection
}

// NewMongoSource returns a PlansSource reading the catalog from the
// database. Plans are seeded out of band (see cmd/seedplans); the
// service only ever reads them.
func NewMongoSource(db *mongo.Database) PlansSource {
	return &mongoSource{coll: db.Collection(PlansCollection)}
}

func (s *mongoSource) Load(ctx context.Context) ([]Plan, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer cursor.Close(ctx)

	var plans []Plan
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	return plans, nil
}
