package user

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

// Collection is the MongoDB collection holding user documents.
const Collection = "users"

// Store persists users and implements subscription.RecordStore and
// subscription.ProfileSource over the same collection.
type Store struct {
	coll *mongo.Collection
}

// NewStore creates a store over the given database.
func NewStore(db *mongo.Database) *Store {
	if db == nil {
		panic("user: database is required")
	}
	return &Store{coll: db.Collection(Collection)}
}

// EnsureIndexes creates the unique mobile number index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mobileNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new user. Returns ErrMobileAlreadyRegistered when
// the mobile number is taken.
func (s *Store) Create(ctx context.Context, u *User) error {
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrMobileAlreadyRegistered
		}
		return err
	}
	return nil
}

// ByID fetches a user by id.
func (s *Store) ByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// ByMobile fetches a user by normalized mobile number.
func (s *Store) ByMobile(ctx context.Context, mobile string) (*User, error) {
	return s.findOne(ctx, bson.M{"mobileNumber": mobile})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, subscription.ErrUserNotFound
		}
		return nil, err
	}
	u.Record.UserID = u.ID
	return &u, nil
}

// ProfileByMobile implements subscription.ProfileSource.
func (s *Store) ProfileByMobile(ctx context.Context, mobile string) (*subscription.Profile, error) {
	u, err := s.ByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	return &subscription.Profile{
		UserID:   u.ID,
		FullName: u.FullName,
		Mobile:   u.Mobile,
		Email:    u.Record.Email,
	}, nil
}

// ByUser implements subscription.RecordStore.
func (s *Store) ByUser(ctx context.Context, userID string) (*subscription.Record, error) {
	u, err := s.ByID(ctx, userID)
	if err != nil {
		return nil, recordErr(err)
	}
	rec := u.Record
	return &rec, nil
}

// BySubscriptionID implements subscription.RecordStore.
func (s *Store) BySubscriptionID(ctx context.Context, subscriptionID string) (*subscription.Record, error) {
	u, err := s.findOne(ctx, bson.M{"subscriptionId": subscriptionID})
	if err != nil {
		return nil, recordErr(err)
	}
	rec := u.Record
	return &rec, nil
}

// Update implements subscription.RecordStore with compare-and-set on
// the record version. The filter pins both the user id and the version
// read by the caller; a missed match with an existing user means a
// concurrent writer won.
func (s *Store) Update(ctx context.Context, record *subscription.Record) error {
	filter := bson.M{
		"_id":                 record.UserID,
		"subscriptionVersion": record.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"subscriptionActive": record.Active,
			"subscriptionStatus": record.Status,
			"subscriptionExpiry": record.Expiry,
			"subscriptionId":     record.SubscriptionID,
			"hasUsedTrial":       record.HasUsedTrial,
			"planType":           record.PlanType,
			"planName":           record.PlanName,
			"planPrice":          record.PlanPrice,
			"paymentId":          record.PaymentID,
			"email":              record.Email,
			"lastEventId":        record.LastEventID,
		},
		"$inc": bson.M{"subscriptionVersion": 1},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if exists, err := s.exists(ctx, record.UserID); err != nil {
			return err
		} else if exists {
			return subscription.ErrVersionConflict
		}
		return subscription.ErrRecordNotFound
	}

	record.Version++
	return nil
}

func (s *Store) exists(ctx context.Context, userID string) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordErr(err error) error {
	if errors.Is(err, subscription.ErrUserNotFound) {
		return subscription.ErrRecordNotFound
	}
	return err
}

// Touch is a convenience for handlers that loaded a full user, mutated
// its record through a subscription helper and need the write-back to
// go through the same CAS path.
func (s *Store) Touch(ctx context.Context, u *User, now time.Time) error {
	if !u.Record.RefreshActive(now) {
		return nil
	}
	u.Record.UserID = u.ID
	return s.Update(ctx, &u.Record)
}
