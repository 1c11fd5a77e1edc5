package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Feedback is a public submission. Email is kept for moderation but never
// serialized back out; the json tag enforces that at the type level.
type Feedback struct {
	ID       string    `json:"id" bson:"-"`
	Name     string    `json:"name" bson:"name"`
	Email    string    `json:"-" bson:"email"`
	Message  string    `json:"message" bson:"message"`
	Rating   int       `json:"rating" bson:"rating"`
	Date     time.Time `json:"date" bson:"date"`
	Approved bool      `json:"approved" bson:"approved"`
}

type FeedbackStore struct {
	coll *mongo.Collection
}

func (m *Mongo) Feedback() *FeedbackStore {
	return &FeedbackStore{coll: m.db.Collection(feedbackCollection)}
}

func (s *FeedbackStore) Insert(ctx context.Context, f *Feedback) (string, error) {
	res, err := s.coll.InsertOne(ctx, f)
	if err != nil {
		return "", err
	}
	oid := res.InsertedID.(primitive.ObjectID)
	f.ID = oid.Hex()
	return f.ID, nil
}

// List returns all feedback, newest first.
func (s *FeedbackStore) List(ctx context.Context) ([]Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Feedback
	for cur.Next(ctx) {
		var doc struct {
			ID       primitive.ObjectID `bson:"_id"`
			Feedback `bson:",inline"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		f := doc.Feedback
		f.ID = doc.ID.Hex()
		out = append(out, f)
	}
	return out, cur.Err()
}
