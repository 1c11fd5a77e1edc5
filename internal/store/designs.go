package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid document id")
)

// WallDesign is the user's current canvas. The wall payloads are opaque to
// the backend; the frontend owns their shape.
type WallDesign struct {
	ID             string                 `json:"id" bson:"-"`
	UserID         string                 `json:"-" bson:"user_id"`
	Walls          map[string]interface{} `json:"wallDesigns" bson:"wall_designs"`
	RoomType       string                 `json:"roomType" bson:"room_type"`
	RoomDimensions map[string]interface{} `json:"roomDimensions" bson:"room_dimensions"`
	SelectedWall   string                 `json:"selectedWall" bson:"selected_wall"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" bson:"updated_at"`
}

// DesignSession is a named snapshot a user can save and reload.
type DesignSession struct {
	ID             string                 `json:"id" bson:"-"`
	UserID         string                 `json:"-" bson:"user_id"`
	Name           string                 `json:"session_name" bson:"session_name"`
	RoomType       string                 `json:"room_type" bson:"room_type"`
	RoomDimensions map[string]interface{} `json:"room_dimensions" bson:"room_dimensions"`
	WallDesigns    map[string]interface{} `json:"wall_designs" bson:"wall_designs"`
	SelectedWall   string                 `json:"selected_wall" bson:"selected_wall"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" bson:"updated_at"`
}

type DesignStore struct {
	designs  *mongo.Collection
	sessions *mongo.Collection
}

func (m *Mongo) Designs() *DesignStore {
	return &DesignStore{
		designs:  m.db.Collection(wallDesignsCollection),
		sessions: m.db.Collection(sessionsCollection),
	}
}

// LatestWallDesign returns the most recent canvas for the user, or
// (nil, nil) when none has been saved yet.
func (s *DesignStore) LatestWallDesign(ctx context.Context, userID string) (*WallDesign, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc struct {
		ID         primitive.ObjectID `bson:"_id"`
		WallDesign `bson:",inline"`
	}
	err := s.designs.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d := doc.WallDesign
	d.ID = doc.ID.Hex()
	return &d, nil
}

func (s *DesignStore) SaveWallDesign(ctx context.Context, d *WallDesign) (string, error) {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	res, err := s.designs.InsertOne(ctx, d)
	if err != nil {
		return "", err
	}
	oid := res.InsertedID.(primitive.ObjectID)
	d.ID = oid.Hex()
	return d.ID, nil
}

func (s *DesignStore) ListSessions(ctx context.Context, userID string) ([]DesignSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.sessions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []DesignSession
	for cur.Next(ctx) {
		var doc struct {
			ID            primitive.ObjectID `bson:"_id"`
			DesignSession `bson:",inline"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ds := doc.DesignSession
		ds.ID = doc.ID.Hex()
		out = append(out, ds)
	}
	return out, cur.Err()
}

func (s *DesignStore) CreateSession(ctx context.Context, ds *DesignSession) (string, error) {
	now := time.Now().UTC()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	res, err := s.sessions.InsertOne(ctx, ds)
	if err != nil {
		return "", err
	}
	oid := res.InsertedID.(primitive.ObjectID)
	ds.ID = oid.Hex()
	return ds.ID, nil
}

// GetSession is owner-scoped; another user's session reads as not found.
func (s *DesignStore) GetSession(ctx context.Context, userID, id string) (*DesignSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var doc struct {
		ID            primitive.ObjectID `bson:"_id"`
		DesignSession `bson:",inline"`
	}
	err = s.sessions.FindOne(ctx, bson.M{"_id": oid, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	ds := doc.DesignSession
	ds.ID = doc.ID.Hex()
	return &ds, nil
}

func (s *DesignStore) UpdateSession(ctx context.Context, userID, id string, ds *DesignSession) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	update := bson.M{"$set": bson.M{
		"session_name":    ds.Name,
		"room_type":       ds.RoomType,
		"room_dimensions": ds.RoomDimensions,
		"wall_designs":    ds.WallDesigns,
		"selected_wall":   ds.SelectedWall,
		"updated_at":      time.Now().UTC(),
	}}

	res, err := s.sessions.UpdateOne(ctx, bson.M{"_id": oid, "user_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DesignStore) DeleteSession(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	res, err := s.sessions.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessionsByUser removes all design sessions owned by the user; used
// when an admin deletes the account.
func (s *DesignStore) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := s.sessions.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
