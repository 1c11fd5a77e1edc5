package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"altarmaker/internal/auth"
)

// UserStore implements auth.UserStore on the users collection.
type UserStore struct {
	coll *mongo.Collection
}

func (m *Mongo) Users() *UserStore {
	return &UserStore{coll: m.db.Collection(usersCollection)}
}

type userDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Username           string             `bson:"username"`
	Email              string             `bson:"email"`
	Password           string             `bson:"password"`
	Role               string             `bson:"role"`
	EmailVerified      bool               `bson:"email_verified"`
	VerificationToken  *string            `bson:"verification_token,omitempty"`
	VerificationSentAt *time.Time         `bson:"verification_sent_at,omitempty"`
	VerifiedAt         *time.Time         `bson:"verified_at,omitempty"`
	IsActive           *bool              `bson:"is_active,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	LastLogin          *time.Time         `bson:"last_login,omitempty"`
	CreatedBy          string             `bson:"created_by,omitempty"`
}

func (d *userDoc) toUser() *auth.User {
	u := &auth.User{
		ID:                 d.ID.Hex(),
		Username:           d.Username,
		Email:              d.Email,
		PasswordHash:       d.Password,
		Role:               d.Role,
		EmailVerified:      d.EmailVerified,
		VerificationToken:  d.VerificationToken,
		VerificationSentAt: d.VerificationSentAt,
		VerifiedAt:         d.VerifiedAt,
		IsActive:           true,
		CreatedAt:          d.CreatedAt,
		LastLogin:          d.LastLogin,
		CreatedBy:          d.CreatedBy,
	}
	// Documents written before the is_active field existed count as active.
	if d.IsActive != nil {
		u.IsActive = *d.IsActive
	}
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

func (s *UserStore) FindByUsernameOrEmail(ctx context.Context, value string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": value},
		bson.M{"email": normalizeEmail(value)},
	}})
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrInvalidUserID
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) List(ctx context.Context) ([]auth.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []auth.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, *doc.toUser())
	}
	return users, cur.Err()
}

func (s *UserStore) Create(ctx context.Context, u *auth.User) (string, error) {
	active := u.IsActive
	doc := userDoc{
		Username:           u.Username,
		Email:              normalizeEmail(u.Email),
		Password:           u.PasswordHash,
		Role:               u.Role,
		EmailVerified:      u.EmailVerified,
		VerificationToken:  u.VerificationToken,
		VerificationSentAt: u.VerificationSentAt,
		VerifiedAt:         u.VerifiedAt,
		IsActive:           &active,
		CreatedAt:          u.CreatedAt,
		LastLogin:          u.LastLogin,
		CreatedBy:          u.CreatedBy,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return "", auth.ErrDuplicateUser
	}
	if err != nil {
		return "", err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (s *UserStore) UpdateFields(ctx context.Context, id string, set map[string]interface{}, unset ...string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrInvalidUserID
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = bson.M(set)
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, f := range unset {
			fields[f] = ""
		}
		update["$unset"] = fields
	}
	if len(update) == 0 {
		return nil
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrInvalidUserID
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}
