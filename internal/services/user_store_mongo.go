package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection(usersCollection)}
}

// EnsureIndexes configures the unique indexes backing username/email uniqueness.
// Called on startup from main after Mongo has connected.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_username").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetName("idx_reset_token").SetSparse(true),
		},
	}
	for _, m := range indexes {
		if _, err := s.col.Indexes().CreateOne(ctx, m); err != nil {
			return errors.Wrap(err, "create users index")
		}
	}
	return nil
}

func (s *MongoUserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *MongoUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	u.Role = u.Role.Normalize()
	return &u, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": login},
		bson.M{"username": login},
	}})
}

func (s *MongoUserStore) ExistsByEmailOrUsername(ctx context.Context, email, username string, exclude primitive.ObjectID) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"username": username},
	}}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count users")
	}
	return n > 0, nil
}

// updateByFilter applies update and reports ErrNotFound when nothing matched.
func (s *MongoUserStore) updateByFilter(ctx context.Context, filter bson.M, update bson.M) error {
	setUpdatedAt(update)
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "update user")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func setUpdatedAt(update bson.M) {
	set, ok := update["$set"].(bson.M)
	if !ok {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now().UTC()
}

func (s *MongoUserStore) SetRefreshHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"refreshToken": hash}})
}

func (s *MongoUserStore) SwapRefreshHash(ctx context.Context, id primitive.ObjectID, oldHash, newHash string) error {
	if oldHash == "" {
		return ErrStaleRefresh
	}
	err := s.updateByFilter(ctx,
		bson.M{"_id": id, "refreshToken": oldHash},
		bson.M{"$set": bson.M{"refreshToken": newHash}},
	)
	if errors.Is(err, ErrNotFound) {
		return ErrStaleRefresh
	}
	return err
}

func (s *MongoUserStore) ClearRefreshHash(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"refreshToken": ""}})
}

func (s *MongoUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash}})
}

func (s *MongoUserStore) UpdateAccount(ctx context.Context, id primitive.ObjectID, upd models.AccountUpdate) (*models.User, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"fullname": upd.Fullname,
		"username": upd.Username,
		"email":    upd.Email,
	}
	update := bson.M{"$set": set}
	unset := bson.M{}
	if upd.PhoneNumber != "" {
		set["phoneNumber"] = upd.PhoneNumber
	} else {
		unset["phoneNumber"] = ""
	}
	if current.Email != upd.Email {
		set["isVerified"] = false
		unset["verificationToken"] = ""
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	if err := s.updateByFilter(ctx, bson.M{"_id": id}, update); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

func (s *MongoUserStore) SetVerificationToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"verificationToken": token}})
}

func (s *MongoUserStore) MarkVerified(ctx context.Context, email, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"email": email, "verificationToken": token},
		bson.M{
			"$set":   bson.M{"isVerified": true, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"verificationToken": ""},
		},
		opts,
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "verify user")
	}
	u.Role = u.Role.Normalize()
	return &u, nil
}

func (s *MongoUserStore) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": expires.UTC(),
	}})
}

func (s *MongoUserStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{
		"passwordResetToken":   token,
		"passwordResetExpires": bson.M{"$gt": now.UTC()},
	})
}

func (s *MongoUserStore) ResetPassword(ctx context.Context, email, token, hash string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{
			"email":                email,
			"passwordResetToken":   token,
			"passwordResetExpires": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"password": hash, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": "", "refreshToken": ""},
		},
		opts,
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "reset password")
	}
	u.Role = u.Role.Normalize()
	return &u, nil
}

func (s *MongoUserStore) SetAvatar(ctx context.Context, id primitive.ObjectID, url, publicID string) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"avatar": url, "publicID": publicID}})
}

func (s *MongoUserStore) ClearAvatar(ctx context.Context, id primitive.ObjectID) error {
	return s.updateByFilter(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"avatar": "", "publicID": ""}})
}
