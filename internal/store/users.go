package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/wellness-api/internal/cache"
	"github.com/harentsoaR/wellness-api/internal/models"
)

// UserUpdate is a partial profile patch; nil fields are left unchanged.
type UserUpdate struct {
	FullName *string
	Phone    *string
}

// UserRepo reads users through a cache-aside layer keyed "user:<id>". Cached
// copies never include the password hash. Every write through the repo drops
// the cached entry, and Invalidate lets other writers do the same.
type UserRepo struct {
	coll   *mongo.Collection
	cache  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

func NewUserRepo(db *mongo.Database, c cache.Store, ttl time.Duration, logger zerolog.Logger) *UserRepo {
	return &UserRepo{
		coll:   db.Collection(UsersCollection),
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

func userKey(id primitive.ObjectID) string {
	return "user:" + id.Hex()
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail goes straight to the database; it is the only lookup that
// returns the password hash.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	key := userKey(id)
	var cached models.User
	err := cache.GetJSON(ctx, r.cache, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	var u models.User
	err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := cache.SetJSON(ctx, r.cache, key, &u, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return &u, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	r.Invalidate(ctx, id)
	return &u, nil
}

// Invalidate drops the cached copy of a user.
func (r *UserRepo) Invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := r.cache.Delete(ctx, userKey(id)); err != nil {
		r.logger.Warn().Err(err).Str("user_id", id.Hex()).Msg("cache invalidation failed")
	}
}
