package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
)

// UserChangedFunc is called after a provider write modified the linked account.
type UserChangedFunc func(ctx context.Context, userID primitive.ObjectID)

// ProviderRepo is the persistence shared by all provider kinds. Each kind gets
// its own instance over its own collection; base exposes the shared fields of
// the concrete document type.
type ProviderRepo[T any] struct {
	kind          models.ProviderKind
	client        *mongo.Client
	coll          *mongo.Collection
	users         *mongo.Collection
	base          func(*T) *models.ProviderBase
	onUserChanged UserChangedFunc
}

func NewProviderRepo[T any](db *mongo.Database, kind models.ProviderKind, base func(*T) *models.ProviderBase, onUserChanged UserChangedFunc) *ProviderRepo[T] {
	return &ProviderRepo[T]{
		kind:          kind,
		client:        db.Client(),
		coll:          db.Collection(ProviderCollection(kind)),
		users:         db.Collection(UsersCollection),
		base:          base,
		onUserChanged: onUserChanged,
	}
}

func NewDoctorRepo(db *mongo.Database, onUserChanged UserChangedFunc) *ProviderRepo[models.Doctor] {
	return NewProviderRepo(db, models.KindDoctor, func(d *models.Doctor) *models.ProviderBase { return &d.ProviderBase }, onUserChanged)
}

func NewLabRepo(db *mongo.Database, onUserChanged UserChangedFunc) *ProviderRepo[models.Lab] {
	return NewProviderRepo(db, models.KindLab, func(l *models.Lab) *models.ProviderBase { return &l.ProviderBase }, onUserChanged)
}

func NewHospitalRepo(db *mongo.Database, onUserChanged UserChangedFunc) *ProviderRepo[models.Hospital] {
	return NewProviderRepo(db, models.KindHospital, func(h *models.Hospital) *models.ProviderBase { return &h.ProviderBase }, onUserChanged)
}

func (r *ProviderRepo[T]) Kind() models.ProviderKind {
	return r.kind
}

// Base exposes the shared fields of a document of this kind.
func (r *ProviderRepo[T]) Base(doc *T) *models.ProviderBase {
	return r.base(doc)
}

// Create inserts the provider and, when it has an owner, promotes that account
// to the provider role in the same transaction.
func (r *ProviderRepo[T]) Create(ctx context.Context, doc *T) error {
	b := r.base(doc)
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	b.CreatedAt, b.UpdatedAt = now, now
	services, err := scheduling.NormalizeServices(b.Services)
	if err != nil {
		return err
	}
	b.Services = services
	if b.Availability != nil {
		av, err := scheduling.NormalizeAvailability(*b.Availability)
		if err != nil {
			return err
		}
		b.Availability = &av
	}

	err = r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.coll.InsertOne(sc, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrProviderExists
			}
			return fmt.Errorf("insert %s: %w", r.kind.Lower(), err)
		}
		if b.UserID.IsZero() {
			return nil
		}
		res, err := r.users.UpdateOne(sc, bson.M{"_id": b.UserID}, bson.M{"$set": bson.M{
			"role":            models.RoleProvider,
			"providerProfile": models.ProviderProfile{ProviderID: b.ID, ProviderModel: r.kind},
			"updatedAt":       now,
		}})
		if err != nil {
			return fmt.Errorf("link provider owner: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrUserNotFound.WithMessage("owner account %s not found", b.UserID.Hex())
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.userChanged(ctx, b.UserID)
	return nil
}

func (r *ProviderRepo[T]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProviderRepo[T]) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*T, error) {
	return r.findOne(ctx, bson.M{"userId": userID})
}

func (r *ProviderRepo[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	doc := new(T)
	err := r.coll.FindOne(ctx, filter).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, scheduling.ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.kind.Lower(), err)
	}
	return doc, nil
}

// List returns active providers ordered by name, optionally filtered by a
// case-insensitive substring of the name.
func (r *ProviderRepo[T]) List(ctx context.Context, search string) ([]T, error) {
	filter := bson.M{"isActive": true}
	if s := strings.TrimSpace(search); s != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}}
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind.Lower(), err)
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", r.kind.Lower(), err)
	}
	return docs, nil
}

func (r *ProviderRepo[T]) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProviderUpdate) (*T, error) {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.PhoneNumber != nil {
		set["phoneNumber"] = *upd.PhoneNumber
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	return r.set(ctx, id, set)
}

// UpdateServices replaces the whole services list.
func (r *ProviderRepo[T]) UpdateServices(ctx context.Context, id primitive.ObjectID, services []models.Service) (*T, error) {
	normalized, err := scheduling.NormalizeServices(services)
	if err != nil {
		return nil, err
	}
	return r.set(ctx, id, bson.M{"services": normalized})
}

// SetAvailability replaces slots, duration and blackout dates in one write.
func (r *ProviderRepo[T]) SetAvailability(ctx context.Context, id primitive.ObjectID, av models.Availability) (*T, error) {
	normalized, err := scheduling.NormalizeAvailability(av)
	if err != nil {
		return nil, err
	}
	return r.set(ctx, id, bson.M{"availability": normalized})
}

func (r *ProviderRepo[T]) set(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error) {
	fields["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	doc := new(T)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, scheduling.ErrProviderNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrProviderExists
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.kind.Lower(), err)
	}
	return doc, nil
}

// Delete removes the provider and returns its owner to the plain user role.
// Appointments referencing it are kept.
func (r *ProviderRepo[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	var owner primitive.ObjectID
	err := r.inTransaction(ctx, func(sc mongo.SessionContext) error {
		doc := new(T)
		err := r.coll.FindOneAndDelete(sc, bson.M{"_id": id}).Decode(doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return scheduling.ErrProviderNotFound
		}
		if err != nil {
			return fmt.Errorf("delete %s: %w", r.kind.Lower(), err)
		}
		owner = r.base(doc).UserID
		if owner.IsZero() {
			return nil
		}
		_, err = r.users.UpdateOne(sc, bson.M{"_id": owner}, bson.M{
			"$set":   bson.M{"role": models.RoleUser, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"providerProfile": ""},
		})
		if err != nil {
			return fmt.Errorf("unlink provider owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.userChanged(ctx, owner)
	return nil
}

// ResolveProvider implements scheduling.ProviderResolver.
func (r *ProviderRepo[T]) ResolveProvider(ctx context.Context, id primitive.ObjectID) (*scheduling.ProviderView, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.View(doc), nil
}

func (r *ProviderRepo[T]) View(doc *T) *scheduling.ProviderView {
	b := r.base(doc)
	return &scheduling.ProviderView{
		Ref:          scheduling.ProviderRef{Kind: r.kind, ID: b.ID},
		Name:         b.Name,
		Services:     b.Services,
		Availability: b.Availability,
	}
}

func (r *ProviderRepo[T]) inTransaction(ctx context.Context, fn func(mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (r *ProviderRepo[T]) userChanged(ctx context.Context, userID primitive.ObjectID) {
	if r.onUserChanged != nil && !userID.IsZero() {
		r.onUserChanged(ctx, userID)
	}
}
