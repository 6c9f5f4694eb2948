package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
	"github.com/harentsoaR/wellness-api/internal/models"
)

const (
	UsersCollection        = "users"
	AppointmentsCollection = "appointments"
	DoctorsCollection      = "doctors"
	LabsCollection         = "labs"
	HospitalsCollection    = "hospitals"
)

var (
	ErrUserNotFound   = apperrors.NotFound("USER_NOT_FOUND", "user not found")
	ErrEmailTaken     = apperrors.Conflict("EMAIL_TAKEN", "an account with this email already exists")
	ErrProviderExists = apperrors.Conflict("PROVIDER_EXISTS", "a provider with this email or owner already exists")
)

// ProviderCollection maps a provider kind onto its collection.
func ProviderCollection(kind models.ProviderKind) string {
	switch kind {
	case models.KindLab:
		return LabsCollection
	case models.KindHospital:
		return HospitalsCollection
	default:
		return DoctorsCollection
	}
}

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, client.Database(database), nil
}

// Ping is used by the health endpoint.
func Ping(ctx context.Context, db *mongo.Database) error {
	return db.Client().Ping(ctx, readpref.Primary())
}
