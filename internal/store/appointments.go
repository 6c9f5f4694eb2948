package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
)

var bySlot = bson.D{{Key: "appointmentDate", Value: 1}, {Key: "appointmentTime", Value: 1}}

// AppointmentRepo is the MongoDB implementation of scheduling.AppointmentStore.
type AppointmentRepo struct {
	coll *mongo.Collection
}

func NewAppointmentRepo(db *mongo.Database) *AppointmentRepo {
	return &AppointmentRepo{coll: db.Collection(AppointmentsCollection)}
}

// Insert relies on the uniq_active_slot index to reject a concurrent booking
// that slipped past the read-side conflict check.
func (r *AppointmentRepo) Insert(ctx context.Context, apt *models.Appointment) error {
	if apt.ID.IsZero() {
		apt.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, apt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return scheduling.ErrSlotTaken.WithMessage("%s at %s was just booked", apt.AppointmentDate, apt.AppointmentTime)
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var apt models.Appointment
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&apt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, scheduling.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &apt, nil
}

func (r *AppointmentRepo) FindActiveSlot(ctx context.Context, providerID primitive.ObjectID, date, clock string) (*models.Appointment, error) {
	filter := bson.M{
		"providerId":      providerID,
		"appointmentDate": date,
		"appointmentTime": clock,
		"status":          bson.M{"$ne": models.StatusCancelled},
	}
	var apt models.Appointment
	err := r.coll.FindOne(ctx, filter).Decode(&apt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	return &apt, nil
}

func (r *AppointmentRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{"userId": userID})
}

func (r *AppointmentRepo) ListByProvider(ctx context.Context, ref scheduling.ProviderRef) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{"providerId": ref.ID, "providerModel": ref.Kind})
}

func (r *AppointmentRepo) list(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bySlot))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *AppointmentRepo) BookedTimes(ctx context.Context, providerID primitive.ObjectID, date string) ([]string, error) {
	filter := bson.M{"providerId": providerID, "appointmentDate": date, "holdsSlot": true}
	opts := options.Find().SetProjection(bson.M{"appointmentTime": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Time string `bson:"appointmentTime"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode booked times: %w", err)
	}
	times := make([]string, 0, len(rows))
	for _, row := range rows {
		times = append(times, row.Time)
	}
	return times, nil
}

// TransitionStatus is a compare-and-set on the status field. Cancelling also
// releases the slot from the unique index.
func (r *AppointmentRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error) {
	update := bson.M{"$set": bson.M{
		"status":    to,
		"holdsSlot": to != models.StatusCancelled,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var apt models.Appointment
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&apt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return &apt, nil
}
