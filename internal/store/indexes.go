package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActiveSlotIndex enforces at most one slot-holding appointment per
// provider, date and time.
const ActiveSlotIndex = "uniq_active_slot"

const codeNamespaceExists = 48

var appointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"userId",
			"providerId",
			"providerModel",
			"appointmentDate",
			"appointmentTime",
			"serviceName",
			"fee",
			"status",
			"holdsSlot",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"userId":     bson.M{"bsonType": "objectId"},
			"providerId": bson.M{"bsonType": "objectId"},
			"providerModel": bson.M{
				"enum": []string{"Doctor", "Lab", "Hospital"},
			},
			"appointmentDate": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"appointmentTime": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},
			"appointmentType": bson.M{
				"enum": []string{"doctor-online", "doctor-offline", "lab", "hospital"},
			},
			"serviceName": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"fee": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},
			"status": bson.M{
				"enum": []string{"pending", "booked", "completed", "cancelled", "rescheduled"},
			},
			"holdsSlot": bson.M{"bsonType": "bool"},
		},
	},
}

// EnsureSchema creates every index and collection validator the API relies on.
// It is idempotent.
func EnsureSchema(ctx context.Context, db *mongo.Database) error {
	if err := ensureValidator(ctx, db, AppointmentsCollection, appointmentValidator); err != nil {
		return err
	}

	indexes := map[string][]mongo.IndexModel{
		AppointmentsCollection: {
			{
				Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "appointmentDate", Value: 1}, {Key: "appointmentTime", Value: 1}},
				Options: options.Index().
					SetName(ActiveSlotIndex).
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"holdsSlot": true}),
			},
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "appointmentDate", Value: 1}, {Key: "appointmentTime", Value: 1}},
				Options: options.Index().SetName("user_schedule"),
			},
			{
				Keys:    bson.D{{Key: "providerId", Value: 1}, {Key: "providerModel", Value: 1}, {Key: "appointmentDate", Value: 1}},
				Options: options.Index().SetName("provider_schedule"),
			},
		},
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		},
	}
	for _, coll := range []string{DoctorsCollection, LabsCollection, HospitalsCollection} {
		indexes[coll] = []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().
					SetName("uniq_owner").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"userId": bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("name"),
			},
		}
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func ensureValidator(ctx context.Context, db *mongo.Database, coll string, validator bson.M) error {
	err := db.CreateCollection(ctx, coll, options.CreateCollection().SetValidator(validator))
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Code != codeNamespaceExists {
		return fmt.Errorf("create collection %s: %w", coll, err)
	}
	cmd := bson.D{{Key: "collMod", Value: coll}, {Key: "validator", Value: validator}}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("update validator on %s: %w", coll, err)
	}
	return nil
}
