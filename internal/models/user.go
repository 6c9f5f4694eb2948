package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleProvider = "provider"
)

// ProviderProfile links an account to the provider record it operates.
type ProviderProfile struct {
	ProviderID    primitive.ObjectID `bson:"providerId" json:"providerId"`
	ProviderModel ProviderKind       `bson:"providerModel" json:"providerModel"`
}

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName        string             `bson:"fullName" json:"fullName"`
	Email           string             `bson:"email" json:"email"`
	Password        string             `bson:"password" json:"-"`
	Role            string             `bson:"role" json:"role"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	ProviderProfile *ProviderProfile   `bson:"providerProfile,omitempty" json:"providerProfile,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
