package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProviderKind tags which collection a provider reference points into.
type ProviderKind string

const (
	KindDoctor   ProviderKind = "Doctor"
	KindLab      ProviderKind = "Lab"
	KindHospital ProviderKind = "Hospital"
)

var ProviderKinds = []ProviderKind{KindDoctor, KindLab, KindHospital}

// ParseProviderKind accepts any casing ("doctor", "LAB") and returns the
// canonical tag.
func ParseProviderKind(s string) (ProviderKind, bool) {
	for _, k := range ProviderKinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, true
		}
	}
	return "", false
}

// Lower is the path/query form of the kind ("doctor").
func (k ProviderKind) Lower() string {
	return strings.ToLower(string(k))
}

type Service struct {
	Name  string  `bson:"name" json:"name" binding:"required"`
	Price float64 `bson:"price" json:"price" binding:"gte=0"`
}

type AvailabilitySlot struct {
	DayOfWeek string `bson:"dayOfWeek" json:"dayOfWeek" binding:"required"`
	StartTime string `bson:"startTime" json:"startTime" binding:"required,hhmm"`
	EndTime   string `bson:"endTime" json:"endTime" binding:"required,hhmm"`
}

type Availability struct {
	Slots               []AvailabilitySlot `bson:"slots" json:"slots" binding:"dive"`
	SlotDurationMinutes int                `bson:"slotDurationMinutes" json:"slotDurationMinutes" binding:"required,min=1"`
	UnavailableDates    []string           `bson:"unavailableDates" json:"unavailableDates"`
}

// ProviderBase holds the fields every provider kind shares. It is inlined
// into the concrete documents.
type ProviderBase struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PhoneNumber  string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Services     []Service          `bson:"services" json:"services"`
	Availability *Availability      `bson:"availability,omitempty" json:"availability,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Doctor struct {
	ProviderBase       `bson:",inline"`
	Qualification      string  `bson:"qualification" json:"qualification"`
	Specialization     string  `bson:"specialization" json:"specialization"`
	ExperienceYears    int     `bson:"experienceYears" json:"experienceYears"`
	RegistrationNumber string  `bson:"registrationNumber,omitempty" json:"registrationNumber,omitempty"`
	Bio                string  `bson:"bio,omitempty" json:"bio,omitempty"`
	ConsultationFee    float64 `bson:"consultationFee" json:"consultationFee"`
	ClinicAddress      string  `bson:"clinicAddress,omitempty" json:"clinicAddress,omitempty"`
	OnlineConsultation bool    `bson:"onlineConsultation" json:"onlineConsultation"`
	ConsultationLink   string  `bson:"consultationLink,omitempty" json:"consultationLink,omitempty"`
}

type Lab struct {
	ProviderBase `bson:",inline"`
	Address      string   `bson:"address" json:"address"`
	TestsOffered []string `bson:"testsOffered" json:"testsOffered"`
}

type Hospital struct {
	ProviderBase `bson:",inline"`
	Address      string   `bson:"address" json:"address"`
	Departments  []string `bson:"departments" json:"departments"`
}

// ProviderUpdate is a partial profile patch; nil fields are left unchanged.
type ProviderUpdate struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}
