package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusBooked      AppointmentStatus = "booked"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

var validStatuses = map[AppointmentStatus]bool{
	StatusPending:     true,
	StatusBooked:      true,
	StatusCompleted:   true,
	StatusCancelled:   true,
	StatusRescheduled: true,
}

func (s AppointmentStatus) Valid() bool {
	return validStatuses[s]
}

// Terminal statuses accept no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type AppointmentType string

const (
	TypeDoctorOnline  AppointmentType = "doctor-online"
	TypeDoctorOffline AppointmentType = "doctor-offline"
	TypeLab           AppointmentType = "lab"
	TypeHospital      AppointmentType = "hospital"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeDoctorOnline, TypeDoctorOffline, TypeLab, TypeHospital:
		return true
	}
	return false
}

// DefaultAppointmentType is used when a booking omits the type.
func DefaultAppointmentType(kind ProviderKind) AppointmentType {
	switch kind {
	case KindLab:
		return TypeLab
	case KindHospital:
		return TypeHospital
	default:
		return TypeDoctorOffline
	}
}

type Appointment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	ProviderID      primitive.ObjectID `bson:"providerId" json:"providerId"`
	ProviderModel   ProviderKind       `bson:"providerModel" json:"providerModel"`
	AppointmentDate string             `bson:"appointmentDate" json:"appointmentDate"`
	AppointmentTime string             `bson:"appointmentTime" json:"appointmentTime"`
	AppointmentType AppointmentType    `bson:"appointmentType" json:"appointmentType"`
	ServiceName     string             `bson:"serviceName" json:"serviceName"`
	Fee             float64            `bson:"fee" json:"fee"`
	Status          AppointmentStatus  `bson:"status" json:"status"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	// HoldsSlot is true while the appointment occupies its slot. The unique
	// partial index on (providerId, appointmentDate, appointmentTime) only
	// covers documents where it is set.
	HoldsSlot bool      `bson:"holdsSlot" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
