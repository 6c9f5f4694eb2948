package scheduling

import "github.com/harentsoaR/wellness-api/internal/apperrors"

// Rejections surfaced by the booking engine. Each carries a stable code.
var (
	ErrInvalidProviderKind = apperrors.Validation("INVALID_PROVIDER_KIND", "provider kind must be one of doctor, lab, hospital")
	ErrInvalidID           = apperrors.Validation("INVALID_ID", "malformed id")
	ErrProviderNotFound    = apperrors.NotFound("PROVIDER_NOT_FOUND", "provider not found")

	ErrNoAvailability      = apperrors.Conflict("NO_AVAILABILITY_CONFIGURED", "provider has no availability configured")
	ErrInvalidDateTime     = apperrors.Validation("INVALID_DATETIME_FORMAT", "date and time must be formatted as YYYY-MM-DD and HH:mm")
	ErrUnavailableOnDate   = apperrors.Conflict("PROVIDER_UNAVAILABLE_ON_DATE", "provider is unavailable on the requested date")
	ErrNoSlotOnWeekday     = apperrors.Conflict("NO_SLOT_ON_WEEKDAY", "provider has no slot on the requested weekday")
	ErrOutsideWorkingHours = apperrors.Conflict("OUTSIDE_WORKING_HOURS", "requested time is outside the provider's working hours")
	ErrMisalignedSlot      = apperrors.Conflict("MISALIGNED_SLOT_BOUNDARY", "requested time is not aligned to the slot duration")

	ErrSlotTaken         = apperrors.Conflict("SLOT_TAKEN", "this slot has already been booked")
	ErrServiceNotOffered = apperrors.Validation("SERVICE_NOT_OFFERED", "provider does not offer the requested service")

	ErrAppointmentNotFound = apperrors.NotFound("APPOINTMENT_NOT_FOUND", "appointment not found")
	ErrForbidden           = apperrors.Forbidden("FORBIDDEN", "caller does not own this appointment")
	ErrInvalidTransition   = apperrors.New(apperrors.KindInvalidTransition, "INVALID_TRANSITION", "appointment is already completed or cancelled")
	ErrInvalidStatus       = apperrors.Validation("INVALID_STATUS", "unknown appointment status")
	ErrInvalidType         = apperrors.Validation("INVALID_APPOINTMENT_TYPE", "appointment type must be one of doctor-online, doctor-offline, lab, hospital")
	ErrConcurrentUpdate    = apperrors.Conflict("CONCURRENT_UPDATE", "appointment was modified concurrently, retry")

	ErrInvalidAvailability = apperrors.Validation("INVALID_AVAILABILITY", "invalid availability")
	ErrInvalidServices     = apperrors.Validation("INVALID_SERVICES", "invalid services")
)
