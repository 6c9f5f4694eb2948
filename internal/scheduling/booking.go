package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
	"github.com/harentsoaR/wellness-api/internal/models"
)

// AppointmentStore persists appointments. Insert must reject a second
// slot-holding appointment for the same provider, date and time with
// ErrSlotTaken even when FindActiveSlot raced and saw the slot free.
type AppointmentStore interface {
	Insert(ctx context.Context, apt *models.Appointment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	// FindActiveSlot returns nil, nil when no non-cancelled appointment holds the slot.
	FindActiveSlot(ctx context.Context, providerID primitive.ObjectID, date, clock string) (*models.Appointment, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Appointment, error)
	ListByProvider(ctx context.Context, ref ProviderRef) ([]models.Appointment, error)
	BookedTimes(ctx context.Context, providerID primitive.ObjectID, date string) ([]string, error)
	// TransitionStatus moves the appointment from one status to another only if
	// it is still in from. It returns nil, nil when the status had changed.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error)
}

type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notifier is told about lifecycle events. Implementations must not block.
type Notifier interface {
	AppointmentCreated(ctx context.Context, user *models.User, apt *models.Appointment, providerName string)
	AppointmentStatusChanged(ctx context.Context, user *models.User, apt *models.Appointment)
}

const maxTransitionAttempts = 3

type Service struct {
	providers    Resolvers
	appointments AppointmentStore
	users        UserDirectory
	notifier     Notifier
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(providers Resolvers, appointments AppointmentStore, users UserDirectory, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		providers:    providers,
		appointments: appointments,
		users:        users,
		notifier:     notifier,
		logger:       logger.With().Str("component", "scheduling").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type CreateRequest struct {
	UserID          primitive.ObjectID
	ProviderID      string
	ProviderKind    string
	Date            string
	Time            string
	ServiceName     string
	AppointmentType string
	Notes           string
}

// CreateAppointment books a slot in pending state.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*models.Appointment, error) {
	view, err := s.providers.Resolve(ctx, req.ProviderID, req.ProviderKind)
	if err != nil {
		return nil, passThrough("resolve provider", err)
	}

	service, err := ResolveService(view, req.ServiceName)
	if err != nil {
		return nil, err
	}

	decision, err := ValidateSlot(view, req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	aptType := models.AppointmentType(strings.ToLower(strings.TrimSpace(req.AppointmentType)))
	if aptType == "" {
		aptType = models.DefaultAppointmentType(view.Ref.Kind)
	} else if !aptType.Valid() {
		return nil, ErrInvalidType
	}

	existing, err := s.appointments.FindActiveSlot(ctx, view.Ref.ID, decision.Date, decision.Time)
	if err != nil {
		return nil, passThrough("check slot", err)
	}
	if existing != nil {
		return nil, ErrSlotTaken.WithMessage("%s at %s is already booked", decision.Date, decision.Time)
	}

	now := s.now()
	apt := &models.Appointment{
		ID:              primitive.NewObjectID(),
		UserID:          req.UserID,
		ProviderID:      view.Ref.ID,
		ProviderModel:   view.Ref.Kind,
		AppointmentDate: decision.Date,
		AppointmentTime: decision.Time,
		AppointmentType: aptType,
		ServiceName:     service.Name,
		Fee:             service.Price,
		Status:          models.StatusPending,
		Notes:           strings.TrimSpace(req.Notes),
		HoldsSlot:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.appointments.Insert(ctx, apt); err != nil {
		return nil, passThrough("insert appointment", err)
	}

	s.logger.Info().
		Str("appointment_id", apt.ID.Hex()).
		Str("provider", view.Ref.String()).
		Str("date", apt.AppointmentDate).
		Str("time", apt.AppointmentTime).
		Msg("appointment created")

	if s.notifier != nil {
		if user := s.lookupUser(ctx, apt.UserID); user != nil {
			s.notifier.AppointmentCreated(ctx, user, apt, view.Name)
		}
	}
	return apt, nil
}

// UpdateAppointmentStatus is the provider-side transition. Terminal
// appointments are rejected before ownership is considered.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, rawID, rawStatus string, caller ProviderRef) (*models.Appointment, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidID.WithMessage("malformed appointment id %q", rawID)
	}
	target := models.AppointmentStatus(strings.ToLower(strings.TrimSpace(rawStatus)))
	if !target.Valid() {
		return nil, ErrInvalidStatus.WithMessage("unknown status %q", rawStatus)
	}

	return s.transition(ctx, id, target, func(apt *models.Appointment) error {
		if caller.IsZero() || caller.ID != apt.ProviderID || caller.Kind != apt.ProviderModel {
			return ErrForbidden
		}
		if target == models.StatusRescheduled {
			return ErrInvalidStatus.WithMessage("status %q cannot be set directly", target)
		}
		return nil
	})
}

// CancelAppointment is the user-side cancellation. It frees the slot.
func (s *Service) CancelAppointment(ctx context.Context, rawID string, callerUserID primitive.ObjectID) (*models.Appointment, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidID.WithMessage("malformed appointment id %q", rawID)
	}
	return s.transition(ctx, id, models.StatusCancelled, func(apt *models.Appointment) error {
		if callerUserID.IsZero() || callerUserID != apt.UserID {
			return ErrForbidden
		}
		return nil
	})
}

// transition re-reads and re-checks when the conditional write loses a race.
func (s *Service) transition(ctx context.Context, id primitive.ObjectID, target models.AppointmentStatus, authorize func(*models.Appointment) error) (*models.Appointment, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		apt, err := s.appointments.FindByID(ctx, id)
		if err != nil {
			return nil, passThrough("load appointment", err)
		}
		if apt.Status.Terminal() {
			return nil, ErrInvalidTransition.WithMessage("appointment is already %s", apt.Status)
		}
		if err := authorize(apt); err != nil {
			return nil, err
		}

		updated, err := s.appointments.TransitionStatus(ctx, id, apt.Status, target)
		if err != nil {
			return nil, passThrough("update status", err)
		}
		if updated == nil {
			continue
		}

		s.logger.Info().
			Str("appointment_id", id.Hex()).
			Str("from", string(apt.Status)).
			Str("to", string(target)).
			Msg("appointment status changed")
		if s.notifier != nil {
			if user := s.lookupUser(ctx, updated.UserID); user != nil {
				s.notifier.AppointmentStatusChanged(ctx, user, updated)
			}
		}
		return updated, nil
	}
	return nil, ErrConcurrentUpdate
}

// Party is the counterpart shown next to an appointment.
type Party struct {
	ID   primitive.ObjectID  `json:"id"`
	Name string              `json:"name"`
	Kind models.ProviderKind `json:"kind,omitempty"`
}

type AppointmentView struct {
	models.Appointment
	Provider *Party `json:"provider,omitempty"`
	User     *Party `json:"user,omitempty"`
}

// ListForUser returns the user's appointments ordered by date and time, each
// with its provider attached.
func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]AppointmentView, error) {
	apts, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, passThrough("list user appointments", err)
	}
	sortBySlot(apts)

	providers := make(map[ProviderRef]*Party)
	out := make([]AppointmentView, 0, len(apts))
	for _, apt := range apts {
		ref := ProviderRef{Kind: apt.ProviderModel, ID: apt.ProviderID}
		party, seen := providers[ref]
		if !seen {
			view, err := s.providers.ResolveRef(ctx, ref)
			switch {
			case err == nil:
				party = &Party{ID: ref.ID, Name: view.Name, Kind: ref.Kind}
			case errors.Is(err, ErrProviderNotFound):
			default:
				return nil, passThrough("resolve provider", err)
			}
			providers[ref] = party
		}
		out = append(out, AppointmentView{Appointment: apt, Provider: party})
	}
	return out, nil
}

// ListForProvider returns the provider's appointments ordered by date and
// time, each with its patient attached.
func (s *Service) ListForProvider(ctx context.Context, caller ProviderRef) ([]AppointmentView, error) {
	if caller.IsZero() {
		return nil, ErrForbidden.WithMessage("caller is not a provider")
	}
	apts, err := s.appointments.ListByProvider(ctx, caller)
	if err != nil {
		return nil, passThrough("list provider appointments", err)
	}
	sortBySlot(apts)

	users := make(map[primitive.ObjectID]*Party)
	out := make([]AppointmentView, 0, len(apts))
	for _, apt := range apts {
		party, seen := users[apt.UserID]
		if !seen {
			if u := s.lookupUser(ctx, apt.UserID); u != nil {
				party = &Party{ID: u.ID, Name: u.FullName}
			}
			users[apt.UserID] = party
		}
		out = append(out, AppointmentView{Appointment: apt, User: party})
	}
	return out, nil
}

// AvailableSlots lists the open start times of a provider on date.
func (s *Service) AvailableSlots(ctx context.Context, rawID, rawKind, date string) ([]string, error) {
	view, err := s.providers.Resolve(ctx, rawID, rawKind)
	if err != nil {
		return nil, passThrough("resolve provider", err)
	}
	if d, err := time.Parse(DateLayout, date); err != nil || d.Format(DateLayout) != date {
		return nil, ErrInvalidDateTime.WithMessage("invalid date %q, expected YYYY-MM-DD", date)
	}
	booked, err := s.appointments.BookedTimes(ctx, view.Ref.ID, date)
	if err != nil {
		return nil, passThrough("load booked times", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	return OpenSlots(view, date, taken)
}

func (s *Service) lookupUser(ctx context.Context, id primitive.ObjectID) *models.User {
	if s.users == nil {
		return nil
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", id.Hex()).Msg("user lookup failed")
		return nil
	}
	return u
}

func sortBySlot(apts []models.Appointment) {
	sort.SliceStable(apts, func(i, j int) bool {
		if apts[i].AppointmentDate != apts[j].AppointmentDate {
			return apts[i].AppointmentDate < apts[j].AppointmentDate
		}
		return apts[i].AppointmentTime < apts[j].AppointmentTime
	})
}

// passThrough keeps domain errors intact and wraps anything else as internal.
func passThrough(op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal(op+" failed", err)
}
