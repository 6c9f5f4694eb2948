package scheduling

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/models"
)

// memAppointments mirrors the unique partial index of the real store: Insert
// refuses a second slot-holding appointment on the same provider/date/time.
type memAppointments struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Appointment

	// barrier, when set, holds every FindActiveSlot caller until all of them
	// have looked at the slot, so they all race into Insert.
	barrier *sync.WaitGroup

	calls int
}

func newMemAppointments() *memAppointments {
	return &memAppointments{byID: make(map[primitive.ObjectID]models.Appointment)}
}

func (m *memAppointments) Insert(_ context.Context, apt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, existing := range m.byID {
		if existing.HoldsSlot && apt.HoldsSlot &&
			existing.ProviderID == apt.ProviderID &&
			existing.AppointmentDate == apt.AppointmentDate &&
			existing.AppointmentTime == apt.AppointmentTime {
			return ErrSlotTaken
		}
	}
	m.byID[apt.ID] = *apt
	return nil
}

func (m *memAppointments) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	apt, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &apt, nil
}

func (m *memAppointments) FindActiveSlot(_ context.Context, providerID primitive.ObjectID, date, clock string) (*models.Appointment, error) {
	m.mu.Lock()
	m.calls++
	var found *models.Appointment
	for _, apt := range m.byID {
		if apt.ProviderID == providerID && apt.AppointmentDate == date &&
			apt.AppointmentTime == clock && apt.Status != models.StatusCancelled {
			apt := apt
			found = &apt
			break
		}
	}
	m.mu.Unlock()

	if m.barrier != nil {
		m.barrier.Done()
		m.barrier.Wait()
	}
	return found, nil
}

func (m *memAppointments) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []models.Appointment
	for _, apt := range m.byID {
		if apt.UserID == userID {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByProvider(_ context.Context, ref ProviderRef) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []models.Appointment
	for _, apt := range m.byID {
		if apt.ProviderID == ref.ID && apt.ProviderModel == ref.Kind {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (m *memAppointments) BookedTimes(_ context.Context, providerID primitive.ObjectID, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []string
	for _, apt := range m.byID {
		if apt.ProviderID == providerID && apt.AppointmentDate == date && apt.HoldsSlot {
			out = append(out, apt.AppointmentTime)
		}
	}
	return out, nil
}

func (m *memAppointments) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.AppointmentStatus) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	apt, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if apt.Status != from {
		return nil, nil
	}
	apt.Status = to
	apt.HoldsSlot = to != models.StatusCancelled
	apt.UpdatedAt = time.Now().UTC()
	m.byID[id] = apt
	return &apt, nil
}

func (m *memAppointments) setStatus(id primitive.ObjectID, status models.AppointmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apt := m.byID[id]
	apt.Status = status
	apt.HoldsSlot = status != models.StatusCancelled
	m.byID[id] = apt
}

func (m *memAppointments) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memResolver struct {
	mu    sync.Mutex
	kind  models.ProviderKind
	views map[primitive.ObjectID]*ProviderView
	calls int
}

func newMemResolver(kind models.ProviderKind) *memResolver {
	return &memResolver{kind: kind, views: make(map[primitive.ObjectID]*ProviderView)}
}

func (r *memResolver) add(name string, services []models.Service, av *models.Availability) *ProviderView {
	r.mu.Lock()
	defer r.mu.Unlock()
	view := &ProviderView{
		Ref:          ProviderRef{Kind: r.kind, ID: primitive.NewObjectID()},
		Name:         name,
		Services:     services,
		Availability: av,
	}
	r.views[view.Ref.ID] = view
	return view
}

func (r *memResolver) setPrice(id primitive.ObjectID, service string, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	view := r.views[id]
	services := make([]models.Service, len(view.Services))
	copy(services, view.Services)
	for i := range services {
		if services[i].Name == service {
			services[i].Price = price
		}
	}
	view.Services = services
}

func (r *memResolver) ResolveProvider(_ context.Context, id primitive.ObjectID) (*ProviderView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	view, ok := r.views[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *view
	return &cp, nil
}

func (r *memResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type memUsers map[primitive.ObjectID]*models.User

func (m memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, ErrAppointmentNotFound.WithMessage("user not found")
	}
	return u, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []primitive.ObjectID
	changed []models.AppointmentStatus
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, _ *models.User, apt *models.Appointment, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, apt.ID)
}

func (n *recordingNotifier) AppointmentStatusChanged(_ context.Context, _ *models.User, apt *models.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, apt.Status)
}
