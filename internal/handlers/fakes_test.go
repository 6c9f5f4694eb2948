package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return store.ErrEmailTaken
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u.Password = ""
	return &u, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, upd store.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	m.users[id] = u
	u.Password = ""
	return &u, nil
}

type memProviders[T any] struct {
	mu   sync.Mutex
	kind models.ProviderKind
	base func(*T) *models.ProviderBase
	docs map[primitive.ObjectID]T
}

func newMemProviders[T any](kind models.ProviderKind, base func(*T) *models.ProviderBase) *memProviders[T] {
	return &memProviders[T]{kind: kind, base: base, docs: map[primitive.ObjectID]T{}}
}

func (m *memProviders[T]) Kind() models.ProviderKind { return m.kind }

func (m *memProviders[T]) Base(doc *T) *models.ProviderBase { return m.base(doc) }

func (m *memProviders[T]) Create(_ context.Context, doc *T) error {
	b := m.base(doc)
	services, err := scheduling.NormalizeServices(b.Services)
	if err != nil {
		return err
	}
	b.Services = services
	b.ID = primitive.NewObjectID()
	m.mu.Lock()
	m.docs[b.ID] = *doc
	m.mu.Unlock()
	return nil
}

func (m *memProviders[T]) Get(_ context.Context, id primitive.ObjectID) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, scheduling.ErrProviderNotFound
	}
	return &doc, nil
}

func (m *memProviders[T]) List(_ context.Context, search string) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, 0)
	for _, doc := range m.docs {
		b := m.base(&doc)
		if b.IsActive && strings.Contains(strings.ToLower(b.Name), strings.ToLower(search)) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memProviders[T]) modify(id primitive.ObjectID, fn func(*models.ProviderBase)) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, scheduling.ErrProviderNotFound
	}
	fn(m.base(&doc))
	m.docs[id] = doc
	return &doc, nil
}

func (m *memProviders[T]) UpdateProfile(_ context.Context, id primitive.ObjectID, upd models.ProviderUpdate) (*T, error) {
	return m.modify(id, func(b *models.ProviderBase) {
		if upd.Name != nil {
			b.Name = *upd.Name
		}
		if upd.Email != nil {
			b.Email = *upd.Email
		}
		if upd.PhoneNumber != nil {
			b.PhoneNumber = *upd.PhoneNumber
		}
		if upd.IsActive != nil {
			b.IsActive = *upd.IsActive
		}
	})
}

func (m *memProviders[T]) UpdateServices(_ context.Context, id primitive.ObjectID, services []models.Service) (*T, error) {
	normalized, err := scheduling.NormalizeServices(services)
	if err != nil {
		return nil, err
	}
	return m.modify(id, func(b *models.ProviderBase) { b.Services = normalized })
}

func (m *memProviders[T]) SetAvailability(_ context.Context, id primitive.ObjectID, av models.Availability) (*T, error) {
	normalized, err := scheduling.NormalizeAvailability(av)
	if err != nil {
		return nil, err
	}
	return m.modify(id, func(b *models.ProviderBase) { b.Availability = &normalized })
}

func (m *memProviders[T]) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return scheduling.ErrProviderNotFound
	}
	delete(m.docs, id)
	return nil
}

// stubAppointments records what the handlers pass to the scheduling service.
type stubAppointments struct {
	mu           sync.Mutex
	err          error
	created      scheduling.CreateRequest
	statusID     string
	status       string
	statusCaller scheduling.ProviderRef
	cancelCaller primitive.ObjectID
	listCaller   scheduling.ProviderRef
	slotsArgs    [3]string
}

func (s *stubAppointments) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubAppointments) CreateAppointment(_ context.Context, req scheduling.CreateRequest) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Appointment{
		ID:              primitive.NewObjectID(),
		UserID:          req.UserID,
		AppointmentDate: req.Date,
		AppointmentTime: req.Time,
		ServiceName:     req.ServiceName,
		Status:          models.StatusPending,
	}, nil
}

func (s *stubAppointments) UpdateAppointmentStatus(_ context.Context, rawID, rawStatus string, caller scheduling.ProviderRef) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusID, s.status, s.statusCaller = rawID, rawStatus, caller
	if s.err != nil {
		return nil, s.err
	}
	return &models.Appointment{Status: models.AppointmentStatus(rawStatus)}, nil
}

func (s *stubAppointments) CancelAppointment(_ context.Context, _ string, callerUserID primitive.ObjectID) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCaller = callerUserID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Appointment{UserID: callerUserID, Status: models.StatusCancelled}, nil
}

func (s *stubAppointments) ListForUser(_ context.Context, userID primitive.ObjectID) ([]scheduling.AppointmentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []scheduling.AppointmentView{{Appointment: models.Appointment{UserID: userID}}}, nil
}

func (s *stubAppointments) ListForProvider(_ context.Context, caller scheduling.ProviderRef) ([]scheduling.AppointmentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCaller = caller
	if s.err != nil {
		return nil, s.err
	}
	return []scheduling.AppointmentView{}, nil
}

func (s *stubAppointments) AvailableSlots(_ context.Context, rawID, rawKind, date string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotsArgs = [3]string{rawID, rawKind, date}
	if s.err != nil {
		return nil, s.err
	}
	return []string{"09:00", "09:30"}, nil
}

type harness struct {
	t         *testing.T
	r         *gin.Engine
	users     *memUsers
	appts     *stubAppointments
	doctors   *memProviders[models.Doctor]
	labs      *memProviders[models.Lab]
	hospitals *memProviders[models.Hospital]
	tokens    *utils.TokenManager
	healthErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := utils.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	hs := &harness{
		t:         t,
		users:     newMemUsers(),
		appts:     &stubAppointments{},
		doctors:   newMemProviders(models.KindDoctor, func(d *models.Doctor) *models.ProviderBase { return &d.ProviderBase }),
		labs:      newMemProviders(models.KindLab, func(l *models.Lab) *models.ProviderBase { return &l.ProviderBase }),
		hospitals: newMemProviders(models.KindHospital, func(h *models.Hospital) *models.ProviderBase { return &h.ProviderBase }),
		tokens:    tokens,
	}
	h, err := NewHandler(Deps{
		Appointments: hs.appts,
		Users:        hs.users,
		Doctors:      hs.doctors,
		Labs:         hs.labs,
		Hospitals:    hs.hospitals,
		Tokens:       tokens,
		Phones:       utils.NewPhoneNormalizer("US"),
		BcryptCost:   bcrypt.MinCost,
		Health:       func(context.Context) error { return hs.healthErr },
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	hs.r = gin.New()
	hs.r.Use(middleware.RequestID(), middleware.Recovery(zerolog.Nop()))
	h.RegisterRoutes(hs.r)
	return hs
}

func (hs *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	hs.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(hs.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	return w
}

func (hs *harness) addUser(role string, profile *models.ProviderProfile) *models.User {
	hs.t.Helper()
	u := &models.User{
		FullName:        "Test " + role,
		Email:           primitive.NewObjectID().Hex() + "@example.com",
		Role:            role,
		ProviderProfile: profile,
	}
	require.NoError(hs.t, hs.users.Create(context.Background(), u))
	return u
}

func (hs *harness) token(u *models.User) string {
	hs.t.Helper()
	claims := utils.Claims{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role}
	if p := u.ProviderProfile; p != nil {
		claims.ProviderID = p.ProviderID.Hex()
		claims.ProviderModel = string(p.ProviderModel)
	}
	tok, err := hs.tokens.Generate(claims)
	require.NoError(hs.t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
