package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/wellness-api/internal/models"
)

func TestNormalizeAvailability(t *testing.T) {
	out, err := NormalizeAvailability(models.Availability{
		Slots: []models.AvailabilitySlot{
			{DayOfWeek: "wednesday", StartTime: "10:00", EndTime: "12:00"},
			{DayOfWeek: "MONDAY", StartTime: "14:00", EndTime: "18:00"},
			{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "12:00"},
		},
		SlotDurationMinutes: 15,
		UnavailableDates:    []string{"2024-05-02", "2024-05-01T10:00:00Z", "2024-05-02"},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.AvailabilitySlot{
		{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "Monday", StartTime: "14:00", EndTime: "18:00"},
		{DayOfWeek: "Wednesday", StartTime: "10:00", EndTime: "12:00"},
	}, out.Slots)
	assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, out.UnavailableDates)
	assert.Equal(t, 15, out.SlotDurationMinutes)
}

func TestNormalizeAvailability_Rejects(t *testing.T) {
	slot := func(day, start, end string) []models.AvailabilitySlot {
		return []models.AvailabilitySlot{{DayOfWeek: day, StartTime: start, EndTime: end}}
	}
	cases := map[string]models.Availability{
		"zero duration": {Slots: slot("Monday", "09:00", "10:00")},
		"unknown day":   {Slots: slot("Funday", "09:00", "10:00"), SlotDurationMinutes: 30},
		"bad clock":     {Slots: slot("Monday", "9am", "10:00"), SlotDurationMinutes: 30},
		"24:00":         {Slots: slot("Monday", "09:00", "24:00"), SlotDurationMinutes: 30},
		"inverted":      {Slots: slot("Monday", "12:00", "09:00"), SlotDurationMinutes: 30},
		"empty range":   {Slots: slot("Monday", "09:00", "09:00"), SlotDurationMinutes: 30},
		"overlap": {
			Slots: []models.AvailabilitySlot{
				{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "12:00"},
				{DayOfWeek: "monday", StartTime: "11:30", EndTime: "13:00"},
			},
			SlotDurationMinutes: 30,
		},
		"bad blackout": {Slots: slot("Monday", "09:00", "10:00"), SlotDurationMinutes: 30, UnavailableDates: []string{"next week"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeAvailability(in)
			assert.ErrorIs(t, err, ErrInvalidAvailability)
		})
	}
}

func TestNormalizeAvailability_AdjacentSlotsAllowed(t *testing.T) {
	_, err := NormalizeAvailability(models.Availability{
		Slots: []models.AvailabilitySlot{
			{DayOfWeek: "Friday", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "Friday", StartTime: "12:00", EndTime: "15:00"},
		},
		SlotDurationMinutes: 60,
	})
	assert.NoError(t, err)
}

func TestNormalizeServices(t *testing.T) {
	out, err := NormalizeServices([]models.Service{{Name: " Consultation ", Price: 500}, {Name: "X-Ray", Price: 0}})
	require.NoError(t, err)
	assert.Equal(t, []models.Service{{Name: "Consultation", Price: 500}, {Name: "X-Ray", Price: 0}}, out)

	_, err = NormalizeServices([]models.Service{{Name: "A", Price: 1}, {Name: "A ", Price: 2}})
	assert.ErrorIs(t, err, ErrInvalidServices)
	_, err = NormalizeServices([]models.Service{{Name: "A", Price: -1}})
	assert.ErrorIs(t, err, ErrInvalidServices)
	_, err = NormalizeServices([]models.Service{{Name: "  "}})
	assert.ErrorIs(t, err, ErrInvalidServices)

	out, err = NormalizeServices(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseProviderRef_KindCheckedFirst(t *testing.T) {
	_, err := ParseProviderRef("not-an-id", "pharmacy")
	assert.ErrorIs(t, err, ErrInvalidProviderKind)

	_, err = ParseProviderRef("not-an-id", "lab")
	assert.ErrorIs(t, err, ErrInvalidID)

	ref, err := ParseProviderRef("65a1b2c3d4e5f60718293a4b", "HOSPITAL")
	require.NoError(t, err)
	assert.Equal(t, models.KindHospital, ref.Kind)
}

func TestResolveService(t *testing.T) {
	view := &ProviderView{Name: "City Lab", Services: []models.Service{{Name: "Blood Test", Price: 250}}}
	s, err := ResolveService(view, "Blood Test")
	require.NoError(t, err)
	assert.Equal(t, 250.0, s.Price)

	_, err = ResolveService(view, "blood test")
	assert.ErrorIs(t, err, ErrServiceNotOffered, "match is exact")
}
