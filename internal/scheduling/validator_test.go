package scheduling

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/wellness-api/internal/models"
)

// 2024-01-01 is a Monday.
const monday = "2024-01-01"

func mondayView(unavailable ...string) *ProviderView {
	return &ProviderView{
		Name: "Dr. Rao",
		Availability: &models.Availability{
			Slots:               []models.AvailabilitySlot{{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "17:00"}},
			SlotDurationMinutes: 30,
			UnavailableDates:    unavailable,
		},
	}
}

func TestValidateSlot_MondayScenario(t *testing.T) {
	view := mondayView()

	decision, err := ValidateSlot(view, monday, "09:00")
	require.NoError(t, err)
	assert.Equal(t, monday, decision.Date)
	assert.Equal(t, "09:00", decision.Time)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), decision.Instant)
	assert.Equal(t, "Monday", decision.Slot.DayOfWeek)

	_, err = ValidateSlot(view, monday, "09:15")
	assert.ErrorIs(t, err, ErrMisalignedSlot)

	_, err = ValidateSlot(view, monday, "17:00")
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)

	_, err = ValidateSlot(view, monday, "16:30")
	assert.NoError(t, err, "last aligned start inside the half-open range")
}

func TestValidateSlot_Blackout(t *testing.T) {
	_, err := ValidateSlot(mondayView(monday), monday, "09:00")
	assert.ErrorIs(t, err, ErrUnavailableOnDate)

	_, err = ValidateSlot(mondayView("2024-01-01T00:00:00Z"), monday, "09:00")
	assert.ErrorIs(t, err, ErrUnavailableOnDate, "legacy timestamp blackout entries match by day")

	_, err = ValidateSlot(mondayView("2024-01-08"), monday, "09:00")
	assert.NoError(t, err)
}

func TestValidateSlot_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		view  *ProviderView
		date  string
		clock string
		want  error
	}{
		{"nil availability", &ProviderView{}, monday, "09:00", ErrNoAvailability},
		{"zero slots", &ProviderView{Availability: &models.Availability{SlotDurationMinutes: 30}}, monday, "09:00", ErrNoAvailability},
		{"bad date", mondayView(), "2024-13-01", "09:00", ErrInvalidDateTime},
		{"unpadded hour", mondayView(), monday, "9:00", ErrInvalidDateTime},
		{"day out of range", mondayView(), "2024-02-30", "09:00", ErrInvalidDateTime},
		{"garbage time", mondayView(), monday, "nine", ErrInvalidDateTime},
		{"tuesday", mondayView(), "2024-01-02", "09:00", ErrNoSlotOnWeekday},
		{"before opening", mondayView(), monday, "08:30", ErrOutsideWorkingHours},
		{"misaligned", mondayView(), monday, "10:10", ErrMisalignedSlot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSlot(tc.view, tc.date, tc.clock)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateSlot_SplitDay(t *testing.T) {
	view := &ProviderView{Availability: &models.Availability{
		Slots: []models.AvailabilitySlot{
			{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "monday", StartTime: "14:15", EndTime: "18:00"},
		},
		SlotDurationMinutes: 30,
	}}

	decision, err := ValidateSlot(view, monday, "14:45")
	require.NoError(t, err)
	assert.Equal(t, "14:15", decision.Slot.StartTime, "evening slot is matched by range, not first by weekday")

	_, err = ValidateSlot(view, monday, "15:00")
	assert.ErrorIs(t, err, ErrMisalignedSlot, "alignment is measured from the containing slot")

	_, err = ValidateSlot(view, monday, "13:00")
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)
}

func TestOpenSlots(t *testing.T) {
	view := mondayView()
	open, err := OpenSlots(view, monday, map[string]bool{"09:30": true})
	require.NoError(t, err)
	assert.Len(t, open, 15)
	assert.Equal(t, "09:00", open[0])
	assert.Equal(t, "10:00", open[1])
	assert.Equal(t, "16:30", open[len(open)-1])

	open, err = OpenSlots(mondayView(monday), monday, nil)
	require.NoError(t, err)
	assert.Empty(t, open)

	open, err = OpenSlots(view, "2024-01-02", nil)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = OpenSlots(view, "01/01/2024", nil)
	assert.ErrorIs(t, err, ErrInvalidDateTime)
}

// acceptOracle restates the admission rule directly over minutes of the day.
func acceptOracle(av models.Availability, date string, minute int) bool {
	for _, d := range av.UnavailableDates {
		if d == date {
			return false
		}
	}
	day, _ := time.Parse(DateLayout, date)
	for _, s := range av.Slots {
		if s.DayOfWeek != day.Weekday().String() {
			continue
		}
		start, _ := parseClock(s.StartTime)
		end, _ := parseClock(s.EndTime)
		if minute >= start && minute < end && (minute-start)%av.SlotDurationMinutes == 0 {
			return true
		}
	}
	return false
}

func randomAvailability(rng *rand.Rand, base time.Time) (models.Availability, bool) {
	durations := []int{1, 5, 10, 15, 20, 30, 45, 60, 90}
	av := models.Availability{SlotDurationMinutes: durations[rng.Intn(len(durations))]}
	for i := rng.Intn(6) + 1; i > 0; i-- {
		start := rng.Intn(24*60 - 1)
		end := start + 1 + rng.Intn(24*60-1-start)
		av.Slots = append(av.Slots, models.AvailabilitySlot{
			DayOfWeek: time.Weekday(rng.Intn(7)).String(),
			StartTime: formatClock(start),
			EndTime:   formatClock(end),
		})
	}
	for i := rng.Intn(4); i > 0; i-- {
		av.UnavailableDates = append(av.UnavailableDates, base.AddDate(0, 0, rng.Intn(14)).Format(DateLayout))
	}
	normalized, err := NormalizeAvailability(av)
	return normalized, err == nil
}

func TestValidateSlot_MatchesOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(20240101))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	configs := 0
	for configs < 200 {
		av, ok := randomAvailability(rng, base)
		if !ok {
			continue
		}
		configs++
		view := &ProviderView{Availability: &av}

		for i := 0; i < 50; i++ {
			date := base.AddDate(0, 0, rng.Intn(14)).Format(DateLayout)
			minute := rng.Intn(24 * 60)
			_, err := ValidateSlot(view, date, formatClock(minute))
			want := acceptOracle(av, date, minute)
			if want {
				require.NoError(t, err, "%+v %s %s", av, date, formatClock(minute))
			} else {
				require.Error(t, err, "%+v %s %s", av, date, formatClock(minute))
				require.False(t, errors.Is(err, ErrInvalidDateTime))
			}
		}
	}
}

func TestOpenSlots_AgreesWithValidateSlot(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	for n := 0; n < 40; {
		av, ok := randomAvailability(rng, base)
		if !ok {
			continue
		}
		n++
		view := &ProviderView{Availability: &av}
		date := base.AddDate(0, 0, rng.Intn(14)).Format(DateLayout)

		open, err := OpenSlots(view, date, nil)
		require.NoError(t, err)

		var admitted []string
		for m := 0; m < 24*60; m++ {
			if _, err := ValidateSlot(view, date, formatClock(m)); err == nil {
				admitted = append(admitted, formatClock(m))
			}
		}
		assert.ElementsMatch(t, admitted, open)
	}
}
