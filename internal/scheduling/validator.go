package scheduling

import (
	"time"

	"github.com/harentsoaR/wellness-api/internal/models"
)

// SlotDecision is the outcome of an admitted booking time.
type SlotDecision struct {
	Date    string
	Time    string
	Instant time.Time
	Slot    models.AvailabilitySlot
}

// ValidateSlot decides whether date ("YYYY-MM-DD") and clock ("HH:mm") are
// bookable against the provider's availability.
//
// A time is admitted when the date is not blacked out, a slot exists on its
// weekday whose half-open range [start, end) contains the time, and the offset
// from that slot's start is a multiple of the slot duration. When a weekday has
// several slots, the one containing the requested time is used.
func ValidateSlot(view *ProviderView, date, clock string) (*SlotDecision, error) {
	av := availabilityOf(view)
	if av == nil {
		return nil, ErrNoAvailability
	}

	instant, err := time.ParseInLocation(dateTimeLayout, date+" "+clock, time.UTC)
	if err != nil || instant.Format(dateTimeLayout) != date+" "+clock {
		return nil, ErrInvalidDateTime.WithMessage("invalid date/time %q %q, expected YYYY-MM-DD HH:mm", date, clock)
	}

	if blackedOut(av, date) {
		return nil, ErrUnavailableOnDate.WithMessage("provider is unavailable on %s", date)
	}

	weekday := instant.Weekday().String()
	daySlots := slotsOn(av, weekday)
	if len(daySlots) == 0 {
		return nil, ErrNoSlotOnWeekday.WithMessage("provider has no availability on %s", weekday)
	}

	requested := instant.Hour()*60 + instant.Minute()
	for _, slot := range daySlots {
		start, okStart := parseClock(slot.StartTime)
		end, okEnd := parseClock(slot.EndTime)
		if !okStart || !okEnd || requested < start || requested >= end {
			continue
		}
		if (requested-start)%av.SlotDurationMinutes != 0 {
			return nil, ErrMisalignedSlot.WithMessage(
				"%s is not on a %d-minute boundary from %s", clock, av.SlotDurationMinutes, slot.StartTime)
		}
		return &SlotDecision{Date: date, Time: clock, Instant: instant, Slot: slot}, nil
	}
	return nil, ErrOutsideWorkingHours.WithMessage("%s is outside working hours on %s", clock, weekday)
}

// OpenSlots lists the admissible start times on date that are not in taken.
// A blacked out date or a weekday without slots yields an empty list.
func OpenSlots(view *ProviderView, date string, taken map[string]bool) ([]string, error) {
	av := availabilityOf(view)
	if av == nil {
		return nil, ErrNoAvailability
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil || day.Format(DateLayout) != date {
		return nil, ErrInvalidDateTime.WithMessage("invalid date %q, expected YYYY-MM-DD", date)
	}

	open := []string{}
	if blackedOut(av, date) {
		return open, nil
	}
	for _, slot := range slotsOn(av, day.Weekday().String()) {
		start, okStart := parseClock(slot.StartTime)
		end, okEnd := parseClock(slot.EndTime)
		if !okStart || !okEnd {
			continue
		}
		for m := start; m < end; m += av.SlotDurationMinutes {
			if t := formatClock(m); !taken[t] {
				open = append(open, t)
			}
		}
	}
	return open, nil
}

func availabilityOf(view *ProviderView) *models.Availability {
	if view == nil || view.Availability == nil {
		return nil
	}
	av := view.Availability
	if len(av.Slots) == 0 || av.SlotDurationMinutes < 1 {
		return nil
	}
	return av
}

func blackedOut(av *models.Availability, date string) bool {
	for _, raw := range av.UnavailableDates {
		if d, ok := ParseDate(raw); ok && d == date {
			return true
		}
	}
	return false
}

func slotsOn(av *models.Availability, weekday string) []models.AvailabilitySlot {
	var out []models.AvailabilitySlot
	for _, s := range av.Slots {
		if day, ok := canonicalWeekday(s.DayOfWeek); ok && day == weekday {
			out = append(out, s)
		}
	}
	return out
}
