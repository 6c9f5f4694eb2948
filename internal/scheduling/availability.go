package scheduling

import (
	"sort"
	"strings"
	"time"

	"github.com/harentsoaR/wellness-api/internal/models"
)

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	dateTimeLayout = DateLayout + " " + ClockLayout
)

// parseClock returns minutes since midnight for a strict "HH:mm" string.
func parseClock(s string) (int, bool) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil || t.Format(ClockLayout) != s {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func formatClock(minutes int) string {
	return time.Date(0, 1, 1, 0, minutes, 0, 0, time.UTC).Format(ClockLayout)
}

// ParseDate accepts a calendar date as "YYYY-MM-DD" or as an RFC3339
// timestamp and returns its "YYYY-MM-DD" form.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil && t.Format(DateLayout) == s {
		return s, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), true
	}
	return "", false
}

func canonicalWeekday(s string) (string, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d.String(), true
		}
	}
	return "", false
}

// NormalizeAvailability validates an availability replacement and returns it
// in canonical form: weekday names capitalised, slots ordered by weekday and
// start, blackout dates as sorted unique "YYYY-MM-DD" strings. Two slots on
// the same weekday may not overlap.
func NormalizeAvailability(in models.Availability) (models.Availability, error) {
	if in.SlotDurationMinutes < 1 {
		return models.Availability{}, ErrInvalidAvailability.WithMessage("slotDurationMinutes must be at least 1")
	}

	type span struct {
		day        time.Weekday
		start, end int
		slot       models.AvailabilitySlot
	}
	spans := make([]span, 0, len(in.Slots))
	for _, s := range in.Slots {
		day, ok := canonicalWeekday(s.DayOfWeek)
		if !ok {
			return models.Availability{}, ErrInvalidAvailability.WithMessage("unknown dayOfWeek %q", s.DayOfWeek)
		}
		start, okStart := parseClock(s.StartTime)
		end, okEnd := parseClock(s.EndTime)
		if !okStart || !okEnd {
			return models.Availability{}, ErrInvalidAvailability.WithMessage("slot times must be HH:mm, got %q-%q", s.StartTime, s.EndTime)
		}
		if start >= end {
			return models.Availability{}, ErrInvalidAvailability.WithMessage("slot on %s starts at or after its end", day)
		}
		spans = append(spans, span{
			day:   weekdayIndex(day),
			start: start,
			end:   end,
			slot:  models.AvailabilitySlot{DayOfWeek: day, StartTime: s.StartTime, EndTime: s.EndTime},
		})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].day != spans[j].day {
			return spans[i].day < spans[j].day
		}
		return spans[i].start < spans[j].start
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if prev.day == cur.day && cur.start < prev.end {
			return models.Availability{}, ErrInvalidAvailability.WithMessage(
				"slots %s-%s and %s-%s overlap on %s",
				prev.slot.StartTime, prev.slot.EndTime, cur.slot.StartTime, cur.slot.EndTime, cur.slot.DayOfWeek)
		}
	}

	out := models.Availability{
		Slots:               make([]models.AvailabilitySlot, 0, len(spans)),
		SlotDurationMinutes: in.SlotDurationMinutes,
		UnavailableDates:    []string{},
	}
	for _, s := range spans {
		out.Slots = append(out.Slots, s.slot)
	}

	seen := make(map[string]bool, len(in.UnavailableDates))
	for _, raw := range in.UnavailableDates {
		d, ok := ParseDate(raw)
		if !ok {
			return models.Availability{}, ErrInvalidAvailability.WithMessage("unavailable date %q is not a calendar date", raw)
		}
		if !seen[d] {
			seen[d] = true
			out.UnavailableDates = append(out.UnavailableDates, d)
		}
	}
	sort.Strings(out.UnavailableDates)
	return out, nil
}

func weekdayIndex(name string) time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d
		}
	}
	return time.Sunday
}

// NormalizeServices validates a services replacement. Names are trimmed and
// must be unique; prices may not be negative.
func NormalizeServices(in []models.Service) ([]models.Service, error) {
	out := make([]models.Service, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, ErrInvalidServices.WithMessage("service name is required")
		}
		if s.Price < 0 {
			return nil, ErrInvalidServices.WithMessage("price of %q must not be negative", name)
		}
		if seen[name] {
			return nil, ErrInvalidServices.WithMessage("duplicate service %q", name)
		}
		seen[name] = true
		out = append(out, models.Service{Name: name, Price: s.Price})
	}
	return out, nil
}

// ValidClock reports whether s is a strict 24-hour "HH:mm" time.
func ValidClock(s string) bool {
	_, ok := parseClock(s)
	return ok
}
