package booking

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ai_receptionist/pkg"
)

// BusinessHours bounds when an appointment may start
type BusinessHours struct {
	FirstStart int // hour of the first bookable start
	LastStart  int // hour of the last bookable start
	Days       map[time.Weekday]bool
}

// DefaultBusinessHours opens Monday through Saturday with starts from 9:00 to 16:00
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		FirstStart: 9,
		LastStart:  16,
		Days: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
			time.Saturday:  true,
		},
	}
}

// Allows reports whether start is a bookable start time
func (h BusinessHours) Allows(start time.Time) bool {
	if !h.Days[start.Weekday()] {
		return false
	}
	minutes := start.Hour()*60 + start.Minute()
	return minutes >= h.FirstStart*60 && minutes <= h.LastStart*60
}

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	monthDay  = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?$`)
	clockTime = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

var dayParts = map[string]int{
	"morning":   9,
	"noon":      12,
	"afternoon": 14,
	"evening":   17,
}

// ResolveDate turns a spoken date into a calendar day in loc. Weekday names
// resolve to their next occurrence after today.
func ResolveDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	text := strings.ToLower(strings.TrimSpace(raw))
	text = strings.TrimPrefix(text, "next ")
	text = strings.TrimPrefix(text, "this ")

	switch text {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if text == strings.ToLower(wd.String()) {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return today.AddDate(0, 0, ahead), nil
		}
	}

	if m := slashDate.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return calendarDay(year, time.Month(month), day, loc, raw)
	}

	if m := monthDay.FindStringSubmatch(text); m != nil {
		month, err := time.Parse("January", strings.ToUpper(m[1][:1])+m[1][1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown month in %q", pkg.ErrMalformedInput, raw)
		}
		day, _ := strconv.Atoi(m[2])
		date, err := calendarDay(today.Year(), month.Month(), day, loc, raw)
		if err != nil {
			return time.Time{}, err
		}
		if date.Before(today) {
			date = date.AddDate(1, 0, 0)
		}
		return date, nil
	}

	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", pkg.ErrMalformedInput, raw)
}

func calendarDay(year int, month time.Month, day int, loc *time.Location, raw string) (time.Time, error) {
	date := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if month < time.January || month > time.December || date.Day() != day {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", pkg.ErrMalformedInput, raw)
	}
	return date, nil
}

// ResolveClock turns a spoken time into hour and minute
func ResolveClock(raw string) (int, int, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if hour, ok := dayParts[text]; ok {
		return hour, 0, nil
	}

	m := clockTime.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: unrecognized time %q", pkg.ErrMalformedInput, raw)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	if m[3] != "" && (hour < 1 || hour > 12) {
		return 0, 0, fmt.Errorf("%w: invalid time %q", pkg.ErrMalformedInput, raw)
	}

	switch m[3] {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	default:
		// without am/pm, hours before 8 are read as afternoon
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid time %q", pkg.ErrMalformedInput, raw)
	}
	return hour, minute, nil
}

// ResolveStart combines a spoken date and time into an instant in loc
func ResolveStart(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	day, err := ResolveDate(date, now, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ResolveClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// Availability lists hourly slots in [from, to) marked against existing appointments
func Availability(ctx context.Context, cal Calendar, hours BusinessHours, from, to time.Time, durationMinutes int) ([]pkg.Slot, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty availability window", pkg.ErrMalformedInput)
	}
	if to.Sub(from) > 31*24*time.Hour {
		return nil, fmt.Errorf("%w: availability window longer than 31 days", pkg.ErrMalformedInput)
	}

	booked, err := cal.Appointments(ctx, from.Add(-24*time.Hour), to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrCollaboratorUnavailable, err)
	}

	loc := from.Location()
	slots := []pkg.Slot{}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		for hour := hours.FirstStart; hour <= hours.LastStart; hour++ {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
			if start.Before(from) || !start.Before(to) || !hours.Allows(start) {
				continue
			}
			slots = append(slots, pkg.Slot{
				Start:           start,
				Date:            start.Format("2006-01-02"),
				Time:            start.Format("15:04"),
				DurationMinutes: durationMinutes,
				Available:       !overlapsAny(booked, start, durationMinutes),
			})
		}
	}
	return slots, nil
}

func overlapsAny(appointments []pkg.Appointment, start time.Time, durationMinutes int) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, appt := range appointments {
		if appt.Active() && appt.Start.Before(end) && appt.End().After(start) {
			return true
		}
	}
	return false
}
