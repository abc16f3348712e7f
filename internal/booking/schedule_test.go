package booking

import (
	"context"
	"testing"
	"time"

	"ai_receptionist/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday
var testNow = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"today", "2024-03-06", false},
		{"Tomorrow", "2024-03-07", false},
		{"Monday", "2024-03-11", false},
		{"wednesday", "2024-03-13", false},
		{"next friday", "2024-03-08", false},
		{"03/15/2024", "2024-03-15", false},
		{"March 20th", "2024-03-20", false},
		{"March 1", "2025-03-01", false},
		{"02/30/2024", "", true},
		{"13/01/2024", "", true},
		{"someday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ResolveDate(tt.raw, testNow, time.UTC)
			if tt.wantErr {
				assert.ErrorIs(t, err, pkg.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestResolveClock(t *testing.T) {
	tests := []struct {
		raw     string
		hour    int
		minute  int
		wantErr bool
	}{
		{"2 PM", 14, 0, false},
		{"10:30 am", 10, 30, false},
		{"12 pm", 12, 0, false},
		{"12am", 0, 0, false},
		{"morning", 9, 0, false},
		{"noon", 12, 0, false},
		{"afternoon", 14, 0, false},
		{"evening", 17, 0, false},
		{"3", 15, 0, false},
		{"14:00", 14, 0, false},
		{"13 pm", 0, 0, true},
		{"25:00", 0, 0, true},
		{"soon", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			hour, minute, err := ResolveClock(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, pkg.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestResolveStart(t *testing.T) {
	start, err := ResolveStart("tomorrow", "2:30 PM", testNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 14, 30, 0, 0, time.UTC), start)
}

func TestBusinessHours_Allows(t *testing.T) {
	hours := DefaultBusinessHours()

	assert.True(t, hours.Allows(time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)))
	assert.True(t, hours.Allows(time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)), "saturday")
	assert.False(t, hours.Allows(time.Date(2024, 3, 7, 16, 30, 0, 0, time.UTC)))
	assert.False(t, hours.Allows(time.Date(2024, 3, 7, 8, 59, 0, 0, time.UTC)))
	assert.False(t, hours.Allows(time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)), "sunday")
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	cal := NewMemoryCalendar()
	_, err := cal.BookSlot(ctx, pkg.Appointment{
		Customer:        pkg.Customer{Name: "Jane"},
		Start:           time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	from := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	slots, err := Availability(ctx, cal, DefaultBusinessHours(), from, from.AddDate(0, 0, 1), 60)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	assert.Equal(t, "09:00", slots[0].Time)
	assert.True(t, slots[0].Available)
	assert.Equal(t, "10:00", slots[1].Time)
	assert.False(t, slots[1].Available)
	assert.Equal(t, "16:00", slots[7].Time)

	sunday := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	slots, err = Availability(ctx, cal, DefaultBusinessHours(), sunday, sunday.AddDate(0, 0, 1), 60)
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = Availability(ctx, cal, DefaultBusinessHours(), from, from, 60)
	assert.ErrorIs(t, err, pkg.ErrMalformedInput)
}
