package booking

import (
	"context"
	"testing"
	"time"

	"ai_receptionist/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCalendar(t *testing.T) {
	ctx := context.Background()
	cal := NewMemoryCalendar()
	start := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	first, err := cal.BookSlot(ctx, pkg.Appointment{
		Customer:        pkg.Customer{Name: "Jane Smith", Phone: "555-123-4567"},
		Service:         "Consultation",
		Start:           start,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Contains(t, first.ID, "apt_")
	assert.Equal(t, pkg.AppointmentScheduled, first.Status)

	t.Run("overlap rejected", func(t *testing.T) {
		_, err := cal.BookSlot(ctx, pkg.Appointment{Start: start.Add(30 * time.Minute), DurationMinutes: 60})
		assert.ErrorIs(t, err, pkg.ErrSlotUnavailable)
	})

	t.Run("adjacent slot allowed", func(t *testing.T) {
		_, err := cal.BookSlot(ctx, pkg.Appointment{Customer: pkg.Customer{Name: "Bob"}, Start: start.Add(time.Hour), DurationMinutes: 60})
		assert.NoError(t, err)
	})

	t.Run("find by name or phone", func(t *testing.T) {
		found, err := cal.FindActive(ctx, pkg.Customer{Name: "jane smith"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)

		found, err = cal.FindActive(ctx, pkg.Customer{Phone: "555-123-4567"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)

		_, err = cal.FindActive(ctx, pkg.Customer{Name: "Nobody"})
		assert.ErrorIs(t, err, pkg.ErrAppointmentNotFound)
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		require.NoError(t, cal.Cancel(ctx, first.ID))
		assert.ErrorIs(t, cal.Cancel(ctx, first.ID), pkg.ErrAppointmentNotFound)

		listed, err := cal.Appointments(ctx, start.Add(-time.Hour), start.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Bob", listed[0].Customer.Name)

		_, err = cal.BookSlot(ctx, pkg.Appointment{Start: start, DurationMinutes: 60})
		assert.NoError(t, err)
	})
}

func TestNopCRM(t *testing.T) {
	id, err := NopCRM{}.UpsertLead(context.Background(), pkg.Lead{})
	assert.NoError(t, err)
	assert.Empty(t, id)
}
