package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ai_receptionist/pkg"

	"github.com/google/uuid"
)

// Calendar is the appointment collaborator
type Calendar interface {
	// BookSlot stores an appointment, failing with pkg.ErrSlotUnavailable on overlap
	BookSlot(ctx context.Context, appt pkg.Appointment) (pkg.Appointment, error)
	// FindActive returns the caller's latest active appointment or pkg.ErrAppointmentNotFound
	FindActive(ctx context.Context, customer pkg.Customer) (pkg.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) error
	Appointments(ctx context.Context, from, to time.Time) ([]pkg.Appointment, error)
}

// CRM is the lead collaborator
type CRM interface {
	UpsertLead(ctx context.Context, lead pkg.Lead) (string, error)
}

// MemoryCalendar is an in-process calendar
type MemoryCalendar struct {
	mu           sync.Mutex
	appointments []pkg.Appointment
	now          func() time.Time
}

// NewMemoryCalendar creates an empty calendar
func NewMemoryCalendar() *MemoryCalendar {
	return &MemoryCalendar{now: time.Now}
}

// BookSlot implements Calendar
func (c *MemoryCalendar) BookSlot(ctx context.Context, appt pkg.Appointment) (pkg.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if overlapsAny(c.appointments, appt.Start, appt.DurationMinutes) {
		return pkg.Appointment{}, fmt.Errorf("%w: %s", pkg.ErrSlotUnavailable, appt.Start.Format(time.RFC3339))
	}

	appt.ID = "apt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	appt.Status = pkg.AppointmentScheduled
	appt.CreatedAt = c.now()
	c.appointments = append(c.appointments, appt)
	return appt, nil
}

// FindActive returns the most recently booked active appointment, matched by
// phone when known and by case-insensitive name otherwise
func (c *MemoryCalendar) FindActive(ctx context.Context, customer pkg.Customer) (pkg.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := strings.ToLower(strings.TrimSpace(customer.Name))
	var matches []pkg.Appointment
	for _, appt := range c.appointments {
		if !appt.Active() {
			continue
		}
		switch {
		case customer.Phone != "":
			if appt.Customer.Phone == customer.Phone {
				matches = append(matches, appt)
			}
		case name != "":
			if strings.ToLower(appt.Customer.Name) == name {
				matches = append(matches, appt)
			}
		}
	}
	if len(matches) == 0 {
		return pkg.Appointment{}, pkg.ErrAppointmentNotFound
	}

	sort.Slice(matches, func(a, b int) bool { return matches[a].CreatedAt.After(matches[b].CreatedAt) })
	return matches[0], nil
}

// Cancel implements Calendar
func (c *MemoryCalendar) Cancel(ctx context.Context, appointmentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.appointments {
		if c.appointments[i].ID == appointmentID && c.appointments[i].Active() {
			c.appointments[i].Status = pkg.AppointmentCancelled
			return nil
		}
	}
	return fmt.Errorf("%w: %s", pkg.ErrAppointmentNotFound, appointmentID)
}

// Appointments implements Calendar
func (c *MemoryCalendar) Appointments(ctx context.Context, from, to time.Time) ([]pkg.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []pkg.Appointment{}
	for _, appt := range c.appointments {
		if appt.Active() && !appt.Start.Before(from) && appt.Start.Before(to) {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start.Before(out[b].Start) })
	return out, nil
}

// NopCRM accepts every lead without forwarding it anywhere
type NopCRM struct{}

// NopLeadMessage is logged when leads are not forwarded
const NopLeadMessage = "Lead data captured (no CRM integration configured)"

// UpsertLead implements CRM
func (NopCRM) UpsertLead(ctx context.Context, lead pkg.Lead) (string, error) {
	return "", nil
}
