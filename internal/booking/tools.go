package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// Tool names
const (
	ToolUpsertLead        = "upsert_lead"
	ToolBookAppointment   = "book_appointment"
	ToolCancelAppointment = "cancel_appointment"
	ToolCheckAvailability = "check_availability"
)

// Outcome reasons reported by the tools
const (
	ReasonSlotUnavailable    = "slot_unavailable"
	ReasonOutsideHours       = "outside_business_hours"
	ReasonUnresolvedDateTime = "unresolved_datetime"
	ReasonNotFound           = "appointment_not_found"
	ReasonInvalid            = "invalid_request"
	ReasonUnavailable        = "collaborator_unavailable"
)

// BookRequest is the book_appointment argument
type BookRequest struct {
	pkg.BookingDetails
	SessionID string `json:"session_id,omitempty" jsonschema:"description=conversation the booking came from"`
}

// CancelRequest is the cancel_appointment argument
type CancelRequest struct {
	Name  string `json:"name" jsonschema:"description=customer name on the appointment"`
	Phone string `json:"phone,omitempty" jsonschema:"description=customer phone number"`
}

// AvailabilityRequest is the check_availability argument
type AvailabilityRequest struct {
	From string `json:"from" jsonschema:"description=first day YYYY-MM-DD"`
	To   string `json:"to" jsonschema:"description=last day YYYY-MM-DD inclusive"`
}

// Outcome is what every booking tool returns. Domain failures are reported
// in Reason rather than as tool errors so they survive serialization.
type Outcome struct {
	Success     bool             `json:"success"`
	Reason      string           `json:"reason,omitempty"`
	Message     string           `json:"message"`
	ExternalID  string           `json:"external_id,omitempty"`
	Appointment *pkg.Appointment `json:"appointment,omitempty"`
	Slots       []pkg.Slot       `json:"slots,omitempty"`
}

// Scheduler owns the calendar rules shared by the booking tools
type Scheduler struct {
	Calendar        Calendar
	CRM             CRM
	Hours           BusinessHours
	Location        *time.Location
	DefaultDuration int
	Now             func() time.Time
}

// NewScheduler builds a scheduler for a business profile
func NewScheduler(cal Calendar, crm CRM, profile pkg.BusinessProfile) *Scheduler {
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil || profile.Timezone == "" {
		loc = time.Local
	}
	if crm == nil {
		crm = NopCRM{}
	}
	duration := profile.DefaultDuration
	if duration <= 0 {
		duration = 60
	}
	return &Scheduler{
		Calendar:        cal,
		CRM:             crm,
		Hours:           DefaultBusinessHours(),
		Location:        loc,
		DefaultDuration: duration,
		Now:             time.Now,
	}
}

// UpsertLead records the caller with the CRM
func (s *Scheduler) UpsertLead(ctx context.Context, lead pkg.Lead) (Outcome, error) {
	if lead.Phone == "" {
		return Outcome{Reason: ReasonInvalid, Message: "A phone number is required to save your details."}, nil
	}
	id, err := s.CRM.UpsertLead(ctx, lead)
	if err != nil {
		return Outcome{Reason: ReasonUnavailable, Message: "We could not save your contact details right now."}, nil
	}
	if id == "" {
		return Outcome{Success: true, Message: NopLeadMessage}, nil
	}
	return Outcome{Success: true, Message: "Lead saved", ExternalID: id}, nil
}

// Book resolves the requested slot and books it
func (s *Scheduler) Book(ctx context.Context, req BookRequest) (Outcome, error) {
	details := req.BookingDetails
	if details.Name == "" || details.Date == "" || details.Time == "" {
		return Outcome{Reason: ReasonInvalid, Message: "I'm missing some details needed to book the appointment."}, nil
	}

	start, err := ResolveStart(details.Date, details.Time, s.Now(), s.Location)
	if err != nil {
		return Outcome{
			Reason:  ReasonUnresolvedDateTime,
			Message: fmt.Sprintf("I couldn't work out the date and time from %q at %q. Could you say it another way, for example \"Monday at 2 PM\"?", details.Date, details.Time),
		}, nil
	}
	if !start.After(s.Now()) {
		return Outcome{Reason: ReasonUnresolvedDateTime, Message: "That time has already passed. Could you choose a later date or time?"}, nil
	}
	if !s.Hours.Allows(start) {
		return Outcome{
			Reason:  ReasonOutsideHours,
			Message: fmt.Sprintf("We can't book %s because it is outside our appointment hours. Could you pick another time?", start.Format("Monday, January 2 at 3:04 PM")),
		}, nil
	}

	duration := details.DurationMinutes
	if duration <= 0 {
		duration = s.DefaultDuration
	}

	appt, err := s.Calendar.BookSlot(ctx, pkg.Appointment{
		Customer:        pkg.Customer{Name: details.Name, Phone: details.Phone, Email: details.Email},
		Service:         details.Service,
		Start:           start,
		DurationMinutes: duration,
		SessionID:       req.SessionID,
	})
	switch {
	case errors.Is(err, pkg.ErrSlotUnavailable):
		return Outcome{
			Reason:  ReasonSlotUnavailable,
			Message: fmt.Sprintf("Sorry, %s is already taken. Would another time work for you?", start.Format("Monday, January 2 at 3:04 PM")),
		}, nil
	case err != nil:
		logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("Calendar booking failed")
		return Outcome{Reason: ReasonUnavailable, Message: "I'm sorry, I couldn't reach our booking system. Please try again in a moment."}, nil
	}

	return Outcome{
		Success:     true,
		Message:     fmt.Sprintf("Appointment booked for %s", appt.Start.Format("Monday, January 2 at 3:04 PM")),
		ExternalID:  appt.ID,
		Appointment: &appt,
	}, nil
}

// Cancel cancels the caller's latest active appointment
func (s *Scheduler) Cancel(ctx context.Context, req CancelRequest) (Outcome, error) {
	if req.Name == "" && req.Phone == "" {
		return Outcome{Reason: ReasonInvalid, Message: "I need your name to find the appointment."}, nil
	}

	appt, err := s.Calendar.FindActive(ctx, pkg.Customer{Name: req.Name, Phone: req.Phone})
	if err == nil {
		err = s.Calendar.Cancel(ctx, appt.ID)
	}
	switch {
	case errors.Is(err, pkg.ErrAppointmentNotFound):
		return Outcome{Reason: ReasonNotFound, Message: fmt.Sprintf("I couldn't find an upcoming appointment under the name %s.", req.Name)}, nil
	case err != nil:
		logger.Warn().Err(err).Msg("Calendar cancel failed")
		return Outcome{Reason: ReasonUnavailable, Message: "I'm sorry, I couldn't reach our booking system. Please try again in a moment."}, nil
	}

	appt.Status = pkg.AppointmentCancelled
	return Outcome{
		Success:     true,
		Message:     fmt.Sprintf("Your appointment on %s has been cancelled.", appt.Start.In(s.Location).Format("Monday, January 2 at 3:04 PM")),
		ExternalID:  appt.ID,
		Appointment: &appt,
	}, nil
}

// CheckAvailability lists slots between two days inclusive
func (s *Scheduler) CheckAvailability(ctx context.Context, req AvailabilityRequest) (Outcome, error) {
	from, err := time.ParseInLocation("2006-01-02", req.From, s.Location)
	if err != nil {
		return Outcome{Reason: ReasonInvalid, Message: "from must be YYYY-MM-DD"}, nil
	}
	to := from
	if req.To != "" {
		if to, err = time.ParseInLocation("2006-01-02", req.To, s.Location); err != nil {
			return Outcome{Reason: ReasonInvalid, Message: "to must be YYYY-MM-DD"}, nil
		}
	}

	slots, err := Availability(ctx, s.Calendar, s.Hours, from, to.AddDate(0, 0, 1), s.DefaultDuration)
	if errors.Is(err, pkg.ErrMalformedInput) {
		return Outcome{Reason: ReasonInvalid, Message: err.Error()}, nil
	}
	if err != nil {
		return Outcome{Reason: ReasonUnavailable, Message: "The calendar is unavailable right now."}, nil
	}

	open := 0
	for _, slot := range slots {
		if slot.Available {
			open++
		}
	}
	return Outcome{Success: true, Message: fmt.Sprintf("%d open slots", open), Slots: slots}, nil
}

// Tools exposes the scheduler as eino tools
func (s *Scheduler) Tools() ([]tool.InvokableTool, error) {
	lead, err := utils.InferTool(ToolUpsertLead, "Create or update the caller as a lead, keyed by phone number", s.UpsertLead)
	if err != nil {
		return nil, err
	}
	book, err := utils.InferTool(ToolBookAppointment, "Book an appointment for a customer at a spoken date and time", s.Book)
	if err != nil {
		return nil, err
	}
	cancel, err := utils.InferTool(ToolCancelAppointment, "Cancel the customer's most recent active appointment", s.Cancel)
	if err != nil {
		return nil, err
	}
	availability, err := utils.InferTool(ToolCheckAvailability, "List appointment slots between two days", s.CheckAvailability)
	if err != nil {
		return nil, err
	}
	return []tool.InvokableTool{lead, book, cancel, availability}, nil
}
