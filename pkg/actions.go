package pkg

import "time"

// ActionType tags the action a turn raised for the booking emitter
type ActionType string

const (
	ActionNone    ActionType = ""
	ActionCancel  ActionType = "appointment_cancel"
	ActionConfirm ActionType = "appointment_confirm"
	ActionBook    ActionType = "appointment_book"
)

// Action is the tagged union of turn actions. Each variant carries only the
// fields its handler needs.
type Action interface {
	Type() ActionType
	isAction()
}

// NoAction is raised by turns that need nothing from the emitter
type NoAction struct{}

// CancelAction asks the emitter to cancel the caller's appointment
type CancelAction struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// ConfirmAction carries the collected slots while the caller is asked to confirm
type ConfirmAction struct {
	Booking BookingDetails `json:"booking"`
}

// BookingAction commits a confirmed booking
type BookingAction struct {
	Booking BookingDetails `json:"booking"`
}

func (NoAction) Type() ActionType      { return ActionNone }
func (CancelAction) Type() ActionType  { return ActionCancel }
func (ConfirmAction) Type() ActionType { return ActionConfirm }
func (BookingAction) Type() ActionType { return ActionBook }

func (NoAction) isAction()      {}
func (CancelAction) isAction()  {}
func (ConfirmAction) isAction() {}
func (BookingAction) isAction() {}

// BookingDetails is the canonical slot payload sent to calendar and CRM collaborators
type BookingDetails struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty"`
	Service         string `json:"service"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// BookingFromState builds the slot payload from a session
func BookingFromState(s *DialogueState, defaultDuration int) BookingDetails {
	duration := s.AppointmentDetails.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	return BookingDetails{
		Name:            s.UserInfo.Name,
		Phone:           s.UserInfo.Phone,
		Email:           s.UserInfo.Email,
		Service:         s.AppointmentDetails.ServiceType,
		Date:            s.AppointmentDetails.PreferredDate,
		Time:            s.AppointmentDetails.PreferredTime,
		DurationMinutes: duration,
		SpecialRequests: s.AppointmentDetails.SpecialRequests,
	}
}

// ActionResult is the outcome of an emitted action
type ActionResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ExternalID string `json:"external_id,omitempty"`
}

// Customer identifies the person a booking or lead belongs to
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Lead is the CRM payload, always expressed in canonical slot names
type Lead struct {
	Customer
	Service string `json:"service,omitempty"`
	Source  string `json:"source,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Slot is a bookable calendar slot
type Slot struct {
	Start           time.Time `json:"datetime"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Available       bool      `json:"available"`
}

// Appointment is a booked calendar entry
type Appointment struct {
	ID              string    `json:"id"`
	Customer        Customer  `json:"customer"`
	Service         string    `json:"service"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"` // scheduled, confirmed, cancelled, completed
	SessionID       string    `json:"session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

// Active reports whether the appointment still blocks its slot
func (a Appointment) Active() bool {
	return a.Status == AppointmentScheduled || a.Status == AppointmentConfirmed
}

// End is the end of the appointment
func (a Appointment) End() time.Time {
	return a.Start.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
