package pkg

import (
	"regexp"
	"time"
)

// Call statuses
const (
	CallActive    = "active"
	CallCompleted = "completed"
)

// CallRecord is the persisted summary of one session's call
type CallRecord struct {
	SessionID         string             `json:"session_id"`
	CallerName        string             `json:"caller_name,omitempty"`
	CallerPhone       string             `json:"caller_phone,omitempty"`
	CallerEmail       string             `json:"caller_email,omitempty"`
	StartTime         time.Time          `json:"start_time"`
	EndTime           *time.Time         `json:"end_time,omitempty"`
	DurationSeconds   int                `json:"duration_seconds,omitempty"`
	Status            string             `json:"call_status"`
	PrimaryIntent     Intent             `json:"primary_intent,omitempty"`
	History           []ConversationTurn `json:"conversation_history"`
	AppointmentBooked bool               `json:"appointment_booked"`
	BookingReference  string             `json:"booking_reference,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ContextBookingReference is the context key holding the confirmed booking id
const ContextBookingReference = "booking_reference"

// CallRecordFromState summarizes a session for persistence
func CallRecordFromState(s *DialogueState) CallRecord {
	record := CallRecord{
		SessionID:     s.SessionID,
		CallerName:    s.UserInfo.Name,
		CallerPhone:   s.UserInfo.Phone,
		CallerEmail:   s.UserInfo.Email,
		StartTime:     s.CreatedAt,
		Status:        CallActive,
		PrimaryIntent: PrimaryIntent(s.History),
		History:       s.History,
		UpdatedAt:     s.LastActivity,
	}

	if ref, ok := s.Context[ContextBookingReference].(string); ok && ref != "" {
		record.AppointmentBooked = true
		record.BookingReference = ref
	}

	if s.Phase == PhaseCompleted {
		end := s.LastActivity
		record.EndTime = &end
		record.Status = CallCompleted
		record.DurationSeconds = int(end.Sub(s.CreatedAt).Seconds())
	}
	return record
}

// PrimaryIntent is the most frequent known intent of a conversation; ties go
// to the intent seen first.
func PrimaryIntent(history []ConversationTurn) Intent {
	counts := make(map[Intent]int)
	var order []Intent
	for _, turn := range history {
		if turn.Intent == "" || turn.Intent == IntentUnknown {
			continue
		}
		if counts[turn.Intent] == 0 {
			order = append(order, turn.Intent)
		}
		counts[turn.Intent]++
	}

	var best Intent
	for _, intent := range order {
		if counts[intent] > counts[best] {
			best = intent
		}
	}
	return best
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// ValidSessionID reports whether a caller-supplied id is usable as a key
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
