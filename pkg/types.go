package pkg

import (
	"time"
)

// Dialogue core types for the receptionist

// Intent is the coarse classification of what the caller wants
type Intent string

const (
	IntentGreeting           Intent = "greeting"
	IntentAppointmentBooking Intent = "appointment_booking"
	IntentAppointmentCancel  Intent = "appointment_cancel"
	IntentBusinessHours      Intent = "business_hours"
	IntentLocation           Intent = "location"
	IntentServices           Intent = "services"
	IntentPricing            Intent = "pricing"
	IntentContact            Intent = "contact"
	IntentGoodbye            Intent = "goodbye"
	IntentUnknown            Intent = "unknown"
)

// Intents lists the closed intent vocabulary in classification order
var Intents = []Intent{
	IntentGreeting,
	IntentAppointmentBooking,
	IntentAppointmentCancel,
	IntentBusinessHours,
	IntentLocation,
	IntentServices,
	IntentPricing,
	IntentContact,
	IntentGoodbye,
	IntentUnknown,
}

// ParseIntent maps a label onto the vocabulary, unknown labels become IntentUnknown
func ParseIntent(label string) Intent {
	for _, intent := range Intents {
		if string(intent) == label {
			return intent
		}
	}
	return IntentUnknown
}

// EntityKind names a typed span extracted from an utterance
type EntityKind string

const (
	EntityTime  EntityKind = "time"
	EntityDate  EntityKind = "date"
	EntityName  EntityKind = "name"
	EntityPhone EntityKind = "phone"
	EntityEmail EntityKind = "email"
)

// EntitySet maps an entity kind to its values in order of appearance
type EntitySet map[EntityKind][]string

// First returns the first value of a kind or ""
func (e EntitySet) First(kind EntityKind) string {
	if values := e[kind]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Phase is the dialogue's coarse progress marker
type Phase string

const (
	PhaseInitial        Phase = "initial"
	PhaseCollectingInfo Phase = "collecting_info"
	PhaseConfirming     Phase = "confirming"
	PhaseCompleted      Phase = "completed"
)

// ConversationTurn is one processed utterance, never modified after append
type ConversationTurn struct {
	Timestamp   time.Time `json:"timestamp"`
	UserInput   string    `json:"user_input"`
	BotResponse string    `json:"bot_response"`
	Intent      Intent    `json:"intent"`
}

// UserInfo holds the caller profile slots
type UserInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// AppointmentDetails holds the booking slots
type AppointmentDetails struct {
	ServiceType     string `json:"service_type,omitempty"`
	PreferredDate   string `json:"preferred_date,omitempty"`
	PreferredTime   string `json:"preferred_time,omitempty"`
	Duration        int    `json:"duration,omitempty"` // minutes
	SpecialRequests string `json:"special_requests,omitempty"`
}

// DialogueState is the per-session conversation record
type DialogueState struct {
	SessionID          string             `json:"session_id"`
	CurrentIntent      Intent             `json:"current_intent,omitempty"`
	Context            map[string]any     `json:"context"`
	History            []ConversationTurn `json:"history"`
	UserInfo           UserInfo           `json:"user_info"`
	AppointmentDetails AppointmentDetails `json:"appointment_details"`
	Phase              Phase              `json:"phase"`
	CreatedAt          time.Time          `json:"created_at"`
	LastActivity       time.Time          `json:"last_activity"`
}

// NewDialogueState creates an empty state in the initial phase
func NewDialogueState(sessionID string, now time.Time) *DialogueState {
	return &DialogueState{
		SessionID:    sessionID,
		Context:      make(map[string]any),
		History:      []ConversationTurn{},
		Phase:        PhaseInitial,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Clone returns a deep copy so a turn can be applied and committed atomically
func (s *DialogueState) Clone() *DialogueState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		clone.Context[k] = v
	}
	clone.History = make([]ConversationTurn, len(s.History))
	copy(clone.History, s.History)
	return &clone
}

// RecentTurns returns at most n turns from the end of the history
func (s *DialogueState) RecentTurns(n int) []ConversationTurn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// SessionInfo is the read-only summary of a session
type SessionInfo struct {
	SessionID          string             `json:"session_id"`
	Phase              Phase              `json:"state"`
	CurrentIntent      Intent             `json:"current_intent,omitempty"`
	UserInfo           UserInfo           `json:"user_info"`
	AppointmentDetails AppointmentDetails `json:"appointment_details"`
	ConversationLength int                `json:"conversation_length"`
	LastActivity       time.Time          `json:"last_activity"`
}

// Info summarizes the state
func (s *DialogueState) Info() SessionInfo {
	return SessionInfo{
		SessionID:          s.SessionID,
		Phase:              s.Phase,
		CurrentIntent:      s.CurrentIntent,
		UserInfo:           s.UserInfo,
		AppointmentDetails: s.AppointmentDetails,
		ConversationLength: len(s.History),
		LastActivity:       s.LastActivity,
	}
}

// BusinessProfile is the read-only business configuration used in replies
type BusinessProfile struct {
	Name            string   `yaml:"name" json:"name"`
	Hours           string   `yaml:"hours" json:"hours"`
	Address         string   `yaml:"address" json:"address"`
	Phone           string   `yaml:"phone" json:"phone"`
	Email           string   `yaml:"email" json:"email"`
	Services        []string `yaml:"services" json:"services"`
	DefaultVoice    string   `yaml:"default_voice" json:"default_voice"`
	DefaultDuration int      `yaml:"default_appointment_duration" json:"default_appointment_duration"`
	Timezone        string   `yaml:"timezone" json:"timezone"`
}

// DefaultBusinessProfile is used when no profile file is configured
func DefaultBusinessProfile() BusinessProfile {
	return BusinessProfile{
		Name:            "Your Business Name",
		Hours:           "Monday-Friday 9AM-6PM, Saturday 9AM-3PM",
		Address:         "123 Main Street, City, State 12345",
		Phone:           "(555) 123-4567",
		Email:           "info@yourbusiness.com",
		Services:        []string{"Consultation", "Treatment", "Follow-up"},
		DefaultVoice:    "alloy",
		DefaultDuration: 60,
		Timezone:        "America/New_York",
	}
}

// TurnResult is what the gateway returns for one processed utterance
type TurnResult struct {
	SessionID      string        `json:"session_id"`
	Reply          string        `json:"response"`
	Intent         Intent        `json:"intent"`
	Confidence     float64       `json:"confidence"`
	Entities       EntitySet     `json:"entities"`
	Phase          Phase         `json:"phase"`
	RequiresAction bool          `json:"requires_action"`
	ActionType     ActionType    `json:"action_type,omitempty"`
	ActionPayload  Action        `json:"action_data,omitempty"`
	ActionResult   *ActionResult `json:"action_result,omitempty"`
	Escalated      bool          `json:"escalated,omitempty"`
}
