package pkg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentBusinessHours, ParseIntent("business_hours"))
	assert.Equal(t, IntentGoodbye, ParseIntent("goodbye"))
	assert.Equal(t, IntentUnknown, ParseIntent("weather"))
	assert.Equal(t, IntentUnknown, ParseIntent(""))
}

func TestEntitySet_First(t *testing.T) {
	entities := EntitySet{EntityPhone: {"555-1234", "555-9999"}}
	assert.Equal(t, "555-1234", entities.First(EntityPhone))
	assert.Empty(t, entities.First(EntityEmail))
}

func TestNewDialogueState(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	state := NewDialogueState("abc", now)

	assert.Equal(t, "abc", state.SessionID)
	assert.Equal(t, PhaseInitial, state.Phase)
	assert.NotNil(t, state.Context)
	assert.Empty(t, state.History)
	assert.Equal(t, now, state.CreatedAt)
	assert.Equal(t, now, state.LastActivity)
}

func TestDialogueState_CloneIsDeep(t *testing.T) {
	state := NewDialogueState("abc", time.Now())
	state.Context["restarts"] = 1
	state.History = append(state.History, ConversationTurn{UserInput: "Hello"})

	clone := state.Clone()
	clone.Context["restarts"] = 2
	clone.History[0].UserInput = "changed"
	clone.History = append(clone.History, ConversationTurn{UserInput: "Bye"})
	clone.UserInfo.Name = "Jane"

	assert.Equal(t, 1, state.Context["restarts"])
	assert.Equal(t, "Hello", state.History[0].UserInput)
	assert.Len(t, state.History, 1)
	assert.Empty(t, state.UserInfo.Name)

	var nilState *DialogueState
	assert.Nil(t, nilState.Clone())
}

func TestDialogueState_RecentTurns(t *testing.T) {
	state := NewDialogueState("abc", time.Now())
	assert.Nil(t, state.RecentTurns(3))

	for _, input := range []string{"a", "b", "c", "d"} {
		state.History = append(state.History, ConversationTurn{UserInput: input})
	}

	recent := state.RecentTurns(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "b", recent[0].UserInput)
	assert.Equal(t, "d", recent[2].UserInput)
	assert.Len(t, state.RecentTurns(10), 4)
	assert.Nil(t, state.RecentTurns(0))
}

func TestDialogueState_Info(t *testing.T) {
	state := NewDialogueState("abc", time.Now())
	state.CurrentIntent = IntentAppointmentBooking
	state.Phase = PhaseCollectingInfo
	state.UserInfo.Name = "John Doe"
	state.AppointmentDetails.ServiceType = "consultation"
	state.History = append(state.History, ConversationTurn{}, ConversationTurn{})

	info := state.Info()
	assert.Equal(t, "abc", info.SessionID)
	assert.Equal(t, PhaseCollectingInfo, info.Phase)
	assert.Equal(t, IntentAppointmentBooking, info.CurrentIntent)
	assert.Equal(t, "John Doe", info.UserInfo.Name)
	assert.Equal(t, "consultation", info.AppointmentDetails.ServiceType)
	assert.Equal(t, 2, info.ConversationLength)
}

func TestActionTypes(t *testing.T) {
	tests := []struct {
		action Action
		want   ActionType
	}{
		{NoAction{}, ActionNone},
		{CancelAction{Name: "John"}, ActionCancel},
		{ConfirmAction{}, ActionConfirm},
		{BookingAction{}, ActionBook},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.action.Type())
	}
}
