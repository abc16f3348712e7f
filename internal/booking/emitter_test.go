package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai_receptionist/internal/events"
	"ai_receptionist/pkg"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCRM struct {
	mu    sync.Mutex
	leads []pkg.Lead
	err   error
}

func (r *recordingCRM) UpsertLead(ctx context.Context, lead pkg.Lead) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.leads = append(r.leads, lead)
	return "lead_1", nil
}

func newTestEmitter(t *testing.T, crm CRM) (*Emitter, *events.Recorder) {
	t.Helper()
	profile := pkg.DefaultBusinessProfile()
	profile.Timezone = "UTC"

	scheduler := NewScheduler(NewMemoryCalendar(), crm, profile)
	scheduler.Now = func() time.Time { return testNow }

	recorder := &events.Recorder{}
	emitter, err := NewEmitter(scheduler, recorder, time.Second)
	require.NoError(t, err)
	return emitter, recorder
}

func janeBooking() pkg.BookingDetails {
	return pkg.BookingDetails{
		Name:    "Jane Smith",
		Phone:   "555-123-4567",
		Service: "consultation",
		Date:    "tomorrow",
		Time:    "2 PM",
	}
}

func TestEmitter_BookingSuccess(t *testing.T) {
	crm := &recordingCRM{}
	emitter, recorder := newTestEmitter(t, crm)

	result := emitter.Emit(context.Background(), "s-1", pkg.BookingAction{Booking: janeBooking()})

	assert.True(t, result.Success, result.Message)
	assert.True(t, strings.HasPrefix(result.ExternalID, "apt_"))
	assert.Contains(t, result.Message, "Thursday, March 7 at 2:00 PM")

	require.Len(t, crm.leads, 1)
	assert.Equal(t, "Jane Smith", crm.leads[0].Name)
	assert.Equal(t, "consultation", crm.leads[0].Service)

	published := recorder.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.AppointmentBooked, published[0].Type)
	assert.Equal(t, "s-1", published[0].SessionID)
}

func TestEmitter_LeadFailureDoesNotBlockBooking(t *testing.T) {
	emitter, _ := newTestEmitter(t, &recordingCRM{err: errors.New("crm down")})

	result := emitter.Emit(context.Background(), "s-1", pkg.BookingAction{Booking: janeBooking()})
	assert.True(t, result.Success)
}

func TestEmitter_BookingFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*pkg.BookingDetails)
		message string
	}{
		{"unresolvable date", func(b *pkg.BookingDetails) { b.Date = "someday" }, "couldn't work out the date"},
		{"sunday", func(b *pkg.BookingDetails) { b.Date = "Sunday" }, "outside our appointment hours"},
		{"past", func(b *pkg.BookingDetails) { b.Date = "today"; b.Time = "9 AM" }, "already passed"},
		{"missing time", func(b *pkg.BookingDetails) { b.Time = "" }, "missing some details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter, recorder := newTestEmitter(t, nil)
			details := janeBooking()
			tt.mutate(&details)

			result := emitter.Emit(context.Background(), "s-1", pkg.BookingAction{Booking: details})
			assert.False(t, result.Success)
			assert.Contains(t, result.Message, tt.message)

			published := recorder.Events()
			require.Len(t, published, 1)
			assert.Equal(t, events.AppointmentFailed, published[0].Type)
		})
	}
}

func TestEmitter_DoubleBooking(t *testing.T) {
	emitter, _ := newTestEmitter(t, nil)
	ctx := context.Background()

	first := emitter.Emit(ctx, "s-1", pkg.BookingAction{Booking: janeBooking()})
	require.True(t, first.Success)

	second := emitter.Emit(ctx, "s-2", pkg.BookingAction{Booking: janeBooking()})
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "already taken")
}

func TestEmitter_Cancel(t *testing.T) {
	emitter, recorder := newTestEmitter(t, nil)
	ctx := context.Background()

	booked := emitter.Emit(ctx, "s-1", pkg.BookingAction{Booking: janeBooking()})
	require.True(t, booked.Success)

	cancelled := emitter.Emit(ctx, "s-1", pkg.CancelAction{Name: "jane smith"})
	assert.True(t, cancelled.Success)
	assert.Equal(t, booked.ExternalID, cancelled.ExternalID)
	assert.Contains(t, cancelled.Message, "has been cancelled")

	again := emitter.Emit(ctx, "s-1", pkg.CancelAction{Name: "Jane Smith"})
	assert.False(t, again.Success)
	assert.Contains(t, again.Message, "couldn't find")

	types := []string{}
	for _, e := range recorder.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.AppointmentBooked, events.AppointmentCancelled}, types)
}

func TestEmitter_NonCommittingActions(t *testing.T) {
	emitter, recorder := newTestEmitter(t, nil)
	ctx := context.Background()

	assert.True(t, emitter.Emit(ctx, "s", pkg.NoAction{}).Success)
	assert.True(t, emitter.Emit(ctx, "s", pkg.ConfirmAction{Booking: janeBooking()}).Success)
	assert.Empty(t, recorder.Events())
}

func TestEmitter_Timeout(t *testing.T) {
	slow, err := utils.InferTool(ToolBookAppointment, "slow booking", func(ctx context.Context, req BookRequest) (Outcome, error) {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
		}
		return Outcome{Success: true}, nil
	})
	require.NoError(t, err)

	emitter, err := NewEmitterWithTools([]tool.InvokableTool{slow}, nil, 50*time.Millisecond)
	require.NoError(t, err)

	started := time.Now()
	result := emitter.Emit(context.Background(), "s-1", pkg.BookingAction{Booking: janeBooking()})
	assert.False(t, result.Success)
	assert.Equal(t, UnavailableMessage, result.Message)
	assert.Less(t, time.Since(started), time.Second)
}

func TestScheduler_CheckAvailability(t *testing.T) {
	profile := pkg.DefaultBusinessProfile()
	profile.Timezone = "UTC"
	scheduler := NewScheduler(NewMemoryCalendar(), nil, profile)

	outcome, err := scheduler.CheckAvailability(context.Background(), AvailabilityRequest{From: "2024-03-07", To: "2024-03-08"})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Len(t, outcome.Slots, 16)

	outcome, err = scheduler.CheckAvailability(context.Background(), AvailabilityRequest{From: "next week"})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonInvalid, outcome.Reason)
}
