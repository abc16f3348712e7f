package booking

import (
	"context"
	"fmt"
	"time"

	"ai_receptionist/internal/events"
	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/tool"
)

// DefaultActionTimeout bounds one collaborator round trip
const DefaultActionTimeout = 10 * time.Second

// UnavailableMessage is returned when a collaborator call fails outright
const UnavailableMessage = "I'm sorry, I couldn't reach our booking system. Please try again in a moment."

// Emitter turns dialogue actions into booking tool calls. It never retries;
// the caller decides what to do with a failed result.
type Emitter struct {
	tools     map[string]tool.InvokableTool
	publisher events.Publisher
	timeout   time.Duration
}

// NewEmitter wires the scheduler tools to an event publisher
func NewEmitter(scheduler *Scheduler, publisher events.Publisher, timeout time.Duration) (*Emitter, error) {
	list, err := scheduler.Tools()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking tools: %w", err)
	}
	return NewEmitterWithTools(list, publisher, timeout)
}

// NewEmitterWithTools builds an emitter over any tool set exposing the booking tool names
func NewEmitterWithTools(list []tool.InvokableTool, publisher events.Publisher, timeout time.Duration) (*Emitter, error) {
	tools := make(map[string]tool.InvokableTool, len(list))
	for _, t := range list {
		info, err := t.Info(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to read tool info: %w", err)
		}
		tools[info.Name] = t
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return &Emitter{tools: tools, publisher: publisher, timeout: timeout}, nil
}

// Emit executes an action and reports its outcome
func (e *Emitter) Emit(ctx context.Context, sessionID string, action pkg.Action) pkg.ActionResult {
	log := logger.With("emitter")
	started := time.Now()

	var result pkg.ActionResult
	switch a := action.(type) {
	case pkg.BookingAction:
		result = e.book(ctx, sessionID, a)
	case pkg.CancelAction:
		result = e.cancel(ctx, sessionID, a)
	case pkg.ConfirmAction:
		result = pkg.ActionResult{Success: true, Message: "Awaiting caller confirmation"}
	case pkg.NoAction, nil:
		result = pkg.ActionResult{Success: true, Message: "No action required"}
	default:
		result = pkg.ActionResult{Message: fmt.Sprintf("unsupported action %T", action)}
	}

	event := log.Info()
	if !result.Success {
		event = log.Warn()
	}
	actionType := pkg.ActionNone
	if action != nil {
		actionType = action.Type()
	}
	event.
		Str("session_id", sessionID).
		Str("action_type", string(actionType)).
		Bool("success", result.Success).
		Str("external_id", result.ExternalID).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("Action emitted")

	return result
}

func (e *Emitter) book(ctx context.Context, sessionID string, action pkg.BookingAction) pkg.ActionResult {
	details := action.Booking

	lead := pkg.Lead{
		Customer: pkg.Customer{Name: details.Name, Phone: details.Phone, Email: details.Email},
		Service:  details.Service,
		Source:   "voice_receptionist",
		Notes:    details.SpecialRequests,
	}
	if outcome, err := e.invoke(ctx, ToolUpsertLead, lead); err != nil || !outcome.Success {
		logger.Warn().Err(err).Str("session_id", sessionID).Str("message", outcome.Message).Msg("Lead upsert failed, booking anyway")
	}

	outcome, err := e.invoke(ctx, ToolBookAppointment, BookRequest{BookingDetails: details, SessionID: sessionID})
	if err != nil {
		e.publish(ctx, events.AppointmentFailed, sessionID, map[string]any{"reason": ReasonUnavailable, "error": err.Error()})
		return pkg.ActionResult{Message: UnavailableMessage}
	}
	if !outcome.Success {
		e.publish(ctx, events.AppointmentFailed, sessionID, map[string]any{"reason": outcome.Reason, "message": outcome.Message})
		return pkg.ActionResult{Message: outcome.Message}
	}

	data := map[string]any{"appointment_id": outcome.ExternalID, "service": details.Service}
	if outcome.Appointment != nil {
		data["start"] = outcome.Appointment.Start
		data["duration_minutes"] = outcome.Appointment.DurationMinutes
	}
	e.publish(ctx, events.AppointmentBooked, sessionID, data)
	return pkg.ActionResult{Success: true, Message: outcome.Message, ExternalID: outcome.ExternalID}
}

func (e *Emitter) cancel(ctx context.Context, sessionID string, action pkg.CancelAction) pkg.ActionResult {
	outcome, err := e.invoke(ctx, ToolCancelAppointment, CancelRequest{Name: action.Name, Phone: action.Phone})
	if err != nil {
		return pkg.ActionResult{Message: UnavailableMessage}
	}
	if !outcome.Success {
		return pkg.ActionResult{Message: outcome.Message}
	}

	e.publish(ctx, events.AppointmentCancelled, sessionID, map[string]any{"appointment_id": outcome.ExternalID})
	return pkg.ActionResult{Success: true, Message: outcome.Message, ExternalID: outcome.ExternalID}
}

// invoke calls a tool by name under the action timeout
func (e *Emitter) invoke(ctx context.Context, name string, args any) (Outcome, error) {
	t, ok := e.tools[name]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: tool %s not registered", pkg.ErrCollaboratorUnavailable, name)
	}

	payload, err := sonic.MarshalString(args)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode %s arguments: %w", name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type reply struct {
		out string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		out, err := t.InvokableRun(callCtx, payload)
		done <- reply{out, err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-callCtx.Done():
		return Outcome{}, fmt.Errorf("%w: %s: %v", pkg.ErrCollaboratorUnavailable, name, callCtx.Err())
	}
	if r.err != nil {
		return Outcome{}, fmt.Errorf("%w: %s: %v", pkg.ErrCollaboratorUnavailable, name, r.err)
	}

	var outcome Outcome
	if err := sonic.UnmarshalString(r.out, &outcome); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s returned malformed output: %v", pkg.ErrCollaboratorUnavailable, name, err)
	}
	return outcome, nil
}

func (e *Emitter) publish(ctx context.Context, eventType, sessionID string, data map[string]any) {
	if err := e.publisher.Publish(ctx, events.NewEvent(eventType, sessionID, data)); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Str("session_id", sessionID).Msg("Event publish failed")
	}
}
