package dialogue

import (
	"context"
	"fmt"

	"ai_receptionist/internal/fallback"
	"ai_receptionist/internal/nlu"
	"ai_receptionist/pkg"
)

// apply runs one turn against a private copy of the session and returns the
// reply with its metadata. It never fails: collaborator problems become text.
func (e *Engine) apply(ctx context.Context, s *pkg.DialogueState, text string) *pkg.TurnResult {
	cls := e.classify(ctx, s, text)
	if cls.Entities == nil {
		cls.Entities = pkg.EntitySet{}
	}
	result := &pkg.TurnResult{
		Intent:     cls.Intent,
		Confidence: cls.Confidence,
		Entities:   cls.Entities,
		Escalated:  cls.Escalated,
	}

	if s.Phase == pkg.PhaseCompleted && cls.Intent != pkg.IntentGoodbye {
		e.restart(s)
	}
	if s.Context == nil {
		s.Context = make(map[string]any)
	}

	if s.Phase == pkg.PhaseConfirming && cls.Intent != pkg.IntentAppointmentCancel {
		switch {
		case isAffirmative(text) && e.changesBooking(s, text, cls):
			// "yes, but at 4 pm" confirms nothing until the new details are read back
			cls.Intent, cls.Confidence = pkg.IntentAppointmentBooking, nlu.PatternConfidence
			result.Intent, result.Confidence = cls.Intent, cls.Confidence
			s.CurrentIntent = cls.Intent
			e.fillSlots(s, text, cls, result)
			return result
		case isAffirmative(text):
			cls.Intent, cls.Confidence = pkg.IntentAppointmentBooking, nlu.PatternConfidence
			result.Intent, result.Confidence = cls.Intent, cls.Confidence
			s.CurrentIntent = cls.Intent
			e.handleConfirm(ctx, s, result)
			return result
		case isNegative(text):
			s.CurrentIntent = cls.Intent
			e.handleDeny(s, text, cls, result)
			return result
		}
	}

	s.CurrentIntent = cls.Intent

	switch {
	case cls.Intent == pkg.IntentGreeting:
		delete(s.Context, ctxAwaitingSlot)
		s.Phase = pkg.PhaseInitial
		result.Reply = e.scriptedReply(cls.Intent)

	case cls.Intent == pkg.IntentAppointmentBooking:
		e.fillSlots(s, text, cls, result)

	case cls.Intent == pkg.IntentAppointmentCancel:
		e.handleCancel(ctx, s, text, cls, result)

	case cls.Intent == pkg.IntentGoodbye:
		delete(s.Context, ctxAwaitingSlot)
		s.Phase = pkg.PhaseCompleted
		result.Reply = e.scriptedReply(cls.Intent)

	case e.answersCancelName(s, text, cls):
		e.handleCancel(ctx, s, text, cls, result)

	case e.continuesSlotFilling(s, text, cls):
		e.fillSlots(s, text, cls, result)

	case isScripted(cls.Intent):
		result.Reply = e.scriptedReply(cls.Intent)

	default:
		result.Reply = e.respond(ctx, s, text)
	}

	return result
}

// classify skips generative escalation for short answers the current phase
// is waiting for, so "yes" or a bare name never leaves the process.
func (e *Engine) classify(ctx context.Context, s *pkg.DialogueState, text string) nlu.Classification {
	direct := false
	switch {
	case s.Phase == pkg.PhaseConfirming && (isAffirmative(text) || isNegative(text)):
		direct = true
	case awaiting(s) == slotName || awaiting(s) == awaitingCancelName:
		direct = bareNameReply(text) != ""
	}

	if !direct {
		return e.extractor.Classify(ctx, text)
	}
	intent, confidence := e.extractor.MatchIntent(text)
	return nlu.Classification{
		Intent:     intent,
		Confidence: confidence,
		Entities:   e.extractor.ExtractEntities(text),
	}
}

// restart reopens a completed session for a new conversation
func (e *Engine) restart(s *pkg.DialogueState) {
	s.Phase = pkg.PhaseInitial
	s.AppointmentDetails = pkg.AppointmentDetails{}
	if s.Context == nil {
		s.Context = make(map[string]any)
	}
	delete(s.Context, ctxAwaitingSlot)
	s.Context[ctxRestarts] = contextInt(s.Context, ctxRestarts) + 1
	e.log.Debug().Str("session_id", s.SessionID).Msg("Completed session restarted")
}

// fillSlots merges this turn's data and asks for the first missing slot, or
// moves to confirming once every required slot is present.
func (e *Engine) fillSlots(s *pkg.DialogueState, text string, cls nlu.Classification, result *pkg.TurnResult) {
	e.mergeSlots(s, text, cls)

	if missing := nextMissingSlot(s); missing != "" {
		s.Phase = pkg.PhaseCollectingInfo
		s.Context[ctxAwaitingSlot] = missing
		result.Reply = e.slotQuestion(missing, s)
		return
	}

	delete(s.Context, ctxAwaitingSlot)
	s.Phase = pkg.PhaseConfirming
	booking := pkg.BookingFromState(s, e.profile.DefaultDuration)
	result.Reply = confirmationMessage(booking)
	flag(result, pkg.ConfirmAction{Booking: booking})
}

func (e *Engine) mergeSlots(s *pkg.DialogueState, text string, cls nlu.Classification) {
	e.mergeUserInfo(s, text, cls)

	if service := e.extractor.ExtractServiceType(text); service != "" {
		s.AppointmentDetails.ServiceType = service
	}
	if date := cls.Entities.First(pkg.EntityDate); date != "" {
		s.AppointmentDetails.PreferredDate = date
	}
	if clock := cls.Entities.First(pkg.EntityTime); clock != "" {
		s.AppointmentDetails.PreferredTime = clock
	}
}

func (e *Engine) mergeUserInfo(s *pkg.DialogueState, text string, cls nlu.Classification) {
	name := cls.Entities.First(pkg.EntityName)
	if name == "" && e.isBareNameAnswer(s, text, cls) {
		name = bareNameReply(text)
	}
	if name != "" {
		s.UserInfo.Name = name
	}
	if phone := cls.Entities.First(pkg.EntityPhone); phone != "" {
		s.UserInfo.Phone = phone
	}
	if email := cls.Entities.First(pkg.EntityEmail); email != "" {
		s.UserInfo.Email = email
	}
}

// isBareNameAnswer accepts "Jane Smith" as the answer to a pending name question
func (e *Engine) isBareNameAnswer(s *pkg.DialogueState, text string, cls nlu.Classification) bool {
	switch awaiting(s) {
	case slotName, awaitingCancelName:
	default:
		return false
	}
	return cls.Intent == pkg.IntentUnknown &&
		len(cls.Entities) == 0 &&
		e.extractor.ExtractServiceType(text) == "" &&
		bareNameReply(text) != ""
}

func nextMissingSlot(s *pkg.DialogueState) string {
	switch {
	case s.UserInfo.Name == "":
		return slotName
	case s.UserInfo.Phone == "":
		return slotPhone
	case s.AppointmentDetails.ServiceType == "":
		return slotService
	case s.AppointmentDetails.PreferredDate == "":
		return slotDate
	case s.AppointmentDetails.PreferredTime == "":
		return slotTime
	}
	return ""
}

// continuesSlotFilling routes an answer given mid-booking back to slot filling
func (e *Engine) continuesSlotFilling(s *pkg.DialogueState, text string, cls nlu.Classification) bool {
	if s.Phase != pkg.PhaseCollectingInfo && s.Phase != pkg.PhaseConfirming {
		return false
	}
	if hasSlotEntities(cls.Entities) {
		return true
	}
	if cls.Intent != pkg.IntentUnknown {
		return false
	}
	return e.extractor.ExtractServiceType(text) != "" || e.isBareNameAnswer(s, text, cls)
}

func (e *Engine) answersCancelName(s *pkg.DialogueState, text string, cls nlu.Classification) bool {
	if awaiting(s) != awaitingCancelName {
		return false
	}
	return cls.Entities.First(pkg.EntityName) != "" || e.isBareNameAnswer(s, text, cls)
}

func hasSlotEntities(entities pkg.EntitySet) bool {
	for _, kind := range []pkg.EntityKind{pkg.EntityName, pkg.EntityPhone, pkg.EntityEmail, pkg.EntityDate, pkg.EntityTime} {
		if len(entities[kind]) > 0 {
			return true
		}
	}
	return false
}

// changesBooking reports whether merging this turn would alter the booking
// awaiting confirmation
func (e *Engine) changesBooking(s *pkg.DialogueState, text string, cls nlu.Classification) bool {
	if !hasSlotEntities(cls.Entities) && e.extractor.ExtractServiceType(text) == "" {
		return false
	}
	draft := s.Clone()
	e.mergeSlots(draft, text, cls)
	return pkg.BookingFromState(draft, e.profile.DefaultDuration) != pkg.BookingFromState(s, e.profile.DefaultDuration)
}

// handleConfirm commits the collected booking after an affirmative reply
func (e *Engine) handleConfirm(ctx context.Context, s *pkg.DialogueState, result *pkg.TurnResult) {
	booking := pkg.BookingFromState(s, e.profile.DefaultDuration)
	action := pkg.BookingAction{Booking: booking}
	s.Context[ctxLastAction] = string(action.Type())

	if e.emitter == nil {
		flag(result, action)
		result.Reply = bookPendingReply
		return
	}
	// the turn is discarded on cancellation, so nothing may be booked
	if ctx.Err() != nil {
		return
	}

	outcome := e.emitter.Emit(ctx, s.SessionID, action)
	result.ActionType = action.Type()
	result.ActionPayload = action
	result.ActionResult = &outcome

	if !outcome.Success {
		result.RequiresAction = true
		result.Reply = fmt.Sprintf(bookFailedReply, outcome.Message)
		e.log.Warn().
			Err(pkg.ErrActionFailure).
			Str("session_id", s.SessionID).
			Str("message", outcome.Message).
			Msg("Booking not committed")
		return
	}

	s.Phase = pkg.PhaseCompleted
	s.Context[pkg.ContextBookingReference] = outcome.ExternalID
	result.Reply = fmt.Sprintf(bookedReply, outcome.Message, outcome.ExternalID)
}

// handleDeny reopens slot collection after a negative reply to the confirmation
func (e *Engine) handleDeny(s *pkg.DialogueState, text string, cls nlu.Classification, result *pkg.TurnResult) {
	if hasSlotEntities(cls.Entities) || e.extractor.ExtractServiceType(text) != "" {
		e.fillSlots(s, text, cls, result)
		return
	}
	delete(s.Context, ctxAwaitingSlot)
	s.Phase = pkg.PhaseCollectingInfo
	result.Reply = changeDetailReply
}

func (e *Engine) handleCancel(ctx context.Context, s *pkg.DialogueState, text string, cls nlu.Classification, result *pkg.TurnResult) {
	e.mergeUserInfo(s, text, cls)

	if s.UserInfo.Name == "" {
		s.Context[ctxAwaitingSlot] = awaitingCancelName
		result.Reply = cancelAskName
		return
	}

	delete(s.Context, ctxAwaitingSlot)
	action := pkg.CancelAction{Name: s.UserInfo.Name, Phone: s.UserInfo.Phone}
	s.Context[ctxLastAction] = string(action.Type())
	result.Reply = fmt.Sprintf(cancelReply, s.UserInfo.Name)

	if e.emitter == nil {
		flag(result, action)
		return
	}
	if ctx.Err() != nil {
		return
	}

	outcome := e.emitter.Emit(ctx, s.SessionID, action)
	result.ActionType = action.Type()
	result.ActionPayload = action
	result.ActionResult = &outcome
	result.RequiresAction = !outcome.Success
	if outcome.Message != "" {
		result.Reply += " " + outcome.Message
	}
}

func (e *Engine) respond(ctx context.Context, s *pkg.DialogueState, text string) string {
	if e.responder == nil {
		return fallback.ApologyMessage
	}
	return e.responder.Respond(ctx, s, text)
}

func flag(result *pkg.TurnResult, action pkg.Action) {
	result.RequiresAction = true
	result.ActionType = action.Type()
	result.ActionPayload = action
}

func isScripted(intent pkg.Intent) bool {
	switch intent {
	case pkg.IntentBusinessHours, pkg.IntentLocation, pkg.IntentServices, pkg.IntentPricing, pkg.IntentContact:
		return true
	}
	return false
}

func awaiting(s *pkg.DialogueState) string {
	slot, _ := s.Context[ctxAwaitingSlot].(string)
	return slot
}

// contextInt reads a counter that may have round-tripped through JSON
func contextInt(values map[string]any, key string) int {
	switch v := values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
