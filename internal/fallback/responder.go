package fallback

import (
	"context"
	"fmt"
	"strings"

	"ai_receptionist/internal/llm"
	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"
)

// Sampling parameters for free-form replies
const (
	MaxTokens     = 200
	Temperature   = 0.7
	HistoryWindow = 3
)

// ApologyMessage is returned whenever the completion collaborator fails
const ApologyMessage = "I apologize, but I'm having trouble understanding your request. Could you please rephrase it or let me know how I can help you?"

const responsePrompt = `You are an AI receptionist for {name}.
Business hours: {hours}
Location: {address}
Phone: {phone}
Email: {email}
Services: {services}

Recent conversation:
{conversation}
Customer query: {query}

Provide a helpful, professional response as a receptionist would.`

// Responder answers utterances no scripted branch handles
type Responder struct {
	completer llm.Completer
	profile   pkg.BusinessProfile
	window    int
}

// NewResponder creates a responder. A nil completer always yields the apology.
func NewResponder(completer llm.Completer, profile pkg.BusinessProfile, window int) *Responder {
	if window <= 0 {
		window = HistoryWindow
	}
	return &Responder{completer: completer, profile: profile, window: window}
}

// Respond never fails and never touches the session
func (r *Responder) Respond(ctx context.Context, state *pkg.DialogueState, utterance string) string {
	if r.completer == nil {
		return ApologyMessage
	}

	prompt, err := r.BuildPrompt(ctx, state, utterance)
	if err != nil {
		logger.Warn().Err(err).Msg("Fallback prompt failed")
		return ApologyMessage
	}

	reply, err := r.completer.Complete(ctx, prompt, MaxTokens, Temperature)
	if err != nil {
		logger.Warn().
			Err(fmt.Errorf("%w: %v", pkg.ErrCollaboratorUnavailable, err)).
			Str("session_id", state.SessionID).
			Msg("Fallback completion failed")
		return ApologyMessage
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ApologyMessage
	}
	return reply
}

// BuildPrompt renders the business profile, recent turns and the utterance
func (r *Responder) BuildPrompt(ctx context.Context, state *pkg.DialogueState, utterance string) (string, error) {
	return llm.RenderPrompt(ctx, responsePrompt, map[string]any{
		"name":         r.profile.Name,
		"hours":        r.profile.Hours,
		"address":      r.profile.Address,
		"phone":        r.profile.Phone,
		"email":        r.profile.Email,
		"services":     strings.Join(r.profile.Services, ", "),
		"conversation": RecentConversation(state.RecentTurns(r.window)),
		"query":        utterance,
	})
}

// RecentConversation renders turns as "User:"/"Bot:" lines, omitting intents
func RecentConversation(turns []pkg.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString("User: ")
		b.WriteString(turn.UserInput)
		b.WriteString("\nBot: ")
		b.WriteString(turn.BotResponse)
		b.WriteString("\n")
	}
	return b.String()
}
