package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_receptionist/internal/logger"
	"ai_receptionist/internal/nlu"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Responder produces free-form replies for turns no scripted branch handles
type Responder interface {
	Respond(ctx context.Context, state *pkg.DialogueState, utterance string) string
}

// ActionEmitter executes booking actions
type ActionEmitter interface {
	Emit(ctx context.Context, sessionID string, action pkg.Action) pkg.ActionResult
}

// Engine is the dialogue state machine. It owns no sessions itself; every
// turn loads from the store, applies to a private copy and commits on success.
type Engine struct {
	store     storage.SessionStore
	extractor *nlu.Extractor
	responder Responder
	emitter   ActionEmitter
	profile   pkg.BusinessProfile
	locks     *sessionLocks
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithEmitter lets confirmed bookings and cancellations execute in-turn
func WithEmitter(emitter ActionEmitter) Option {
	return func(e *Engine) { e.emitter = emitter }
}

// WithClock replaces the turn clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine wires the state machine
func NewEngine(store storage.SessionStore, extractor *nlu.Extractor, responder Responder, profile pkg.BusinessProfile, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		extractor: extractor,
		responder: responder,
		profile:   profile,
		locks:     newSessionLocks(),
		now:       time.Now,
		log:       logger.With("dialogue"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile returns the business profile used for replies
func (e *Engine) Profile() pkg.BusinessProfile {
	return e.profile
}

// ProcessUtterance runs one conversation turn. Only malformed input, an
// unusable session id, storage failures and cancellation are returned as
// errors; collaborator failures surface as reply text.
func (e *Engine) ProcessUtterance(ctx context.Context, text, sessionID string) (*pkg.TurnResult, error) {
	started := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", pkg.ErrMalformedInput)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !pkg.ValidSessionID(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id", pkg.ErrMalformedInput)
	}

	unlock, err := e.locks.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, state, created, err := e.runTurn(ctx, sessionID, text)
	if errors.Is(err, pkg.ErrSessionConflict) {
		// another instance created the session first; replay against its state
		result, state, created, err = e.runTurn(ctx, sessionID, text)
	}
	if err != nil {
		return nil, err
	}

	result.SessionID = state.SessionID
	result.Phase = state.Phase

	e.log.Info().
		Str("session_id", state.SessionID).
		Bool("new_session", created).
		Str("intent", string(result.Intent)).
		Float64("confidence", result.Confidence).
		Bool("escalated", result.Escalated).
		Str("phase", string(result.Phase)).
		Str("action_type", string(result.ActionType)).
		Int64("duration_ms", time.Since(started).Milliseconds()).
		Msg("Turn processed")

	return result, nil
}

// runTurn applies one turn to a private copy and commits it. A new session
// exists only in memory until its first turn commits. Once an action has
// reached the emitter the turn is committed even if ctx is cancelled, so the
// stored session always reflects external side effects.
func (e *Engine) runTurn(ctx context.Context, sessionID, text string) (*pkg.TurnResult, *pkg.DialogueState, bool, error) {
	created := false
	state, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, pkg.ErrSessionNotFound) {
		state, created = pkg.NewDialogueState(sessionID, e.now()), true
	} else if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	result := e.apply(ctx, state, text)

	now := e.now()
	state.History = append(state.History, pkg.ConversationTurn{
		Timestamp:   now,
		UserInput:   text,
		BotResponse: result.Reply,
		Intent:      result.Intent,
	})
	state.LastActivity = now

	emitted := result.ActionResult != nil
	commitCtx := ctx
	if emitted {
		commitCtx = context.WithoutCancel(ctx)
	} else if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}

	if created {
		err = e.store.Create(commitCtx, state)
		if errors.Is(err, pkg.ErrSessionConflict) && emitted {
			err = e.store.Save(commitCtx, state)
		}
	} else {
		err = e.store.Save(commitCtx, state)
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to save session: %w", err)
	}
	return result, state, created, nil
}

// SessionInfo summarizes a live session
func (e *Engine) SessionInfo(ctx context.Context, sessionID string) (pkg.SessionInfo, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return pkg.SessionInfo{}, err
	}
	return state.Info(), nil
}

// Session returns a copy of a live session
func (e *Engine) Session(ctx context.Context, sessionID string) (*pkg.DialogueState, error) {
	return e.store.Get(ctx, sessionID)
}

// Sweep expires sessions idle for longer than maxAge
func (e *Engine) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		maxAge = storage.DefaultMaxAge
	}
	expired, err := e.store.ExpireOlderThan(ctx, maxAge)
	if err != nil {
		return expired, fmt.Errorf("session sweep failed: %w", err)
	}
	if len(expired) > 0 {
		e.log.Info().Int("expired", len(expired)).Dur("max_age", maxAge).Msg("Expired idle sessions")
	}
	return expired, nil
}

// RunExpirySweeper sweeps on every interval until ctx ends
func (e *Engine) RunExpirySweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Sweep(ctx, maxAge); err != nil {
				e.log.Error().Err(err).Msg("Session sweep failed")
			}
		}
	}
}
