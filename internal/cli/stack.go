package cli

import (
	"context"
	"fmt"

	"ai_receptionist/internal/booking"
	"ai_receptionist/internal/config"
	"ai_receptionist/internal/core"
	"ai_receptionist/internal/dialogue"
	"ai_receptionist/internal/events"
	"ai_receptionist/internal/fallback"
	"ai_receptionist/internal/llm"
	"ai_receptionist/internal/logger"
	"ai_receptionist/internal/nlu"
	"ai_receptionist/internal/nodes"
	"ai_receptionist/internal/speech"
	"ai_receptionist/internal/storage"
	"ai_receptionist/pkg"
)

// stack is the fully wired service
type stack struct {
	engine    *dialogue.Engine
	pipeline  *core.DefaultGraphProcessor
	scheduler *booking.Scheduler
	archive   storage.CallArchive
	closers   []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newSessionStore picks the session backend from config
func newSessionStore(ctx context.Context, c *config.Config) (storage.SessionStore, func(), error) {
	switch c.Session.Backend {
	case "", "memory":
		return storage.NewMemorySessionStore(), func() {}, nil
	case "redis":
		store, err := storage.NewRedisSessionStore(ctx, c.Redis.URL, c.Redis.KeyPrefix, c.Session.MaxAge)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
}

// buildStack wires every collaborator the config enables. Missing
// credentials disable the matching feature instead of failing.
func buildStack(ctx context.Context, c *config.Config, profile pkg.BusinessProfile) (*stack, error) {
	log := logger.With("cli")
	s := &stack{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	store, closeStore, err := newSessionStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	s.closers = append(s.closers, closeStore)

	var (
		calendar booking.Calendar = booking.NewMemoryCalendar()
		crm      booking.CRM      = booking.NopCRM{}
	)
	if c.Postgres.DSN != "" {
		pg, err := storage.NewPostgresStore(ctx, c.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		calendar, crm, s.archive = pg, pg, pg
	} else if c.ArchiveDir != "" {
		s.archive = storage.NewJSONCallArchive(c.ArchiveDir)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if c.MQTT.BrokerURL != "" {
		mqtt, err := events.NewMQTTPublisher(ctx, c.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		publisher = mqtt
	}

	completer, err := llm.NewFromConfig(ctx, c.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if completer == nil {
		log.Warn().Str("provider", c.LLM.Provider).Msg("No LLM credentials, generative fallback disabled")
	}

	extractorOpts := []nlu.Option{
		nlu.WithThreshold(c.Dialogue.EscalationThreshold),
		nlu.WithServices(profile.Services),
	}
	if completer != nil {
		extractorOpts = append(extractorOpts, nlu.WithCompleter(completer))
	}

	s.scheduler = booking.NewScheduler(calendar, crm, profile)
	emitter, err := booking.NewEmitter(s.scheduler, publisher, c.Dialogue.ActionTimeout)
	if err != nil {
		return nil, err
	}

	s.engine = dialogue.NewEngine(
		store,
		nlu.NewExtractor(extractorOpts...),
		fallback.NewResponder(completer, profile, c.Dialogue.HistoryWindow),
		profile,
		dialogue.WithEmitter(emitter),
	)

	deps := nodes.PipelineDeps{
		Engine:       s.engine,
		Archive:      s.archive,
		Publisher:    publisher,
		DefaultVoice: profile.DefaultVoice,
	}
	if c.Speech.APIKey != "" {
		client, err := speech.NewClient(c.Speech)
		if err != nil {
			return nil, fmt.Errorf("speech: %w", err)
		}
		deps.Transcriber = client
		deps.Synthesizer = client
	} else {
		log.Warn().Msg("No speech credentials, voice turns disabled")
	}

	s.pipeline, err = nodes.NewPipeline(deps)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	ok = true
	return s, nil
}
