package nlu

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ai_receptionist/internal/llm"
	"ai_receptionist/internal/logger"
	"ai_receptionist/pkg"

	"github.com/rs/zerolog"
)

// Constants for classification
const (
	PatternConfidence          = 0.8
	DefaultEscalationThreshold = 0.7
	EscalationMaxTokens        = 50
	EscalationTemperature      = 0.1
)

// Classification is the result of one classify call
type Classification struct {
	Intent     pkg.Intent    `json:"intent"`
	Confidence float64       `json:"confidence"`
	Entities   pkg.EntitySet `json:"entities"`
	Escalated  bool          `json:"escalated"`
}

// Extractor turns utterance text into an intent and typed entities
type Extractor struct {
	intents         []IntentPatterns
	entities        []EntityPattern
	services        []string
	servicePatterns []*regexp.Regexp
	completer       llm.Completer
	threshold       float64
	log             zerolog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithCompleter enables generative escalation for low-confidence input
func WithCompleter(c llm.Completer) Option {
	return func(e *Extractor) { e.completer = c }
}

// WithThreshold sets the confidence below which escalation runs
func WithThreshold(threshold float64) Option {
	return func(e *Extractor) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithServices adds business profile service names to service inference
func WithServices(services []string) Option {
	return func(e *Extractor) { e.services = append([]string(nil), services...) }
}

// WithLogger overrides the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor creates an extractor over the default pattern tables
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		intents:   DefaultIntentTable(),
		entities:  DefaultEntityTable(),
		threshold: DefaultEscalationThreshold,
		log:       logger.With("nlu"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.servicePatterns = make([]*regexp.Regexp, len(e.services))
	for i, service := range e.services {
		if service != "" {
			e.servicePatterns[i] = wordPattern(strings.ToLower(service))
		}
	}
	return e
}

// Classify runs pattern classification, escalation below the threshold,
// and entity extraction. It never returns an error.
func (e *Extractor) Classify(ctx context.Context, text string) Classification {
	result := Classification{Entities: e.ExtractEntities(text)}
	result.Intent, result.Confidence = e.MatchIntent(text)

	if e.NeedsEscalation(result.Confidence) {
		if intent, confidence, ok := e.Escalate(ctx, text); ok && confidence > result.Confidence {
			result.Intent = intent
			result.Confidence = confidence
			result.Escalated = true
		}
	}

	return result
}

// NeedsEscalation reports whether a confidence would be sent to the classifier
func (e *Extractor) NeedsEscalation(confidence float64) bool {
	return e.completer != nil && confidence < e.threshold
}

// MatchIntent is the deterministic, side-effect-free pattern classifier
func (e *Extractor) MatchIntent(text string) (pkg.Intent, float64) {
	lowered := strings.ToLower(text)
	for _, entry := range e.intents {
		for _, pattern := range entry.Patterns {
			if pattern.MatchString(lowered) {
				return entry.Intent, PatternConfidence
			}
		}
	}
	return pkg.IntentUnknown, 0.0
}

// Escalate asks the generative classifier. Failures are logged and reported
// through ok=false, never returned.
func (e *Extractor) Escalate(ctx context.Context, text string) (pkg.Intent, float64, bool) {
	if e.completer == nil {
		return pkg.IntentUnknown, 0.0, false
	}

	prompt, err := llm.RenderPrompt(ctx, ClassificationPrompt, map[string]any{
		"intents": IntentVocabulary(),
		"text":    text,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("Classification prompt failed")
		return pkg.IntentUnknown, 0.0, false
	}

	reply, err := e.completer.Complete(ctx, prompt, EscalationMaxTokens, EscalationTemperature)
	if err != nil {
		e.log.Warn().Err(fmt.Errorf("%w: %v", pkg.ErrCollaboratorUnavailable, err)).Msg("Intent escalation failed")
		return pkg.IntentUnknown, 0.0, false
	}

	intent, confidence, err := ParseClassifierReply(reply)
	if err != nil {
		e.log.Warn().Err(err).Str("reply", truncate(reply, 120)).Msg("Intent escalation reply unusable")
		return pkg.IntentUnknown, 0.0, false
	}

	e.log.Debug().Str("intent", string(intent)).Float64("confidence", confidence).Msg("Intent escalated")
	return intent, confidence, true
}

type span struct {
	start, end int
	value      string
}

// ExtractEntities scans every pattern of every kind. Values keep their order
// of appearance; overlapping matches within a kind are dropped.
func (e *Extractor) ExtractEntities(text string) pkg.EntitySet {
	byKind := make(map[pkg.EntityKind][]span)

	for _, ep := range e.entities {
		for _, idx := range ep.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*ep.Group], idx[2*ep.Group+1]
			if start < 0 {
				continue
			}
			value := strings.TrimSpace(text[start:end])
			if ep.Kind == pkg.EntityName {
				value = cleanName(value)
				if value == "" {
					continue
				}
				end = start + len(value)
			}
			if overlaps(byKind[ep.Kind], start, end) {
				continue
			}
			byKind[ep.Kind] = append(byKind[ep.Kind], span{start: start, end: end, value: value})
		}
	}

	entities := make(pkg.EntitySet, len(byKind))
	for kind, spans := range byKind {
		sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		values := make([]string, 0, len(spans))
		for _, s := range spans {
			values = append(values, s.value)
		}
		entities[kind] = values
	}
	return entities
}

// ExtractServiceType returns the first service keyword found in the text,
// then falls back to business profile service names.
func (e *Extractor) ExtractServiceType(text string) string {
	lowered := strings.ToLower(text)

	for i, keyword := range ServiceKeywords {
		if keywordPatterns[i].MatchString(lowered) {
			for _, service := range e.services {
				if strings.EqualFold(service, keyword) {
					return service
				}
			}
			return keyword
		}
	}

	for i, pattern := range e.servicePatterns {
		if pattern != nil && pattern.MatchString(lowered) {
			return e.services[i]
		}
	}
	return ""
}

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

func cleanName(raw string) string {
	words := strings.Fields(raw)
	if len(words) == 0 || notNames[strings.ToLower(words[0])] {
		return ""
	}

	kept := make([]string, 0, 4)
	for _, w := range words {
		if nameStopWords[strings.ToLower(w)] || len(kept) == 4 {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// keywordPatterns matches ServiceKeywords as whole words, index for index
var keywordPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(ServiceKeywords))
	for i, keyword := range ServiceKeywords {
		out[i] = wordPattern(keyword)
	}
	return out
}()

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
}
