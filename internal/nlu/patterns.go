package nlu

import (
	"regexp"

	"ai_receptionist/pkg"
)

// IntentPatterns pairs an intent with the patterns that select it.
// The table is ordered: the first intent with any matching pattern wins.
type IntentPatterns struct {
	Intent   pkg.Intent
	Patterns []*regexp.Regexp
}

// EntityPattern extracts one entity kind. Group selects the capture group
// whose text is kept (0 keeps the whole match).
type EntityPattern struct {
	Kind    pkg.EntityKind
	Pattern *regexp.Regexp
	Group   int
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// DefaultIntentTable is matched against lower-cased input
func DefaultIntentTable() []IntentPatterns {
	return []IntentPatterns{
		{pkg.IntentGreeting, compileAll(
			`\b(hello|hi|hey|good morning|good afternoon|good evening)\b`,
			`\bhow are you\b`,
			`\bgreetings\b`,
		)},
		{pkg.IntentAppointmentBooking, compileAll(
			`\b(book|schedule|make|set up|arrange)\b.*\b(appointment|meeting|consultation)\b`,
			`\bi (want|need|would like) to (book|schedule|make)\b`,
			`\bcan i (book|schedule|make)\b`,
			`\bavailable (times|slots|appointments)\b`,
		)},
		{pkg.IntentAppointmentCancel, compileAll(
			`\b(cancel|reschedule|change|move)\b.*\b(appointment|meeting)\b`,
			`\bi need to (cancel|reschedule|change)\b`,
			`\bcancel my (appointment|meeting)\b`,
		)},
		{pkg.IntentBusinessHours, compileAll(
			`\b(hours|open|close|operating hours|business hours)\b`,
			`\bwhen (are you|do you) (open|close)\b`,
			`\bwhat time (do you|are you) (open|close)\b`,
		)},
		{pkg.IntentLocation, compileAll(
			`\b(where|location|address|directions)\b`,
			`\bhow do i get to\b`,
			`\bwhere are you located\b`,
		)},
		{pkg.IntentServices, compileAll(
			`\b(services|what do you do|what do you offer)\b`,
			`\bwhat (services|treatments|procedures)\b`,
			`\btell me about your (services|offerings)\b`,
		)},
		{pkg.IntentPricing, compileAll(
			`\b(price|cost|fee|charge|rate|pricing)\b`,
			`\bhow much (does|do|is|are)\b`,
			`\bwhat (does|do) (it|this|that) cost\b`,
		)},
		{pkg.IntentContact, compileAll(
			`\b(phone|email|contact|reach)\b`,
			`\bhow can i (contact|reach)\b`,
			`\bcontact (information|details)\b`,
		)},
		{pkg.IntentGoodbye, compileAll(
			`\b(goodbye|bye|see you|talk to you later|have a good day)\b`,
			`\bthanks?\s*(bye|goodbye)?\b`,
			`\bi have to go\b`,
		)},
	}
}

// DefaultEntityTable is matched against the original text. Within a kind,
// earlier patterns take precedence over later overlapping ones.
func DefaultEntityTable() []EntityPattern {
	p := func(kind pkg.EntityKind, pattern string, group int) EntityPattern {
		return EntityPattern{Kind: kind, Pattern: regexp.MustCompile(pattern), Group: group}
	}
	return []EntityPattern{
		p(pkg.EntityTime, `(?i)\b\d{1,2}:\d{2}(?:\s*(?:am|pm)\b)?`, 0),
		p(pkg.EntityTime, `(?i)\b\d{1,2}\s*(?:am|pm)\b`, 0),
		p(pkg.EntityTime, `(?i)\b(?:morning|afternoon|evening|noon)\b`, 0),

		p(pkg.EntityDate, `(?i)\b(?:today|tomorrow|yesterday)\b`, 0),
		p(pkg.EntityDate, `(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`, 0),
		p(pkg.EntityDate, `\b\d{1,2}/\d{1,2}/\d{4}\b`, 0),
		p(pkg.EntityDate, `(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`, 0),

		p(pkg.EntityName, `(?i)\bmy name is\s+([a-z]+(?:[ \t]+[a-z]+)*)`, 1),
		p(pkg.EntityName, `(?i)\bi['’]m\s+([a-z]+(?:[ \t]+[a-z]+)*)`, 1),
		p(pkg.EntityName, `(?i)\bthis is\s+([a-z]+(?:[ \t]+[a-z]+)*)`, 1),

		p(pkg.EntityPhone, `\(\d{3}\)\s*\d{3}[-.\s]?\d{4}\b`, 0),
		p(pkg.EntityPhone, `\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`, 0),
		p(pkg.EntityPhone, `\b\d{3}[-.]\d{4}\b`, 0),

		p(pkg.EntityEmail, `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`, 0),
	}
}

// ServiceKeywords is the fixed vocabulary for service type inference
var ServiceKeywords = []string{
	"consultation",
	"checkup",
	"cleaning",
	"treatment",
	"therapy",
	"massage",
	"haircut",
}

// nameStopWords end a captured name ("John Doe and my phone ..." -> "John Doe")
var nameStopWords = map[string]bool{
	"and": true, "my": true, "phone": true, "number": true, "email": true,
	"i": true, "calling": true, "from": true, "here": true, "to": true,
	"at": true, "for": true, "with": true, "but": true, "please": true,
	"the": true, "is": true, "on": true, "would": true, "want": true,
}

// notNames reject captures that are clearly not a name ("I'm looking ...",
// "this is about ...")
var notNames = map[string]bool{
	"looking": true, "calling": true, "interested": true, "trying": true,
	"not": true, "just": true, "sorry": true, "good": true, "fine": true,
	"wondering": true, "hoping": true, "going": true, "available": true,
	"free": true, "great": true, "a": true, "an": true, "the": true,
	"so": true, "very": true, "new": true, "here": true,
	"about": true, "regarding": true, "it": true, "that": true, "ok": true,
	"okay": true, "sure": true, "ready": true, "happy": true, "glad": true,
	"also": true, "still": true, "really": true, "actually": true, "busy": true,
	"booking": true, "asking": true, "checking": true, "following": true,
	"need": true, "needing": true, "in": true, "all": true, "done": true,
	"back": true, "having": true, "thinking": true, "afraid": true,
	"unable": true, "able": true, "late": true, "running": true,
	"currently": true, "your": true, "yes": true, "no": true, "sick": true,
	"pretty": true, "quite": true, "urgent": true, "important": true,
	"correct": true, "right": true, "wrong": true, "confused": true,
}
