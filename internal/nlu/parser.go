package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"ai_receptionist/pkg"
)

// Constants for parsing classifier replies
const (
	MaxReplyLength         = 2000
	DefaultReplyConfidence = 0.5
)

var (
	intentLine     = regexp.MustCompile(`(?i)intent:\s*(\w+)`)
	confidenceLine = regexp.MustCompile(`(?i)confidence:\s*([\d.]+)`)
)

// Validation utility functions
func validateString(s string, maxLength int, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if len(s) > maxLength {
		return fmt.Errorf("%s too long: %d characters (max: %d)", fieldName, len(s), maxLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s contains invalid UTF-8 characters", fieldName)
	}
	return nil
}

func parseFloat(s string, fieldName string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", fieldName, s)
	}
	return value, nil
}

// ParseClassifierReply reads an `intent: X` / `confidence: Y` reply. Labels
// outside the vocabulary are rejected. A missing or unreadable confidence
// defaults to 0.5 and confidences are clamped to [0, 1].
func ParseClassifierReply(reply string) (pkg.Intent, float64, error) {
	if err := validateString(reply, MaxReplyLength, "classifier reply"); err != nil {
		return pkg.IntentUnknown, 0.0, fmt.Errorf("%w: %v", pkg.ErrClassificationDegraded, err)
	}

	match := intentLine.FindStringSubmatch(reply)
	if match == nil {
		return pkg.IntentUnknown, 0.0, fmt.Errorf("%w: no intent in reply", pkg.ErrClassificationDegraded)
	}
	label := strings.ToLower(match[1])
	intent := pkg.ParseIntent(label)
	if intent == pkg.IntentUnknown && label != string(pkg.IntentUnknown) {
		return pkg.IntentUnknown, 0.0, fmt.Errorf("%w: intent %q outside vocabulary", pkg.ErrClassificationDegraded, label)
	}

	confidence := DefaultReplyConfidence
	if m := confidenceLine.FindStringSubmatch(reply); m != nil {
		if value, err := parseFloat(strings.TrimRight(m[1], "."), "confidence"); err == nil {
			confidence = value
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return intent, confidence, nil
}
