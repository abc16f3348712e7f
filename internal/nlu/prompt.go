package nlu

import (
	"strings"

	"ai_receptionist/pkg"
)

// ClassificationPrompt constrains the generative classifier to the intent vocabulary
const ClassificationPrompt = `Analyze the following customer message and determine the intent.
Choose from these intents: {intents}

Customer message: "{text}"

Respond with only the intent name and confidence (0.0-1.0) in this format:
intent: <intent_name>
confidence: <confidence_score>`

// IntentVocabulary renders the closed intent list for prompts
func IntentVocabulary() string {
	names := make([]string, 0, len(pkg.Intents))
	for _, intent := range pkg.Intents {
		names = append(names, string(intent))
	}
	return strings.Join(names, ", ")
}
