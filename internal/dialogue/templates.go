package dialogue

import (
	"fmt"
	"regexp"
	"strings"

	"ai_receptionist/pkg"
)

// Scripted replies
const (
	greetingReply     = "Hello! Thank you for calling %s. How can I help you today?"
	hoursReply        = "Our business hours are %s. Is there anything else I can help you with?"
	locationReply     = "We're located at %s. Would you like me to provide directions or any other information?"
	servicesReply     = "We offer the following services: %s. Would you like more information about any specific service or would you like to schedule an appointment?"
	pricingReply      = "Our pricing varies depending on the specific service you're interested in. Could you tell me which service you'd like to know about, and I'll provide you with detailed pricing information?"
	contactReply      = "You can reach us at %s or email us at %s. Is there anything specific you'd like to know or discuss?"
	goodbyeReply      = "Thank you for calling %s! Have a wonderful day, and we look forward to serving you soon."
	askNameReply      = "I'd be happy to help you schedule an appointment. May I have your name please?"
	askPhoneReply     = "Thank you, %s. Could you please provide your phone number?"
	askServiceReply   = "What type of service would you like to schedule? We offer: %s."
	askDateReply      = "What date would you prefer for your appointment? I can check our availability."
	askTimeReply      = "What time would work best for you? We have morning, afternoon, and early evening slots available."
	confirmReply      = "Perfect! Let me confirm your appointment details:\n\nName: %s\nPhone: %s\nService: %s\nDate: %s\nTime: %s\n\nIs this information correct? If yes, I'll book this appointment for you."
	cancelAskName     = "I can help you cancel your appointment. May I have your name please?"
	cancelReply       = "I'll help you cancel your appointment, %s. Let me look up your booking and process the cancellation."
	bookedReply       = "Great news! %s. Your booking reference is %s. Is there anything else I can help you with?"
	bookFailedReply   = "I'm sorry, I wasn't able to complete the booking. %s"
	bookPendingReply  = "Thank you for confirming. I'm submitting your booking now and you'll receive a confirmation shortly."
	changeDetailReply = "No problem. What would you like to change: your name, phone number, service, date, or time?"
)

// Slot names in required order
const (
	slotName    = "name"
	slotPhone   = "phone"
	slotService = "service"
	slotDate    = "date"
	slotTime    = "time"
)

// Context keys
const (
	ctxAwaitingSlot = "awaiting_slot"
	ctxRestarts     = "restarts"
	ctxLastAction   = "last_action"

	awaitingCancelName = "cancel_name"
)

var (
	affirmPattern = regexp.MustCompile(`^\W*(yes|yeah|yep|yup|correct|that's right|that is right|right|sure|confirm|confirmed|sounds good|perfect|please do|go ahead)\b`)
	denyPattern   = regexp.MustCompile(`^\W*(no|nope|nah|wrong|incorrect|not quite|not correct|that's wrong|that is wrong)\b`)
	bareName      = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]*(?:\s+[A-Za-z][A-Za-z'-]*){0,2}[.!]?$`)
)

// fillerWords never start a name
var fillerWords = map[string]bool{
	"ok": true, "okay": true, "um": true, "uh": true, "hmm": true, "what": true,
	"sorry": true, "pardon": true, "huh": true, "maybe": true, "thanks": true,
	"thank": true, "please": true, "hello": true, "hi": true, "hey": true,
	"i": true, "it": true, "is": true, "can": true, "do": true, "the": true,
}

func isAffirmative(text string) bool {
	return affirmPattern.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

func isNegative(text string) bool {
	return denyPattern.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// bareNameReply accepts a short answer like "Jane Smith" given to a name question
func bareNameReply(text string) string {
	text = strings.TrimSpace(text)
	if !bareName.MatchString(text) || isAffirmative(text) || isNegative(text) {
		return ""
	}
	name := strings.TrimRight(text, ".!")
	words := strings.Fields(name)
	if fillerWords[strings.ToLower(words[0])] {
		return ""
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (e *Engine) scriptedReply(intent pkg.Intent) string {
	p := e.profile
	switch intent {
	case pkg.IntentGreeting:
		return fmt.Sprintf(greetingReply, p.Name)
	case pkg.IntentBusinessHours:
		return fmt.Sprintf(hoursReply, p.Hours)
	case pkg.IntentLocation:
		return fmt.Sprintf(locationReply, p.Address)
	case pkg.IntentServices:
		return fmt.Sprintf(servicesReply, strings.Join(p.Services, ", "))
	case pkg.IntentPricing:
		return pricingReply
	case pkg.IntentContact:
		return fmt.Sprintf(contactReply, p.Phone, p.Email)
	case pkg.IntentGoodbye:
		return fmt.Sprintf(goodbyeReply, p.Name)
	}
	return ""
}

func (e *Engine) slotQuestion(slot string, s *pkg.DialogueState) string {
	switch slot {
	case slotName:
		return askNameReply
	case slotPhone:
		return fmt.Sprintf(askPhoneReply, s.UserInfo.Name)
	case slotService:
		return fmt.Sprintf(askServiceReply, strings.Join(e.profile.Services, ", "))
	case slotDate:
		return askDateReply
	default:
		return askTimeReply
	}
}

func confirmationMessage(b pkg.BookingDetails) string {
	return fmt.Sprintf(confirmReply, b.Name, b.Phone, b.Service, b.Date, b.Time)
}
