// Package intent classifies refinement messages against an active
// itinerary: accommodation selection, component swaps, budget preferences,
// and finalization.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the classified intent.
type Kind string

const (
	KindNone                Kind = "none"
	KindSelectAccommodation Kind = "select_accommodation"
	KindSwapComponent       Kind = "swap_component"
	KindBudgetChange        Kind = "budget_change"
	KindFinalize            Kind = "finalize"
)

// Intent is the classification result. Index is the zero-based
// accommodation option for select_accommodation; Reference and Request
// carry the swap target and replacement wish for swap_component.
type Intent struct {
	Kind      Kind
	Index     int
	Reference string
	Request   string
}

// Classifier resolves the latest user message to a refinement intent.
// Implementations must be pure with respect to conversation state.
type Classifier interface {
	Classify(latestMessage string, hasActiveItinerary bool) Intent
}

// KeywordClassifier is the default pattern-based classifier.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default classifier.
func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

var hotelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:select|choose|pick|prefer|want|book)\s+(?:hotel\s+)?(?:option\s+)?(\d+)`),
	regexp.MustCompile(`(?:go with|let'?s do)\s+(?:hotel\s+)?(?:option\s+)?(\d+)`),
	regexp.MustCompile(`hotel\s+(?:option\s+)?(\d+)`),
	regexp.MustCompile(`option\s+(\d+)`),
	regexp.MustCompile(`^\s*(\d+)\s*$`),
}

var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:cheaper|budget|less expensive|lower cost|affordable)\s+(?:place|hotel|accommodation|option)`),
	regexp.MustCompile(`(?:looking for|want|need)\s+(?:something\s+)?(?:cheaper|more affordable)`),
	regexp.MustCompile(`(?:show|find|suggest)\s+(?:me\s+)?(?:cheaper|budget)\s+(?:options|hotels)`),
}

var swapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`swap\s+(?:the\s+)?(.+?)\s+(?:activity|for)`),
	regexp.MustCompile(`replace\s+(?:the\s+)?(.+?)\s+with`),
	regexp.MustCompile(`change\s+(?:the\s+)?(.+?)\s+(?:to|activity)`),
	regexp.MustCompile(`(?:skip|remove)\s+(?:the\s+)?(.+)`),
}

var finalizeKeywords = []string{
	"looks good", "looks great", "perfect", "that's great",
	"let's book", "ready to book", "finalize", "confirm",
	"that works", "sounds good",
}

// Classify implements Classifier. Without an active itinerary every
// message is KindNone so trip requests are never mistaken for edits.
func (c *KeywordClassifier) Classify(latestMessage string, hasActiveItinerary bool) Intent {
	if !hasActiveItinerary {
		return Intent{Kind: KindNone}
	}
	msg := strings.ToLower(strings.TrimSpace(latestMessage))
	if msg == "" {
		return Intent{Kind: KindNone}
	}

	for _, re := range hotelPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n >= 1 && n <= 3 {
				return Intent{Kind: KindSelectAccommodation, Index: n - 1}
			}
		}
	}

	for _, re := range budgetPatterns {
		if re.MatchString(msg) {
			return Intent{Kind: KindBudgetChange, Request: latestMessage}
		}
	}

	for _, re := range swapPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return Intent{
				Kind:      KindSwapComponent,
				Reference: strings.TrimSpace(m[1]),
				Request:   latestMessage,
			}
		}
	}

	for _, kw := range finalizeKeywords {
		if strings.Contains(msg, kw) {
			return Intent{Kind: KindFinalize}
		}
	}

	return Intent{Kind: KindNone}
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	affirmRe   = regexp.MustCompile(`\b(yes|yep|yeah|correct|right|sure|ok|okay|good|great|perfect|sounds good|looks good|confirmed)\b`)
	negativeRe = regexp.MustCompile(`\b(no|nope|not|wrong|incorrect|change|actually)\b`)
)

// IsAffirmation detects a yes-style confirmation. Negations win over
// positives so "no, that's not right" never confirms.
func IsAffirmation(message string) bool {
	t := strings.ToLower(message)
	t = nonWord.ReplaceAllString(t, " ")
	t = strings.Join(strings.Fields(t), " ")
	if negativeRe.MatchString(t) {
		return false
	}
	return affirmRe.MatchString(t)
}
