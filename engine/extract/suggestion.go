package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tripflow/tripflow/types"
)

var pickNumberRe = regexp.MustCompile(`\b(\d{1,2})\b`)

// PickSuggestion resolves a user reply against an offered destination
// suggestion list. A bare number picks by position (1-based); otherwise the
// reply is matched against suggestion names. Returns false when nothing
// matches, so the caller can re-offer the list.
func PickSuggestion(message string, suggestions []types.Suggestion) (types.Suggestion, bool) {
	if len(suggestions) == 0 {
		return types.Suggestion{}, false
	}

	low := strings.ToLower(strings.TrimSpace(message))

	if m := pickNumberRe.FindStringSubmatch(low); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= len(suggestions) {
			return suggestions[n-1], true
		}
	}

	for _, s := range suggestions {
		name := strings.ToLower(s.Name)
		if name == "" {
			continue
		}
		if strings.Contains(low, name) || strings.Contains(name, low) {
			return s, true
		}
	}

	// fall back to first-word match ("Asheville sounds great" vs
	// "Asheville, NC")
	for _, s := range suggestions {
		first := strings.ToLower(firstWord(s.Name))
		if first != "" && strings.Contains(low, first) {
			return s, true
		}
	}
	return types.Suggestion{}, false
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == ' ' || r == ',' {
			return s[:i]
		}
	}
	return s
}
