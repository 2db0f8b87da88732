package registry

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tripflow/tripflow/types"
)

// reference is the parsed shape of a natural-language component phrase:
// optional kind hints, an optional day number, and an optional time slot.
type reference struct {
	kinds []types.ComponentKind
	day   int
	slot  types.SlotName
}

var dayRe = regexp.MustCompile(`\bday\s*(\d+)\b`)

var kindKeywords = map[types.ComponentKind][]string{
	types.KindAccommodation: {"hotel", "accommodation", "lodging", "stay"},
	types.KindTransport:     {"transport", "flight", "drive", "train", "getting there"},
	types.KindRestaurant:    {"restaurant", "dinner", "lunch", "breakfast", "meal", "eat", "dining"},
	types.KindActivity:      {"activity", "attraction", "visit", "see", "tour"},
}

var slotKeywords = map[types.SlotName][]string{
	types.SlotMorning:   {"morning", "breakfast", "am"},
	types.SlotAfternoon: {"afternoon", "lunch", "midday", "noon"},
	types.SlotEvening:   {"evening", "dinner", "night", "pm"},
}

func parseReference(phrase string) reference {
	low := strings.ToLower(strings.TrimSpace(phrase))
	ref := reference{}

	if m := dayRe.FindStringSubmatch(low); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ref.day = n
		}
	}
	for slot, words := range slotKeywords {
		for _, w := range words {
			if containsWord(low, w) {
				ref.slot = slot
				break
			}
		}
		if ref.slot != "" {
			break
		}
	}
	for kind, words := range kindKeywords {
		for _, w := range words {
			if containsWord(low, w) {
				ref.kinds = append(ref.kinds, kind)
				break
			}
		}
	}
	return ref
}

func containsWord(text, word string) bool {
	if strings.Contains(word, " ") {
		return strings.Contains(text, word)
	}
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}

// index maps (kind, day, slot) descriptors to current components so lookup
// stays deterministic instead of scanning free text against every record.
type index struct {
	entries []*types.Component
}

func buildIndex(cs *types.ComponentSet) index {
	return index{entries: cs.Current()}
}

// match scores a component against a parsed reference. A component matches
// when every descriptor present in the reference agrees with it.
func (ix index) match(ref reference) []*types.Component {
	var out []*types.Component
	for _, c := range ix.entries {
		if ref.day > 0 && c.Day != ref.day {
			continue
		}
		if ref.slot != "" && c.Slot != ref.slot {
			continue
		}
		if len(ref.kinds) > 0 && !kindIn(c.Kind, ref.kinds) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func kindIn(kind types.ComponentKind, kinds []types.ComponentKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Find resolves a natural-language phrase ("the hotel", "day 2 dinner",
// "morning activity day 1") to a component. Ties break toward the most
// recently registered match. No match returns ok=false — never a guess.
func (r *Registry) Find(cs *types.ComponentSet, phrase string) (*types.Component, bool) {
	ref := parseReference(phrase)
	if len(ref.kinds) == 0 && ref.day == 0 && ref.slot == "" {
		return r.findByName(cs, phrase)
	}

	candidates := buildIndex(cs).match(ref)
	if len(candidates) == 0 {
		// Descriptors parsed but nothing matched; fall back to name match
		// before reporting not-found.
		return r.findByName(cs, phrase)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Seq > best.Seq {
			best = c
		}
	}
	return best, true
}

// findByName matches the phrase against component names as a last resort.
func (r *Registry) findByName(cs *types.ComponentSet, phrase string) (*types.Component, bool) {
	low := strings.ToLower(strings.TrimSpace(phrase))
	if low == "" {
		return nil, false
	}
	var best *types.Component
	for _, c := range cs.Current() {
		name := strings.ToLower(c.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, low) || strings.Contains(low, name) {
			if best == nil || c.Seq > best.Seq {
				best = c
			}
		}
	}
	return best, best != nil
}
