package command

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// rule maps a set of phrases to an action. Rules are evaluated in order
// and the first hit wins, which keeps overlapping substrings deterministic
// ("right" resolves before the fuzzy "righ" fallback can fire).
type rule struct {
	phrases []string
	action  Action
}

// Rule tables, in matching priority order.
var (
	exactRules = []rule{
		{[]string{"take off", "takeoff", "lift off"}, TakeOff},
		{[]string{"land", "landing"}, Land},
		{[]string{"stop", "halt", "hover"}, Hover},
	}

	directionRules = []rule{
		{[]string{"forward", "ahead"}, Move(Forward)},
		{[]string{"back", "backward"}, Move(Backward)},
		{[]string{"left"}, Move(Left)},
		{[]string{"right"}, Move(Right)},
		{[]string{"up"}, Move(Up)},
		{[]string{"down"}, Move(Down)},
	}

	// Partial transcriptions: "forward" often arrives as "for", "right"
	// as "righ" or even "write".
	fuzzyRules = []rule{
		{[]string{"for"}, Move(Forward)},
		{[]string{"lef"}, Move(Left)},
		{[]string{"righ", "write"}, Move(Right)},
	}

	// Single-token near misses, rescued by edit distance. Tokens shorter
	// than three letters are excluded so that small words in normal speech
	// don't trigger movements.
	nearMissWords = []struct {
		word   string
		action Action
	}{
		{"takeoff", TakeOff},
		{"land", Land},
		{"hover", Hover},
		{"stop", Hover},
		{"halt", Hover},
		{"forward", Move(Forward)},
		{"backward", Move(Backward)},
		{"left", Move(Left)},
		{"right", Move(Right)},
		{"down", Move(Down)},
	}
)

// ValidCommands is the help text appended to unknown-command failures.
const ValidCommands = "take off, land, forward, back, left, right, up, down, stop"

// Normalize maps free text to a vehicle action. It is pure, deterministic
// and total: every input yields either exactly one action or ok == false
// with the vehicle untouched. Matching is case-insensitive on the
// whitespace-trimmed input.
func Normalize(text string) (Action, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Action{}, false
	}

	for _, table := range [][]rule{exactRules, directionRules, fuzzyRules} {
		for _, r := range table {
			for _, phrase := range r.phrases {
				if strings.Contains(s, phrase) {
					return r.action, true
				}
			}
		}
	}

	// Last resort: a single edit away from a canonical word still counts.
	for _, token := range strings.Fields(s) {
		if len(token) < 3 {
			continue
		}
		for _, nm := range nearMissWords {
			if matchr.Levenshtein(token, nm.word) == 1 {
				return nm.action, true
			}
		}
	}

	return Action{}, false
}
