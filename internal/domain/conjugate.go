package domain

import "strings"

// Conjugation holds the three derived forms of a verb used to name lifecycle
// events: the action (the verb itself), the activity (before phase, "-ing")
// and the event (after phase, "-ed").
type Conjugation struct {
	Action   string
	Activity string
	Event    string
}

// doubledFinalConsonant is a closed class of single-syllable CVC verbs longer
// than three letters that double their final consonant (ship -> shipping).
// The table is a lookup, not a linguistic model; verbs outside it fall
// through to the default rule.
var doubledFinalConsonant = map[string]struct{}{
	"ship": {},
	"stop": {},
	"plan": {},
	"drop": {},
	"flag": {},
	"grab": {},
	"scan": {},
	"skip": {},
	"star": {},
	"swap": {},
	"trim": {},
	"wrap": {},
}

// Conjugate derives the three verb forms. Rules apply in priority order:
// trailing "e", consonant+"y", final-consonant doubling, then plain
// suffixing. Mismatches with natural English outside these rules are known
// limitations of the closed table.
func Conjugate(verb string) Conjugation {
	c := Conjugation{Action: verb}

	switch {
	case strings.HasSuffix(verb, "e"):
		c.Event = verb + "d"
		switch {
		case strings.HasSuffix(verb, "ee"):
			c.Activity = verb + "ing"
		case strings.HasSuffix(verb, "ie"):
			c.Activity = verb[:len(verb)-2] + "ying"
		default:
			c.Activity = verb[:len(verb)-1] + "ing"
		}
	case endsConsonantY(verb):
		c.Event = verb[:len(verb)-1] + "ied"
		c.Activity = verb + "ing"
	case doublesFinal(verb):
		last := verb[len(verb)-1:]
		c.Event = verb + last + "ed"
		c.Activity = verb + last + "ing"
	default:
		c.Event = verb + "ed"
		c.Activity = verb + "ing"
	}

	return c
}

func endsConsonantY(verb string) bool {
	if len(verb) < 2 || !strings.HasSuffix(verb, "y") {
		return false
	}
	return !isVowel(verb[len(verb)-2])
}

// doublesFinal reports whether the final consonant doubles before a suffix:
// short CVC verbs always do, longer ones only when listed.
func doublesFinal(verb string) bool {
	if len(verb) < 2 {
		return false
	}
	last := verb[len(verb)-1]
	if isVowel(last) || last == 'w' || last == 'x' || last == 'y' {
		return false
	}
	if !isVowel(verb[len(verb)-2]) {
		return false
	}
	if len(verb) <= 3 {
		return true
	}
	_, listed := doubledFinalConsonant[verb]
	return listed
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
