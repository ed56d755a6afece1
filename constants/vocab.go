package constants

import (
	"strings"
)

const (
	Yes = "yes"
	No  = "no"
)

var affirmative = map[string]struct{}{
	"yes": {}, "y": {}, "true": {}, "t": {}, "1": {}, "yeah": {}, "affirmative": {},
	"allowed": {}, "permitted": {}, "included": {}, "provided": {}, "required": {},
	"applies": {}, "correct": {}, "x": {}, "✓": {},
}

var negative = map[string]struct{}{
	"no": {}, "n": {}, "false": {}, "f": {}, "0": {}, "none": {}, "not allowed": {},
	"not permitted": {}, "prohibited": {}, "excluded": {}, "not provided": {},
	"not required": {}, "never": {}, "negative": {},
}

// unknown answers map to "" rather than "no".
var unknownAnswers = map[string]struct{}{
	"": {}, "n/a": {}, "na": {}, "n.a.": {}, "not applicable": {}, "unknown": {},
	"not stated": {}, "not specified": {}, "unclear": {}, "null": {}, "none stated": {},
	"-": {}, "?": {},
}

// CanonicalizeBoolean maps a free-text answer onto yes/no. The bool reports whether
// the input was recognised; an unrecognised answer returns "".
func CanonicalizeBoolean(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!")

	if _, ok := unknownAnswers[normalized]; ok {
		return "", true
	}
	if _, ok := affirmative[normalized]; ok {
		return Yes, true
	}
	if _, ok := negative[normalized]; ok {
		return No, true
	}

	// leading token, e.g. "Yes - with consent" or "no, unless agreed"
	head := normalized
	if i := strings.IndexAny(head, " ,;:-("); i > 0 {
		head = head[:i]
	}
	switch head {
	case "yes", "y", "true":
		return Yes, true
	case "no", "n", "false":
		return No, true
	}
	return "", false
}

// LegalSuffixes are stripped from party names, longest first so "l.l.c." wins over "co".
var LegalSuffixes = []string{
	"incorporated", "corporation", "limited", "company", "l.l.c", "corp", "inc", "ltd", "llc", "plc", "co",
}
