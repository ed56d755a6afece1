package normalize

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// Boolean maps an answer onto yes, no or "".
func Boolean(raw string) (string, bool) {
	return constants.CanonicalizeBoolean(cleanText(raw))
}

var legalSuffixes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(constants.LegalSuffixes))
	for _, s := range constants.LegalSuffixes {
		m[s] = struct{}{}
	}
	return m
}()

// Party lowercases a party name and strips trailing legal-entity suffixes.
// A name made only of a suffix is kept as is.
func Party(raw string) string {
	s := strings.ToLower(cleanText(raw))
	for {
		s = strings.TrimRight(s, " ,.;")
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return s
		}
		last := strings.Trim(fields[len(fields)-1], ".,;")
		if _, ok := legalSuffixes[last]; !ok {
			return s
		}
		s = strings.Join(fields[:len(fields)-1], " ")
	}
}

// Exhibit reduces "EX-10.2" or "Exhibit 10.2" to "10.2".
func Exhibit(raw string) string {
	s := cleanText(raw)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"exhibit", "ex-", "ex"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := s[len(prefix):]
		// "Exxon" is not an exhibit reference
		if rest != "" && unicode.IsLetter(rune(rest[0])) {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(rest, " -.:"))
	}
	return s
}

// cleanText trims and collapses every whitespace run, tabs and newlines included, to one space.
func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
