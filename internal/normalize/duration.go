package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reCanonicalDuration = regexp.MustCompile(`^\d+(d|mo|y)$`)
	reParenNumber       = regexp.MustCompile(`\b[a-z]+(?:[- ][a-z]+)?\s*\((\d+(?:\.\d+)?)\)`)
	reDurationPhrase    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-?\s*(?:\(\s*\)\s*)?(calendar days?|business days?|days?|d|weeks?|wks?|w|months?|mos?|quarters?|years?|yrs?|y|hours?|hrs?|h)\b`)
	reWordNumber        = regexp.MustCompile(`\b(?:(twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety)[- ](one|two|three|four|five|six|seven|eight|nine)|[a-z]+)\b`)
)

var units = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90, "hundred": 100,
	"a": 1, "an": 1, "single": 1,
}

var immediate = map[string]struct{}{
	"immediate": {}, "immediately": {}, "upon notice": {}, "effective immediately": {},
	"0": {}, "none": {}, "no notice": {},
}

// Duration reduces a free-text period to an integer plus d, mo or y.
// It returns "" and false when no period can be read.
func Duration(raw string) (string, bool) {
	s := strings.ToLower(cleanText(raw))
	if s == "" {
		return "", true
	}
	if reCanonicalDuration.MatchString(s) {
		return s, true
	}
	if _, ok := unknownDuration[s]; ok {
		return "", true
	}
	if _, ok := immediate[s]; ok {
		return "0d", true
	}

	// "thirty (30) days" -> "30 days"
	s = reParenNumber.ReplaceAllString(s, "$1")
	s = reWordNumber.ReplaceAllStringFunc(s, wordToDigits)

	m := reDurationPhrase.FindStringSubmatch(s)
	if m == nil {
		if strings.Contains(s, "immediate") {
			return "0d", true
		}
		return "", false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", false
	}
	return canonicalDuration(n, m[2])
}

var unknownDuration = map[string]struct{}{
	"n/a": {}, "na": {}, "not applicable": {}, "unknown": {}, "not stated": {},
	"not specified": {}, "unclear": {}, "null": {}, "-": {},
}

func wordToDigits(w string) string {
	if v, ok := units[w]; ok {
		return strconv.Itoa(v)
	}
	parts := strings.FieldsFunc(w, func(r rune) bool { return r == '-' || r == ' ' })
	if len(parts) == 2 {
		tens, ok1 := units[parts[0]]
		ones, ok2 := units[parts[1]]
		if ok1 && ok2 {
			return strconv.Itoa(tens + ones)
		}
	}
	return w
}

func canonicalDuration(n float64, unit string) (string, bool) {
	switch {
	case strings.HasPrefix(unit, "h"):
		if n > 0 && math.Mod(n, 24) == 0 {
			return format(n/24, "d")
		}
		return "", false
	case strings.HasSuffix(unit, "days") || strings.HasSuffix(unit, "day") || unit == "d":
		return format(n, "d")
	case strings.HasPrefix(unit, "w"):
		return format(n*7, "d")
	case strings.HasPrefix(unit, "q"):
		return format(n*3, "mo")
	case strings.HasPrefix(unit, "mo"):
		if n != math.Trunc(n) {
			return format(n*30, "d")
		}
		return format(n, "mo")
	case strings.HasPrefix(unit, "y"):
		if n != math.Trunc(n) {
			return format(n*12, "mo")
		}
		return format(n, "y")
	}
	return "", false
}

// format rejects counts that do not fit an int64; float64(MaxInt64) rounds up to 2^63.
func format(n float64, suffix string) (string, bool) {
	if n < 0 || n >= math.MaxInt64 || n != math.Trunc(n) {
		return "", false
	}
	return strconv.FormatInt(int64(n), 10) + suffix, true
}
