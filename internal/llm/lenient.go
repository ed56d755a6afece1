package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var reFenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ErrNoJSONObject is returned when a reply contains no JSON object at all.
var ErrNoJSONObject = errors.New("no json object in reply")

// ExtractJSONObject pulls the first JSON object out of a model reply, preferring a fenced ```json block.
func ExtractJSONObject(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "{") && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	if m := reFenced.FindStringSubmatch(s); m != nil && json.Valid([]byte(m[1])) {
		return []byte(m[1]), nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		candidate := s[start : end+1]
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}
	return nil, ErrNoJSONObject
}

// SanitizeAnswer reshapes a decoded reply so it validates against BuildFieldsJSONSchema(fields):
// unknown keys are dropped, non-string scalars become strings, and missing fields become "".
// The returned list names every key that was dropped, coerced or filled.
func SanitizeAnswer(doc []byte, fields []string) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	var changed []string
	out := make(map[string]string, len(fields))
	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			changed = append(changed, k+"(unknown)")
			continue
		}
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = ""
			changed = append(changed, k+"(null)")
		case bool:
			out[k] = strconv.FormatBool(t)
			changed = append(changed, k+"(bool)")
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
			changed = append(changed, k+"(number)")
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			out[k] = strings.Join(parts, "; ")
			changed = append(changed, k+"(list)")
		default:
			b, _ := json.Marshal(t)
			out[k] = string(b)
			changed = append(changed, k+"(object)")
		}
	}
	for _, f := range fields {
		if _, ok := out[f]; !ok {
			out[f] = ""
			changed = append(changed, f+"(missing)")
		}
	}
	sort.Strings(changed)

	b, err := json.Marshal(out)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, changed, nil
}
