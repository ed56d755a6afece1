package llm

import (
	"strings"
)

// BuildSystemPrompt composes the system message: role, output contract and formatting rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a legal document analyst extracting structured data from software contracts.",
		"Return ONLY a JSON object whose keys are exactly the requested field names.",
		"Every requested key MUST be present. Use an empty string \"\" for any field that cannot be determined from the text.",
		"All values are strings. Never output null, numbers or nested objects.",
		"Answer yes/no fields with exactly \"yes\" or \"no\".",
		"Express durations as a whole number followed by d, mo or y (e.g. \"30d\", \"6mo\", \"1y\").",
		"Write party names in lowercase without legal suffixes such as corp, inc, ltd, llc.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the routed contract text and the field definitions for one group.
func BuildUserPrompt(req FieldRequest) string {
	var b strings.Builder
	b.WriteString("<contract>\n")
	b.WriteString(req.Text)
	b.WriteString("\n</contract>\n\n")
	b.WriteString("Extract the following fields. Return ONLY valid JSON with these exact keys.\n\n")
	b.WriteString("FIELD DEFINITIONS:\n")
	for _, f := range req.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		if d := strings.TrimSpace(f.Definition); d != "" {
			b.WriteString(": ")
			b.WriteString(d)
		}
		b.WriteString("\n")
	}
	return b.String()
}
