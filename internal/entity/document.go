package entity

// ContractDocument is the parser's output for one filing exhibit. The pipeline never mutates it.
type ContractDocument struct {
	URL      string    `json:"url,omitempty"`
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"sections"`
}

// Metadata describes the filing the document came from.
type Metadata struct {
	Type        string `json:"type"` // e.g. "EX-10.2"
	Sequence    string `json:"sequence,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Description string `json:"description,omitempty"`
	Form        string `json:"form,omitempty"` // parent filing form, e.g. "8-K"
	Date        string `json:"date,omitempty"`
}

// Section is one numbered section, or a synthetic "Exhibit A" block appended after the signatures.
type Section struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// PreambleNumber marks the unnumbered text before section 1.
const PreambleNumber = "0"

// IsPreamble reports whether s holds the opening recitals.
func (s Section) IsPreamble() bool {
	return s.Number == PreambleNumber
}

// Pairs returns metadata as ordered key/value pairs, skipping empty values.
func (m Metadata) Pairs() [][2]string {
	all := [][2]string{
		{"type", m.Type},
		{"sequence", m.Sequence},
		{"filename", m.Filename},
		{"description", m.Description},
		{"form", m.Form},
		{"date", m.Date},
	}
	out := all[:0]
	for _, kv := range all {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}
