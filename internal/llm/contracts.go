package llm

import (
	"context"
	"strings"
)

// FieldSpec is one requested field and the guidance for answering it.
type FieldSpec struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// FieldRequest is a single grouped extraction call: one text blob, an ordered field list.
type FieldRequest struct {
	Group  string
	Text   string
	Fields []FieldSpec
}

// FieldNames returns the requested field names in order.
func (r FieldRequest) FieldNames() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

// RawAnswer holds exactly one unvalidated value per requested field; "" means not stated.
type RawAnswer map[string]string

// TextService is the interface the extraction orchestrator depends on.
// Implementations return a *ServiceError on failure and never retry.
type TextService interface {
	ExtractFields(ctx context.Context, req FieldRequest) (RawAnswer, []byte /*rawJSON*/, error)
}

// Populated counts fields with a non-blank value.
func (a RawAnswer) Populated() int {
	n := 0
	for _, v := range a {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
