// Package pipeline runs one contract document through routing, extraction and merge,
// and commits the result to the record store and ledger.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

// DocumentError marks a document that can never be processed as given. It is not retried.
type DocumentError struct {
	URL    string
	Reason string
	Err    error
}

func (e *DocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid document %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid document %s: %s", e.URL, e.Reason)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Validate checks the fields every document needs before any service call is made.
func Validate(doc entity.ContractDocument) error {
	v := common.NewValidator().
		Field("url", doc.URL, common.Required, common.AbsoluteHTTPURL).
		Field("sections", len(doc.Sections), common.MinCount(1))

	if len(doc.Sections) > 0 && !hasText(doc.Sections) {
		v.Field("sections", "", common.Required)
	}
	if err := v.Error(); err != nil {
		return &DocumentError{URL: doc.URL, Reason: v.ErrorMessage(), Err: err}
	}
	return nil
}

func hasText(sections []entity.Section) bool {
	for _, s := range sections {
		if strings.TrimSpace(s.Text) != "" || strings.TrimSpace(s.Title) != "" {
			return true
		}
	}
	return false
}
