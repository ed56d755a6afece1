// Package normalize merges per-group answers into one record and maps free text onto the controlled vocabularies.
package normalize

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/extract"
)

// Miss records a value that could not be mapped into its vocabulary and was stored as "".
type Miss struct {
	Field string
	Group string
	Raw   string
	Kind  constants.FieldKind
}

// Field normalises one value according to the kind of its column.
// The bool is false when a non-empty raw value was degraded to "".
func Field(field, raw string) (string, bool) {
	switch constants.KindOf(field) {
	case constants.KindBoolean:
		return Boolean(raw)
	case constants.KindDuration:
		return Duration(raw)
	case constants.KindParty:
		return Party(raw), true
	}
	if field == constants.FieldExhibit {
		return Exhibit(raw), true
	}
	return cleanText(raw), true
}

// Merge overlays group answers in order onto an all-empty record: the first non-empty
// normalised value for a field wins. form and date come from metadata and url from the caller.
func Merge(answers extract.Answers, meta entity.Metadata, url string) (entity.ExtractedRecord, []Miss) {
	rec := entity.NewExtractedRecord()
	var misses []Miss

	for _, ga := range answers {
		for field, raw := range ga.Answer {
			switch constants.KindOf(field) {
			case constants.KindMetadata, constants.KindURL, constants.KindIndex:
				continue
			}
			if rec.Get(field) != "" {
				continue
			}
			v, ok := Field(field, raw)
			if !ok {
				misses = append(misses, Miss{Field: field, Group: ga.Group, Raw: raw, Kind: constants.KindOf(field)})
				continue
			}
			rec.Set(field, v)
		}
	}

	rec.Set(constants.FieldForm, formFromMetadata(meta))
	rec.Set(constants.FieldDate, cleanText(meta.Date))
	rec.Set(constants.ColumnURL, strings.TrimSpace(url))
	if rec.Get(constants.FieldExhibit) == "" && isExhibitType(meta.Type) {
		rec.Set(constants.FieldExhibit, Exhibit(meta.Type))
	}
	return rec, misses
}

// LogMisses reports normalisation misses at debug level; they never fail a document.
func LogMisses(logger *slog.Logger, url string, misses []Miss) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, m := range misses {
		logger.Debug("normalize.miss", "url", url, "field", m.Field, "group", m.Group, "kind", m.Kind, "raw", m.Raw)
	}
}

func formFromMetadata(meta entity.Metadata) string {
	if f := cleanText(meta.Form); f != "" {
		return f
	}
	if t := cleanText(meta.Type); t != "" && !isExhibitType(t) {
		return t
	}
	return ""
}

func isExhibitType(t string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(t)), "EX-")
}
