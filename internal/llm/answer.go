package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DecodeAnswer turns a model reply into a RawAnswer with exactly one value per field.
// The reply is validated strictly first; on failure a lenient sanitize is applied and re-validated.
func DecodeAnswer(content string, fields []string, reqID string, start time.Time, logger *slog.Logger) (RawAnswer, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rawContent, err := ExtractJSONObject(content)
	if err != nil {
		logger.Error("llm.extract.no_json",
			"req_id", reqID, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, []byte(content), &ServiceError{Kind: KindMalformed, Err: err}
	}

	schema := BuildFieldsJSONSchema(fields)
	if err := ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		cleaned, changed, sErr := SanitizeAnswer(rawContent, fields)
		if sErr != nil {
			logger.Error("llm.extract.sanitize_failed",
				"req_id", reqID, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("sanitize failed: %w", sErr)}
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			logger.Error("llm.extract.schema_validation_failed",
				"req_id", reqID, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("schema validation failed: %w", vErr)}
		}
		logger.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", reqID, "changed", changed,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	var out RawAnswer
	if err := json.Unmarshal(rawContent, &out); err != nil {
		logger.Error("llm.extract.unmarshal_failed",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("unmarshal fields: %w", err)}
	}
	return out, rawContent, nil
}
