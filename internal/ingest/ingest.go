// Package ingest finds parsed contract documents on disk and turns them into batch items.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/internal/batch"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// LoadDocument reads one parsed document. Unreadable or malformed files are
// reported as *pipeline.DocumentError so the batch never retries them.
func LoadDocument(path string) (entity.ContractDocument, error) {
	var doc entity.ContractDocument
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, &pipeline.DocumentError{URL: path, Reason: "read document", Err: err}
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, &pipeline.DocumentError{URL: path, Reason: "decode document json", Err: err}
	}
	return doc, nil
}

// ItemForPath builds a batch item for a document file. A non-empty url overrides
// the one stored in the document; without either the path itself keys the ledger.
func ItemForPath(path, url string) batch.Item {
	url = strings.TrimSpace(url)
	if url == "" {
		if doc, err := LoadDocument(path); err == nil {
			url = strings.TrimSpace(doc.URL)
		}
	}
	if url == "" {
		url = path
	}
	return batch.Item{
		URL: url,
		Load: func(ctx context.Context) (entity.ContractDocument, error) {
			if err := ctx.Err(); err != nil {
				return entity.ContractDocument{}, err
			}
			doc, err := LoadDocument(path)
			if err != nil {
				var derr *pipeline.DocumentError
				if errors.As(err, &derr) {
					derr.URL = url
				}
				return doc, err
			}
			return doc, nil
		},
	}
}

// ItemsForPaths builds one item per path, in order.
func ItemsForPaths(paths []string) []batch.Item {
	out := make([]batch.Item, len(paths))
	for i, p := range paths {
		out[i] = ItemForPath(p, "")
	}
	return out
}

func describe(path string, err error) error {
	return fmt.Errorf("%s: %w", path, err)
}
