package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// isDocument reports whether path names a parsed document file.
func isDocument(path string) bool {
	_, ok := constants.DocumentExtensions[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// hiddenBelow reports whether path is a dot entry other than root itself.
func hiddenBelow(root, path string) bool {
	return path != root && strings.HasPrefix(filepath.Base(path), ".")
}
