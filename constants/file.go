package constants

import "strings"

// DocumentExtensions holds the default allowed file extensions for document discovery.
var DocumentExtensions = map[string]struct{}{
	"json": {},
}

// ManifestExtensions are the file extensions accepted for batch manifests.
var ManifestExtensions = map[string]struct{}{
	"yaml": {},
	"yml":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
