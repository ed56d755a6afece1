package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/batch"
)

// ManifestEntry pairs a document file with the URL that identifies it.
type ManifestEntry struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// LoadManifest reads a YAML list of {path, url} entries. Relative paths are
// resolved against the manifest's directory.
func LoadManifest(path string) ([]ManifestEntry, error) {
	if _, ok := constants.ManifestExtensions[constants.NormalizeExt(filepath.Ext(path))]; !ok {
		return nil, fmt.Errorf("manifest %s: expected a .yaml or .yml file", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []ManifestEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", describe(path, err))
	}

	base := filepath.Dir(path)
	for i := range entries {
		p := strings.TrimSpace(entries[i].Path)
		if p == "" {
			return nil, fmt.Errorf("manifest entry %d: %w", i, errors.New("path is required"))
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		entries[i].Path = p
		entries[i].URL = strings.TrimSpace(entries[i].URL)
	}
	return entries, nil
}

// ManifestItems converts manifest entries into batch items in manifest order.
func ManifestItems(entries []ManifestEntry) []batch.Item {
	out := make([]batch.Item, len(entries))
	for i, e := range entries {
		out[i] = ItemForPath(e.Path, e.URL)
	}
	return out
}
