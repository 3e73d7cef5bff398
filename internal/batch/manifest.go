package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one converted texture in the output manifest.
type ManifestEntry struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// WriteManifest writes manifest.json to the output directory.
func WriteManifest(path string, assets []Asset, results []Result) error {
	entries := make([]ManifestEntry, len(assets))
	for i, a := range assets {
		entries[i] = ManifestEntry{
			Asset:  a.Path,
			From:   a.From,
			Output: results[i].Output,
			Error:  results[i].Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
