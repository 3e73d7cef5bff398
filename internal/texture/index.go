package texture

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Image extensions the decoder stack understands, in priority order when
// one stem exists in several formats (earlier wins).
var imageExts = []string{".png", ".jpg", ".jpeg", ".tga", ".webp", ".tif", ".tiff", ".bmp", ".gif"}

// DirIndex maps lowercase file stems to filesystem paths. It is the
// fallback texture resolver for scenes whose assets sit next to the
// scene file; the composing application normally supplies its own
// Resolver.
type DirIndex struct {
	baseDir string
	entries map[string]string // stem.lower() → full path
}

// BuildDirIndex scans dir recursively for image files.
func BuildDirIndex(dir string) *DirIndex {
	idx := &DirIndex{baseDir: dir, entries: make(map[string]string)}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		rank := extRank(ext)
		if rank < 0 {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if existing, ok := idx.entries[stem]; ok {
			if extRank(strings.ToLower(filepath.Ext(existing))) <= rank {
				return nil
			}
		}
		idx.entries[stem] = path
		return nil
	})
	return idx
}

func extRank(ext string) int {
	for i, e := range imageExts {
		if e == ext {
			return i
		}
	}
	return -1
}

// Resolve implements Resolver. Relative asset paths are first tried
// verbatim against the base directory, then by lowercase stem lookup.
// The fromPath identifier is unused here; real resolvers disambiguate
// per-layer search paths with it.
func (idx *DirIndex) Resolve(assetPath, fromPath string) (string, bool) {
	clean := strings.ReplaceAll(assetPath, "\\", "/")
	if idx.baseDir != "" {
		direct := filepath.Join(idx.baseDir, filepath.FromSlash(clean))
		if info, err := os.Stat(direct); err == nil && !info.IsDir() {
			return direct, true
		}
	}
	base := filepath.Base(clean)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed files.
func (idx *DirIndex) Len() int { return len(idx.entries) }
