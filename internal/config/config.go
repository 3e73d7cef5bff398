package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds all configurable paths and realization settings.
type Config struct {
	// Paths
	AssetDir  string `json:"asset_dir"`
	OutputDir string `json:"output_dir"`

	// Realization settings
	FPS            float64 `json:"fps"`
	TextureWorkers int     `json:"texture_workers"`
	WebPQuality    int     `json:"webp_quality"`
	Verbose        bool    `json:"verbose"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty. sceneFile, when not
// empty, anchors asset-directory detection.
func (c *Config) Resolve(flags Flags, sceneFile string) {
	// CLI flags override config file
	if flags.AssetDir != "" {
		c.AssetDir = flags.AssetDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.FPS > 0 {
		c.FPS = flags.FPS
	}
	if flags.Workers > 0 {
		c.TextureWorkers = flags.Workers
	}
	if flags.Quality > 0 {
		c.WebPQuality = flags.Quality
	}
	if flags.Verbose {
		c.Verbose = true
	}

	// Auto-detect the asset dir next to the scene file if still empty
	if c.AssetDir == "" && sceneFile != "" {
		c.AssetDir = detectAssetDir(filepath.Dir(sceneFile))
	}

	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.FPS <= 0 {
		c.FPS = 24
	}
	if c.TextureWorkers <= 0 {
		c.TextureWorkers = runtime.NumCPU()
		if c.TextureWorkers > 4 {
			c.TextureWorkers = 4
		}
	}
	if c.WebPQuality <= 0 {
		c.WebPQuality = 90
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	AssetDir  string
	OutputDir string
	FPS       float64
	Workers   int
	Quality   int
	Verbose   bool
}

func detectAssetDir(sceneDir string) string {
	candidates := []string{
		filepath.Join(sceneDir, "textures"),
		filepath.Join(sceneDir, "Textures"),
		sceneDir,
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c
		}
	}
	return sceneDir
}
