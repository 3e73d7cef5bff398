package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	data := `{"asset_dir": "/assets", "fps": 30, "webp_quality": 75}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AssetDir != "/assets" || cfg.FPS != 30 || cfg.WebPQuality != 75 {
		t.Fatalf("loaded: %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("missing file did not error")
	}
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("bad json did not error")
	}
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{}, "")

	if cfg.OutputDir != "." || cfg.FPS != 24 || cfg.WebPQuality != 90 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.TextureWorkers < 1 || cfg.TextureWorkers > 4 {
		t.Fatalf("worker default out of range: %d", cfg.TextureWorkers)
	}
}

func TestResolveFlagPriority(t *testing.T) {
	cfg := Config{AssetDir: "/from-file", FPS: 30}
	cfg.Resolve(Flags{AssetDir: "/from-flag", Workers: 2}, "")

	if cfg.AssetDir != "/from-flag" {
		t.Fatalf("flag did not win: %q", cfg.AssetDir)
	}
	if cfg.FPS != 30 {
		t.Fatalf("unset flag clobbered config: %v", cfg.FPS)
	}
	if cfg.TextureWorkers != 2 {
		t.Fatalf("workers: %d", cfg.TextureWorkers)
	}
}

func TestResolveDetectsAssetDir(t *testing.T) {
	dir := t.TempDir()
	tex := filepath.Join(dir, "textures")
	if err := os.Mkdir(tex, 0o755); err != nil {
		t.Fatal(err)
	}
	scene := filepath.Join(dir, "scene.json")

	var cfg Config
	cfg.Resolve(Flags{}, scene)
	if cfg.AssetDir != tex {
		t.Fatalf("asset dir: %q, want %q", cfg.AssetDir, tex)
	}

	// No textures subdirectory: the scene's own directory serves.
	other := t.TempDir()
	var cfg2 Config
	cfg2.Resolve(Flags{}, filepath.Join(other, "scene.json"))
	if cfg2.AssetDir != other {
		t.Fatalf("fallback asset dir: %q, want %q", cfg2.AssetDir, other)
	}
}
