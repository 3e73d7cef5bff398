// Command texdump finds every texture asset referenced by a scene's
// shader networks and converts them to WebP for inspection.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"usd-stage-realizer/internal/batch"
	"usd-stage-realizer/internal/config"
	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/scenejson"
	"usd-stage-realizer/internal/texture"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	assetDir := flag.String("assets", "", "Texture asset directory (default: auto-detect)")
	outputDir := flag.String("output", "", "Output directory (default: current directory)")
	workers := flag.Int("workers", 0, "Worker goroutines (default: NumCPU, max 4)")

	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: texdump [flags] scene.json")
		flag.PrintDefaults()
		os.Exit(2)
	}
	sceneFile := flag.Arg(0)

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{
		AssetDir:  *assetDir,
		OutputDir: *outputDir,
		Workers:   *workers,
	}, sceneFile)

	root, err := scenejson.Load(sceneFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	assets := collectAssets(root)
	if len(assets) == 0 {
		fmt.Println("No texture assets referenced.")
		return
	}
	fmt.Printf("Converting %d textures...\n", len(assets))

	results := batch.Run(batch.Config{
		OutputDir: cfg.OutputDir,
		Resolver:  texture.BuildDirIndex(cfg.AssetDir),
		Workers:   cfg.TextureWorkers,
	}, assets)

	var failed int
	for _, r := range results {
		if r.Success {
			fmt.Printf("OK   %s -> %s\n", r.Asset, r.Output)
		} else {
			failed++
			fmt.Printf("FAIL %s: %s\n", r.Asset, r.Error)
		}
	}

	manifest := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifest, assets, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing manifest: %v\n", err)
	}

	if failed > 0 {
		fmt.Printf("%d of %d failed\n", failed, len(results))
		os.Exit(1)
	}
}

// collectAssets walks the prim tree for file inputs on shader prims,
// deduplicated by asset path.
func collectAssets(root *prim.Prim) []batch.Asset {
	var assets []batch.Asset
	seen := make(map[string]bool)
	root.Walk(func(p *prim.Prim) bool {
		for name, prop := range p.Props {
			if name != "inputs:file" && name != "inputs:filename" {
				continue
			}
			asset, ok := prop.Val().(string)
			if !ok || asset == "" || seen[asset] {
				continue
			}
			seen[asset] = true
			assets = append(assets, batch.Asset{Path: asset, From: string(p.Path)})
		}
		return true
	})
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
	return assets
}
