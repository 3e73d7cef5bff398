// Package batch converts a scene's referenced texture assets to WebP
// using a worker pool. It backs the texdump tool.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"usd-stage-realizer/internal/texture"

	"github.com/HugoSmits86/nativewebp"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	Resolver  texture.Resolver
	Workers   int
}

// Asset is one texture reference found in a scene.
type Asset struct {
	Path string // authored asset path
	From string // prim that referenced it
}

// Result holds the outcome of converting one asset.
type Result struct {
	Asset   string
	Output  string
	Success bool
	Error   string
}

// Run converts all assets using a worker pool.
func Run(cfg Config, assets []Asset) []Result {
	total := len(assets)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f textures/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	assetChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range assetChan {
				results[idx] = processAsset(cfg, assets[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range assets {
		assetChan <- i
	}
	close(assetChan)

	wg.Wait()
	close(done)

	return results
}

func processAsset(cfg Config, a Asset) Result {
	location, ok := cfg.Resolver.Resolve(a.Path, a.From)
	if !ok {
		return Result{
			Asset: a.Path,
			Error: "asset not resolvable",
		}
	}

	img, err := texture.LoadFile(location)
	if err != nil {
		return Result{
			Asset: a.Path,
			Error: err.Error(),
		}
	}

	stem := strings.TrimSuffix(filepath.Base(a.Path), filepath.Ext(a.Path))
	outPath := filepath.Join(cfg.OutputDir, stem+".webp")
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return Result{
			Asset: a.Path,
			Error: err.Error(),
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return Result{
			Asset: a.Path,
			Error: err.Error(),
		}
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return Result{
			Asset: a.Path,
			Error: fmt.Sprintf("WebP encode: %v", err),
		}
	}

	return Result{
		Asset:   a.Path,
		Output:  outPath,
		Success: true,
	}
}
