// Package texture fetches and decodes texture assets for material
// realization. Fetching is asynchronous and never blocks scene
// construction; completion callbacks patch already-published materials.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Resolver maps an asset-relative path, plus the identifier of the prim
// that referenced it, to a loadable location. The composing application
// provides the real one; DirIndex is the filesystem fallback.
type Resolver interface {
	Resolve(assetPath, fromPath string) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(assetPath, fromPath string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(assetPath, fromPath string) (string, bool) {
	return f(assetPath, fromPath)
}

// decoders dispatches by file extension. TGA carries no magic bytes and
// the tga package registers a catch-all sniffer with image.Decode that
// shadows every format registered after it, so the image.Decode registry
// cannot be used here at all.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".tga":  tga.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": webp.Decode,
}

// LoadFile reads and decodes an image file into NRGBA.
func LoadFile(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("texture: unsupported image format %s", path)
	}
	img, err := decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any decoded image to NRGBA.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha channel — draw and force alpha to 255.
		draw.Draw(dst, b, src, b.Min, draw.Src)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Pix[dst.PixOffset(x, y)+3] = 255
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	}
	return dst
}

// GuessColor guesses a flat substitute color from an asset file name,
// used when a texture fails to decode. Matches color words in the
// lowercase stem; ok is false when nothing matches.
func GuessColor(assetPath string) (r, g, b float32, ok bool) {
	stem := strings.ToLower(assetPath)
	if i := strings.LastIndexByte(stem, '/'); i >= 0 {
		stem = stem[i+1:]
	}
	for word, c := range colorWords {
		if strings.Contains(stem, word) {
			return c[0], c[1], c[2], true
		}
	}
	return 0, 0, 0, false
}

var colorWords = map[string][3]float32{
	"black":  {0.05, 0.05, 0.05},
	"white":  {0.95, 0.95, 0.95},
	"gray":   {0.5, 0.5, 0.5},
	"grey":   {0.5, 0.5, 0.5},
	"red":    {0.8, 0.1, 0.1},
	"green":  {0.1, 0.6, 0.15},
	"blue":   {0.12, 0.25, 0.7},
	"yellow": {0.9, 0.8, 0.1},
	"orange": {0.9, 0.5, 0.1},
	"brown":  {0.4, 0.26, 0.13},
	"wood":   {0.45, 0.3, 0.17},
	"gold":   {0.85, 0.68, 0.21},
	"silver": {0.75, 0.75, 0.78},
	"metal":  {0.6, 0.6, 0.62},
	"skin":   {0.87, 0.67, 0.53},
	"leaf":   {0.2, 0.5, 0.16},
	"grass":  {0.25, 0.55, 0.18},
	"stone":  {0.55, 0.53, 0.5},
	"sand":   {0.8, 0.72, 0.55},
	"water":  {0.15, 0.35, 0.6},
}
