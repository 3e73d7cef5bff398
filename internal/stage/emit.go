package stage

import (
	"image"
	"image/draw"

	"github.com/g3n/engine/geometry"
	"github.com/g3n/engine/gls"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/geom"
	"usd-stage-realizer/internal/skin"
)

// builtGeometry wraps the engine geometry together with the buffer
// handles the animation registry may need later.
type builtGeometry struct {
	geo    *geometry.Geometry
	posVBO *gls.VBO
	orig   []int
}

// buildGeometry uploads realized buffers into an engine geometry.
func buildGeometry(b *geom.Buffers) *builtGeometry {
	geo := geometry.NewGeometry()

	posVBO := gls.NewVBO(math32.ArrayF32(b.Positions)).AddAttrib(gls.VertexPosition)
	geo.AddVBO(posVBO)
	if len(b.Normals) > 0 {
		geo.AddVBO(gls.NewVBO(math32.ArrayF32(b.Normals)).AddAttrib(gls.VertexNormal))
	}
	if len(b.UVs) > 0 {
		geo.AddVBO(gls.NewVBO(math32.ArrayF32(b.UVs)).AddAttrib(gls.VertexTexcoord))
	}
	if len(b.Colors) > 0 {
		geo.AddVBO(gls.NewVBO(math32.ArrayF32(b.Colors)).AddAttrib(gls.VertexColor))
	}
	if b.Indices != nil {
		geo.SetIndices(math32.ArrayU32(b.Indices))
	}
	return &builtGeometry{geo: geo, posVBO: posVBO, orig: b.OrigPoint}
}

// attachInfluences adds skin-index/skin-weight attributes to a geometry.
func (bg *builtGeometry) attachInfluences(inf *skin.Influences) {
	bg.geo.AddVBO(gls.NewVBO(math32.ArrayF32(inf.Joints)).AddAttrib(gls.SkinIndex))
	bg.geo.AddVBO(gls.NewVBO(math32.ArrayF32(inf.Weights)).AddAttrib(gls.SkinWeight))
}

// toRGBA converts a decoded NRGBA image into the premultiplied form the
// engine's texture constructor expects.
func toRGBA(src *image.NRGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func toColor(v mgl32.Vec3) *math32.Color {
	return &math32.Color{R: v.X(), G: v.Y(), B: v.Z()}
}

func toColor4(v mgl32.Vec3, a float32) *math32.Color4 {
	return &math32.Color4{R: v.X(), G: v.Y(), B: v.Z(), A: a}
}

// flatten converts point arrays into the engine's flat layout.
func flatten(points []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(points)*3)
	for _, p := range points {
		out = append(out, p.X(), p.Y(), p.Z())
	}
	return out
}
