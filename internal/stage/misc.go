package stage

import (
	"math"

	"github.com/g3n/engine/core"
	"github.com/g3n/engine/graphic"
	"github.com/g3n/engine/light"
	"github.com/g3n/engine/material"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/geom"
	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
)

// emitPoints realizes a Points prim as a point-cloud draw object.
func (s *Stage) emitPoints(p *prim.Prim, node *core.Node, ctx *travCtx) {
	pts, _ := prim.AsVec3s(sample.EvalAttr(p, "points", ctx.time))
	if len(pts) == 0 {
		s.log.Debug("point cloud without points", "prim", string(p.Path))
		return
	}

	buf := &geom.Buffers{Positions: flatten(pts)}
	if col := meshPrimvar(p, ctx.time, 3, "primvars:displayColor"); col != nil && len(col.Values) == len(buf.Positions) {
		buf.Colors = col.Values
	}
	bg := buildGeometry(buf)

	mat := material.NewPoint(displayColor(p))
	if widths, ok := prim.AsFloats(sample.EvalAttr(p, "widths", ctx.time)); ok && len(widths) > 0 {
		mat.SetSize(widths[0])
	}
	node.Add(graphic.NewPoints(bg.geo, mat))

	if p.Prop("points").Timed() {
		s.registry = append(s.registry, animEntry{
			pr:     p,
			kind:   animPoints,
			posVBO: bg.posVBO,
		})
	}
}

// emitCurves realizes a BasisCurves prim as one line strip per curve.
// Basis and width rendering are approximated: every curve draws as a
// polyline through its control points.
func (s *Stage) emitCurves(p *prim.Prim, node *core.Node, ctx *travCtx) {
	pts, _ := prim.AsVec3s(sample.EvalAttr(p, "points", ctx.time))
	counts, _ := prim.AsInts(sample.EvalAttr(p, "curveVertexCounts", ctx.time))
	if len(pts) == 0 || len(counts) == 0 {
		s.log.Debug("curves without points or counts", "prim", string(p.Path))
		return
	}

	mat := material.NewStandard(displayColor(p))
	off := 0
	for ci, c := range counts {
		if c < 2 || off+c > len(pts) {
			s.log.Warn("curve vertex count out of range",
				"prim", string(p.Path), "curve", ci, "count", c)
			break
		}
		bg := buildGeometry(&geom.Buffers{Positions: flatten(pts[off : off+c])})
		node.Add(graphic.NewLineStrip(bg.geo, mat))
		off += c
	}
}

// emitLight realizes a light prim. Distant lights become directional,
// sphere lights point, dome lights ambient; everything else downgrades
// to a point light.
func (s *Stage) emitLight(p *prim.Prim, node *core.Node) {
	color := toColor(vec3Prop(p, "inputs:color", mgl32.Vec3{1, 1, 1}))
	intensity := floatProp(p, "inputs:intensity", 1)
	if exp := floatProp(p, "inputs:exposure", 0); exp != 0 {
		intensity *= float32(math.Exp2(float64(exp)))
	}

	switch p.TypeName {
	case "DistantLight":
		node.Add(light.NewDirectional(color, intensity))
	case "DomeLight":
		node.Add(light.NewAmbient(color, intensity))
	case "SphereLight":
		node.Add(light.NewPoint(color, intensity))
	default:
		s.log.Debug("light type approximated as point light",
			"type", p.TypeName, "prim", string(p.Path))
		node.Add(light.NewPoint(color, intensity))
	}
}

// displayColor returns the constant display color of a prim, mid-gray
// when unauthored.
func displayColor(p *prim.Prim) *math32.Color {
	if v, ok := prim.AsVec3(p.Prop("primvars:displayColor").Val()); ok {
		return toColor(v)
	}
	if vs, ok := prim.AsVec3s(p.Prop("primvars:displayColor").Val()); ok && len(vs) > 0 {
		return toColor(vs[0])
	}
	return &math32.Color{R: 0.7, G: 0.7, B: 0.7}
}

func floatProp(p *prim.Prim, name string, def float32) float32 {
	if v, ok := prim.AsFloat(p.Prop(name).Val()); ok {
		return v
	}
	return def
}

func vec3Prop(p *prim.Prim, name string, def mgl32.Vec3) mgl32.Vec3 {
	if v, ok := prim.AsVec3(p.Prop(name).Val()); ok {
		return v
	}
	return def
}
