package stage

import (
	"github.com/g3n/engine/core"
	"github.com/g3n/engine/graphic"
	"github.com/g3n/engine/material"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/geom"
	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
	"usd-stage-realizer/internal/shading"
)

// emitMesh realizes a Mesh prim under node: geometry build, per-subset
// material split, skin deferral and animation registration. Errors are
// soft; a mesh that cannot be built degrades to a point stand-in or to
// nothing at all.
func (s *Stage) emitMesh(sn *sceneNode, node *core.Node, ctx *travCtx) {
	p := sn.pr

	pts, _ := prim.AsVec3s(sample.EvalAttr(p, "points", ctx.time))
	if len(pts) == 0 {
		s.log.Debug("mesh without points", "prim", string(p.Path))
		return
	}
	counts, _ := prim.AsInts(sample.EvalAttr(p, "faceVertexCounts", ctx.time))
	indices, _ := prim.AsInts(sample.EvalAttr(p, "faceVertexIndices", ctx.time))
	if len(counts) == 0 || len(indices) == 0 {
		s.log.Warn("mesh topology missing, emitting point stand-in", "prim", string(p.Path))
		s.emitStandIn(node, pts)
		return
	}

	orientation, _ := prim.AsString(p.Prop("orientation").Val())
	scheme, _ := prim.AsString(p.Prop("subdivisionScheme").Val())
	data := &geom.MeshData{
		Points:            pts,
		FaceVertexCounts:  counts,
		FaceVertexIndices: indices,
		LeftHanded:        orientation == "leftHanded",
		SubdivisionScheme: scheme,
		Normals:           meshPrimvar(p, ctx.time, 3, "normals", "primvars:normals"),
		UV:                meshPrimvar(p, ctx.time, 2, "primvars:st", "primvars:uv"),
		Color:             meshPrimvar(p, ctx.time, 3, "primvars:displayColor"),
	}
	buf, err := geom.Build(data)
	if err != nil {
		s.log.Warn("mesh build failed, emitting point stand-in",
			"prim", string(p.Path), "err", err)
		s.emitStandIn(node, pts)
		return
	}

	doubleSided := prim.AsBool(p.Prop("doubleSided").Val())

	type part struct {
		buf *geom.Buffers
		mat material.IMaterial
	}
	var parts []part
	subs := shading.Subsets(p, ctx.protoRoot, s.log)
	if len(subs) > 0 {
		claimed := make([][]int, 0, len(subs))
		for _, sb := range subs {
			pb := buf.SelectFaces(sb.Faces)
			if pb.TriangleCount() == 0 {
				continue
			}
			claimed = append(claimed, sb.Faces)
			var mat material.IMaterial
			if sb.Material != nil {
				mat = s.materialFromPrim(sb.Material, doubleSided)
			} else {
				mat = s.resolveMaterial(p, ctx.protoRoot, doubleSided)
			}
			parts = append(parts, part{buf: pb, mat: mat})
		}
		if rest := buf.RemainingFaces(claimed...); len(rest) > 0 {
			if pb := buf.SelectFaces(rest); pb.TriangleCount() > 0 {
				parts = append(parts, part{buf: pb, mat: s.resolveMaterial(p, ctx.protoRoot, doubleSided)})
			}
		}
	} else {
		parts = []part{{buf: buf, mat: s.resolveMaterial(p, ctx.protoRoot, doubleSided)}}
	}

	sk := s.meshSkin(p)
	deforming := p.Prop("points").Timed()

	for _, pt := range parts {
		bg := buildGeometry(pt.buf)

		if ctx.collect != nil {
			*ctx.collect = append(*ctx.collect, protoItem{bg: bg, mat: pt.mat, world: ctx.world})
			if sk != nil {
				s.log.Debug("skinning inside a prototype is drawn static", "prim", string(p.Path))
			}
			continue
		}

		mesh := graphic.NewMesh(bg.geo, pt.mat)
		node.Add(mesh)

		if sk != nil {
			s.pending[sk.skelPath] = append(s.pending[sk.skelPath], &pendingSkin{
				pr:          p,
				attach:      node,
				placeholder: mesh,
				bg:          bg,
				mat:         pt.mat,
				jointIdx:    sk.jointIdx,
				weights:     sk.weights,
				elemSize:    sk.elemSize,
				meshJoints:  sk.meshJoints,
				bindXf:      sk.bindXf,
			})
			continue
		}
		if deforming {
			s.registry = append(s.registry, animEntry{
				pr:     p,
				kind:   animPoints,
				posVBO: bg.posVBO,
				orig:   bg.orig,
			})
		}
	}
}

// meshSkinInfo is the authored skin data read off a mesh, held verbatim
// until the deferred bind pass when the skeleton is known.
type meshSkinInfo struct {
	skelPath   prim.Path
	jointIdx   []int
	weights    []float32
	elemSize   int
	meshJoints []string
	bindXf     mgl32.Mat4
}

// meshSkin reads skel binding data from a mesh prim, nil when the mesh
// is not skinned.
func (s *Stage) meshSkin(p *prim.Prim) *meshSkinInfo {
	rel := p.Rel("skel:skeleton")
	if len(rel) == 0 {
		return nil
	}
	ji, _ := prim.AsInts(p.Prop("primvars:skel:jointIndices").Val())
	w, _ := prim.AsFloats(p.Prop("primvars:skel:jointWeights").Val())
	if len(ji) == 0 || len(w) == 0 {
		s.log.Warn("skinned mesh without joint influences", "prim", string(p.Path))
		return nil
	}
	info := &meshSkinInfo{
		skelPath: rel[0],
		jointIdx: ji,
		weights:  w,
		bindXf:   mgl32.Ident4(),
	}
	if jp := p.Prop("primvars:skel:jointIndices"); jp != nil {
		info.elemSize = jp.ElementSize
	}
	info.meshJoints, _ = prim.AsStrings(p.Prop("skel:joints").Val())
	if m, ok := prim.AsMat4(p.Prop("primvars:skel:geomBindTransform").Val()); ok {
		info.bindXf = m
	}
	return info
}

// meshPrimvar reads the first of names off p as a flattened primvar of
// the given element width.
func meshPrimvar(p *prim.Prim, t float64, width int, names ...string) *geom.Primvar {
	for _, name := range names {
		pr := p.Prop(name)
		if pr == nil {
			continue
		}
		v := sample.Eval(pr, t)
		var vals []float32
		switch width {
		case 2:
			vs, ok := prim.AsVec2s(v)
			if !ok {
				continue
			}
			vals = make([]float32, 0, len(vs)*2)
			for _, e := range vs {
				vals = append(vals, e.X(), e.Y())
			}
		case 3:
			vs, ok := prim.AsVec3s(v)
			if !ok {
				continue
			}
			vals = flatten(vs)
		}
		if len(vals) == 0 {
			continue
		}
		return &geom.Primvar{
			Name:    name,
			Values:  vals,
			Width:   width,
			Indices: pr.Indices,
			Domain:  geom.Domain(pr.Interp),
		}
	}
	return nil
}

// materialFromPrim resolves a directly named material prim, as used by
// per-face subset bindings.
func (s *Stage) materialFromPrim(m *prim.Prim, doubleSided bool) material.IMaterial {
	desc := shading.Resolve(shading.SurfaceShader(m, s.log), s.log)
	desc.DoubleSided = desc.DoubleSided || doubleSided
	return s.materialFor(desc)
}

// emitStandIn draws raw points as a gray point cloud so a malformed
// mesh still registers visually.
func (s *Stage) emitStandIn(node *core.Node, pts []mgl32.Vec3) {
	bg := buildGeometry(&geom.Buffers{Positions: flatten(pts)})
	mat := material.NewStandard(&math32.Color{R: 0.5, G: 0.5, B: 0.5})
	node.Add(graphic.NewPoints(bg.geo, mat))
}
