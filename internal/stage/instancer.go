package stage

import (
	"github.com/g3n/engine/core"
	"github.com/g3n/engine/graphic"
	"github.com/g3n/engine/material"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
)

// protoItem is one draw record collected while realizing a prototype
// subtree: shared geometry and material plus the accumulated transform
// from the prototype root down to the emitting prim.
type protoItem struct {
	bg    *builtGeometry
	mat   material.IMaterial
	world mgl32.Mat4
}

// protoResult caches a realized prototype for the duration of one pass
// so several instancers referencing the same prototype share it.
type protoResult struct {
	items []protoItem
}

// InstanceSet is the node an instancer group expands into. Instances
// share prototype geometry and materials; Matrices records the composed
// per-instance transforms in instance order.
type InstanceSet struct {
	*core.Node
	Matrices []math32.Matrix4
}

// emitInstancer expands a PointInstancer prim: prototypes are realized
// once each, then fanned out across the authored per-instance
// position/orientation/scale arrays.
func (s *Stage) emitInstancer(sn *sceneNode, node *core.Node, ctx *travCtx) {
	p := sn.pr

	protoPaths := p.Rel("prototypes")
	if len(protoPaths) == 0 {
		// Fallback: the instancer's direct children are the prototypes.
		p.VisitChildren(func(c *prim.Prim) {
			protoPaths = append(protoPaths, c.Path)
		})
	}
	if len(protoPaths) == 0 {
		s.log.Warn("instancer without prototypes", "prim", string(p.Path))
		return
	}

	indices, _ := prim.AsInts(sample.EvalAttr(p, "protoIndices", ctx.time))
	positions, _ := prim.AsVec3s(sample.EvalAttr(p, "positions", ctx.time))
	orientations, _ := prim.AsQuats(sample.EvalAttr(p, "orientations", ctx.time))
	scales, _ := prim.AsVec3s(sample.EvalAttr(p, "scales", ctx.time))

	n := len(indices)
	if n == 0 && len(positions) > 0 {
		// Untyped instancers default every instance to prototype 0.
		n = len(positions)
		indices = make([]int, n)
	}
	if n > len(positions) {
		s.log.Warn("instancer positions shorter than protoIndices",
			"prim", string(p.Path), "indices", n, "positions", len(positions))
		n = len(positions)
	}
	if n == 0 {
		return
	}

	protos := make([]*protoResult, len(protoPaths))
	for i, pp := range protoPaths {
		protos[i] = s.realizePrototype(pp, ctx.time)
	}

	if ctx.collect != nil {
		// Realizing inside an enclosing prototype: flatten this
		// instancer's expansion into the outer collection so nesting
		// composes instead of vanishing into the scratch graph.
		for i := 0; i < n; i++ {
			pi := indices[i]
			if pi < 0 || pi >= len(protos) || protos[pi] == nil {
				continue
			}
			m := ctx.world.Mul4(instanceMatrix(i, positions, orientations, scales))
			for _, item := range protos[pi].items {
				*ctx.collect = append(*ctx.collect, protoItem{
					bg:    item.bg,
					mat:   item.mat,
					world: m.Mul4(item.world),
				})
			}
		}
		return
	}

	set := &InstanceSet{Node: core.NewNode()}
	set.SetName("instances")
	for i := 0; i < n; i++ {
		pi := indices[i]
		if pi < 0 || pi >= len(protos) || protos[pi] == nil {
			s.log.Debug("instance prototype index out of range",
				"prim", string(p.Path), "instance", i, "proto", pi)
			continue
		}
		m := instanceMatrix(i, positions, orientations, scales)
		set.Matrices = append(set.Matrices, *toMath32(m))
		for _, item := range protos[pi].items {
			mesh := graphic.NewMesh(item.bg.geo, item.mat)
			applyTRS(mesh.GetNode(), m.Mul4(item.world))
			set.Add(mesh)
		}
	}
	node.Add(set)
}

// realizePrototype runs the full traversal over one prototype subtree,
// collecting draw records instead of attaching to the live graph. The
// result is cached per pass.
func (s *Stage) realizePrototype(path prim.Path, t float64) *protoResult {
	if res, ok := s.protos[path]; ok {
		return res
	}
	s.protos[path] = nil // claims the slot; a cyclic reference realizes empty

	proto := s.root.Find(path)
	if proto == nil {
		s.log.Warn("prototype not found", "target", string(path))
		return nil
	}

	var items []protoItem
	pctx := &travCtx{
		protoRoot: path,
		world:     mgl32.Ident4(),
		collect:   &items,
		time:      t,
	}
	scratch := core.NewNode()
	s.traverse(buildSceneNode(proto), scratch, pctx)

	res := &protoResult{items: items}
	s.protos[path] = res
	return res
}

// instanceMatrix composes one instance transform from the authored
// arrays, defaulting orientation and scale to identity when unauthored
// or short.
func instanceMatrix(i int, positions []mgl32.Vec3, orientations []mgl32.Quat, scales []mgl32.Vec3) mgl32.Mat4 {
	m := mgl32.Translate3D(positions[i].X(), positions[i].Y(), positions[i].Z())
	if i < len(orientations) {
		m = m.Mul4(orientations[i].Normalize().Mat4())
	}
	if i < len(scales) {
		m = m.Mul4(mgl32.Scale3D(scales[i].X(), scales[i].Y(), scales[i].Z()))
	}
	return m
}
