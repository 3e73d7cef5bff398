package stage

import (
	"strings"

	"github.com/g3n/engine/core"
	"github.com/g3n/engine/graphic"
	"github.com/g3n/engine/material"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/skin"
)

// skeletonEntry is one realized skeleton: the joint topology, the bone
// node hierarchy driving the engine skeleton, and the optional
// animation source applied per frame.
type skeletonEntry struct {
	pr    *prim.Prim
	skel  *skin.Skeleton
	bones []*core.Node
	gsk   *graphic.Skeleton

	// animSrc is the SkelAnimation prim bound through
	// skel:animationSource, nil for a rest-pose skeleton.
	animSrc *prim.Prim

	// animRemap maps animation joint order to skeleton joint order,
	// nil when the orders already agree.
	animRemap []int
}

// pendingSkin is a skinned mesh waiting for its skeleton. The mesh is
// already in the graph as a static placeholder; the deferred bind pass
// swaps it for a rigged mesh once the skeleton has been realized.
type pendingSkin struct {
	pr          *prim.Prim
	attach      *core.Node
	placeholder *graphic.Mesh
	bg          *builtGeometry
	mat         material.IMaterial

	jointIdx   []int
	weights    []float32
	elemSize   int
	meshJoints []string
	bindXf     mgl32.Mat4
}

// emitSkeleton realizes a Skeleton prim into a bone node hierarchy plus
// the engine skeleton the rigged meshes will reference.
func (s *Stage) emitSkeleton(p *prim.Prim, node *core.Node) {
	joints, _ := prim.AsStrings(p.Prop("joints").Val())
	bind, _ := prim.AsMat4s(p.Prop("bindTransforms").Val())
	rest, _ := prim.AsMat4s(p.Prop("restTransforms").Val())

	sk, err := skin.Build(joints, bind, rest)
	if err != nil {
		s.log.Warn("skeleton build failed", "prim", string(p.Path), "err", err)
		return
	}

	bones := make([]*core.Node, len(sk.Joints))
	gsk := graphic.NewSkeleton()
	for i, j := range sk.Joints {
		bone := core.NewNode()
		if k := strings.LastIndexByte(j, '/'); k >= 0 {
			bone.SetName(j[k+1:])
		} else {
			bone.SetName(j)
		}
		applyTRS(bone, sk.Rest[i])
		if pi := sk.Parents[i]; pi >= 0 {
			bones[pi].Add(bone)
		} else {
			node.Add(bone)
		}
		bones[i] = bone
		gsk.AddBone(bone, toMath32(sk.InverseBind[i]))
	}

	entry := &skeletonEntry{pr: p, skel: sk, bones: bones, gsk: gsk}
	s.skeletons[p.Path] = entry

	if rel := p.Rel("skel:animationSource"); len(rel) > 0 {
		if anim := s.root.Find(rel[0]); anim != nil {
			entry.animSrc = anim
			if aj, ok := prim.AsStrings(anim.Prop("joints").Val()); ok {
				entry.animRemap = sk.Remap(aj)
			}
			s.registry = append(s.registry, animEntry{pr: anim, kind: animSkel, skel: entry})
		} else {
			s.log.Warn("animation source not found",
				"prim", string(p.Path), "target", string(rel[0]))
		}
	}
}

// bindPendingSkins completes every deferred mesh-to-skeleton binding
// recorded during traversal. A skeleton that never appeared leaves its
// meshes as the static placeholders already in the graph.
func (s *Stage) bindPendingSkins() {
	for skelPath, list := range s.pending {
		entry, ok := s.skeletons[skelPath]
		if !ok {
			s.log.Warn("skeleton not found, meshes stay static",
				"skeleton", string(skelPath), "meshes", len(list))
			continue
		}
		for _, ps := range list {
			var remap []int
			if len(ps.meshJoints) > 0 {
				remap = entry.skel.Remap(ps.meshJoints)
			}
			inf, err := skin.VertexInfluences(ps.jointIdx, ps.weights, ps.elemSize, ps.bg.orig, remap)
			if err != nil {
				s.log.Warn("skin influences rejected, mesh stays static",
					"prim", string(ps.pr.Path), "err", err)
				continue
			}
			ps.bg.attachInfluences(inf)

			ps.attach.Remove(ps.placeholder)
			rigged := graphic.NewRiggedMesh(graphic.NewMesh(ps.bg.geo, ps.mat))
			rigged.SetSkeleton(entry.gsk)
			if ps.bindXf != (mgl32.Ident4()) {
				applyTRS(rigged.GetNode(), ps.bindXf)
			}
			ps.attach.Add(rigged)
		}
	}
}
