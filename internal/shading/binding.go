package shading

import (
	"log/slog"

	"usd-stage-realizer/internal/prim"
)

// Binding relationship names, strongest first.
var bindingRels = []string{
	"material:binding:preview",
	"material:binding:full",
	"material:binding",
}

// ResolveBinding finds the material bound to p. Bindings are inheritable
// down the namespace: the walk starts at p and climbs through ancestors
// until a binding relationship resolves. stopAt bounds the climb when
// resolving inside a prototype or referenced subtree, so bindings never
// leak past the subtree root; pass "" for whole-scene resolution.
//
// Returns nil when nothing is bound; callers substitute the neutral
// material.
func ResolveBinding(p *prim.Prim, stopAt prim.Path, log *slog.Logger) *prim.Prim {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	for cur := p; cur != nil; cur = cur.Parent {
		for _, rel := range bindingRels {
			for _, target := range cur.Rel(rel) {
				if m := resolveTarget(cur, target, stopAt, log); m != nil {
					return m
				}
			}
		}
		if stopAt != "" && cur.Path == stopAt {
			break
		}
	}
	return nil
}

// resolveTarget resolves a binding target path. Absolute targets that
// miss are retried against remap heuristics for referenced or prototype
// content: under the stop boundary, under /Materials, then by leaf-name
// scan. The heuristics are string rewrites, not a guaranteed resolution;
// the first match wins and ambiguity is logged.
func resolveTarget(from *prim.Prim, target prim.Path, stopAt prim.Path, log *slog.Logger) *prim.Prim {
	if m := from.Find(target); m != nil {
		return m
	}

	leaf := target.Name()
	var tries []prim.Path
	if stopAt != "" {
		tries = append(tries, stopAt.Child(leaf), stopAt.Child("Materials").Child(leaf))
	}
	tries = append(tries, prim.Path("/Materials").Child(leaf))
	for _, t := range tries {
		if m := from.Find(t); m != nil && m.TypeName == "Material" {
			log.Debug("binding target remapped", "target", string(target), "to", string(t))
			return m
		}
	}

	// Leaf-name scan over the whole tree.
	root := from
	for root.Parent != nil {
		root = root.Parent
	}
	var found *prim.Prim
	matches := 0
	root.Walk(func(q *prim.Prim) bool {
		if q.TypeName == "Material" && q.Path.Name() == leaf {
			if found == nil {
				found = q
			}
			matches++
		}
		return true
	})
	if matches > 1 {
		log.Warn("ambiguous binding remap", "target", string(target), "matches", matches)
	}
	if found != nil {
		log.Debug("binding target remapped by leaf scan", "target", string(target), "to", string(found.Path))
	}
	return found
}

// SubsetBinding is a per-face material override authored on a GeomSubset
// child of a mesh.
type SubsetBinding struct {
	Subset   *prim.Prim
	Faces    []int
	Material *prim.Prim
}

// Subsets collects the materialBind GeomSubset children of a mesh, in
// traversal order. Subsets without a resolvable binding are dropped —
// their faces keep the mesh-level material.
func Subsets(mesh *prim.Prim, stopAt prim.Path, log *slog.Logger) []SubsetBinding {
	var out []SubsetBinding
	mesh.VisitChildren(func(c *prim.Prim) {
		if c.TypeName != "GeomSubset" {
			return
		}
		if fam, ok := prim.AsString(c.Prop("familyName").Val()); ok && fam != "" && fam != "materialBind" {
			return
		}
		faces, ok := prim.AsInts(c.Prop("indices").Val())
		if !ok || len(faces) == 0 {
			return
		}
		m := ResolveBinding(c, stopAt, log)
		if m == nil {
			return
		}
		out = append(out, SubsetBinding{Subset: c, Faces: faces, Material: m})
	})
	return out
}
