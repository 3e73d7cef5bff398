package shading

import (
	"log/slog"
	"strings"

	"usd-stage-realizer/internal/prim"
)

// Surface output property names, in priority order. Node-graph-authored
// outputs win over a plain preview-surface output.
var surfaceOutputs = []string{
	"outputs:mtlx:surface",
	"outputs:surface",
}

// maxGraphDepth bounds connection-following through nested node graphs.
const maxGraphDepth = 8

// SurfaceShader locates the terminal surface shader of a material by
// following its output connections. Intermediate NodeGraph targets are
// followed through their own outputs, bounded by maxGraphDepth. When no
// connection chain leads anywhere, a depth-first scan returns any
// Shader-typed descendant as a last resort.
func SurfaceShader(material *prim.Prim, log *slog.Logger) *prim.Prim {
	if material == nil {
		return nil
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if s := followSurface(material, 0); s != nil {
		return s
	}

	var found *prim.Prim
	material.Walk(func(q *prim.Prim) bool {
		if found == nil && q != material && q.TypeName == "Shader" {
			found = q
		}
		return found == nil
	})
	if found != nil {
		log.Debug("surface found by descendant scan", "material", string(material.Path))
	}
	return found
}

func followSurface(node *prim.Prim, depth int) *prim.Prim {
	if node == nil || depth > maxGraphDepth {
		return nil
	}
	for _, name := range surfaceOutputs {
		for _, target := range node.Prop(name).ConnectTargets() {
			t, _ := splitPropertyPath(target)
			dst := node.Find(t)
			if dst == nil {
				continue
			}
			switch dst.TypeName {
			case "Shader":
				return dst
			case "NodeGraph", "Material":
				if s := followSurface(dst, depth+1); s != nil {
					return s
				}
			}
		}
	}
	return nil
}

// splitPropertyPath separates "/Path/To/Prim.outputs:rgb" into the prim
// path and the property name. The property part is empty when the target
// addresses a prim directly.
func splitPropertyPath(target prim.Path) (prim.Path, string) {
	s := string(target)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return prim.Path(s[:i]), s[i+1:]
	}
	return target, ""
}

// FollowOutput chases a connection target through node-graph outputs to
// the prim that finally produces the value, returning that prim and the
// output property name on it. Used by the standard-surface family whose
// texture values hide behind chains of graph outputs.
func FollowOutput(from *prim.Prim, target prim.Path, depth int) (*prim.Prim, string) {
	if depth > maxGraphDepth {
		return nil, ""
	}
	path, propName := splitPropertyPath(target)
	dst := from.Find(path)
	if dst == nil {
		return nil, ""
	}
	// A NodeGraph forwards its output through another connection.
	if dst.TypeName == "NodeGraph" && propName != "" {
		if next := dst.Prop(propName).ConnectTargets(); len(next) > 0 {
			return FollowOutput(dst, next[0], depth+1)
		}
	}
	return dst, propName
}
