package stage

import (
	"math"
	"strings"

	"github.com/g3n/engine/core"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
)

// Fallback op application order when no xformOpOrder is authored:
// translate, then axis rotations in listed order, then scale.
var fallbackOps = []string{
	"xformOp:translate",
	"xformOp:orient",
	"xformOp:rotateXYZ",
	"xformOp:rotateX",
	"xformOp:rotateY",
	"xformOp:rotateZ",
	"xformOp:scale",
	"xformOp:transform",
}

// emitTransform evaluates the prim's transform-operation stack at time t
// and produces its output container node. Returns the node, the local
// matrix, and whether any transform input is time-sampled.
func (s *Stage) emitTransform(p *prim.Prim, t float64) (*core.Node, mgl32.Mat4, bool) {
	node := core.NewNode()
	node.SetName(p.Path.Name())

	local, timed := s.localMatrix(p, t)
	applyTRS(node, local)
	return node, local, timed
}

// localMatrix composes the prim's transform ops in authored order.
func (s *Stage) localMatrix(p *prim.Prim, t float64) (mgl32.Mat4, bool) {
	order, _ := prim.AsStrings(sample.EvalAttr(p, "xformOpOrder", t))
	if len(order) == 0 {
		order = nil
		for _, name := range fallbackOps {
			if p.Prop(name) != nil {
				order = append(order, name)
			}
		}
	}

	// Inverted pivot ops come in matched pairs; unsupported, and skipping
	// both halves keeps the result consistent.
	var inverted map[string]bool
	for _, opName := range order {
		if base, ok := strings.CutPrefix(opName, "!invert!"); ok {
			if inverted == nil {
				inverted = make(map[string]bool)
			}
			inverted[base] = true
		}
	}

	m := mgl32.Ident4()
	timed := false
	for _, opName := range order {
		if strings.HasPrefix(opName, "!invert!") || inverted[opName] {
			continue
		}
		pr := p.Prop(opName)
		if pr == nil {
			continue
		}
		timed = timed || pr.Timed()
		m = m.Mul4(opMatrix(opName, sample.Eval(pr, t)))
	}
	return m, timed
}

// opMatrix converts one evaluated transform op into a matrix. Op names
// may carry suffixes ("xformOp:rotateX:spin"); dispatch uses the second
// segment only. Angles are authored in degrees.
func opMatrix(opName string, v any) mgl32.Mat4 {
	kind := opName
	if parts := strings.SplitN(opName, ":", 3); len(parts) >= 2 {
		kind = parts[1]
	}
	switch kind {
	case "translate":
		if t, ok := prim.AsVec3(v); ok {
			return mgl32.Translate3D(t.X(), t.Y(), t.Z())
		}
	case "scale":
		if sc, ok := prim.AsVec3(v); ok {
			return mgl32.Scale3D(sc.X(), sc.Y(), sc.Z())
		}
		if f, ok := prim.AsFloat(v); ok {
			return mgl32.Scale3D(f, f, f)
		}
	case "rotateX":
		if a, ok := prim.AsFloat(v); ok {
			return mgl32.HomogRotate3DX(mgl32.DegToRad(a))
		}
	case "rotateY":
		if a, ok := prim.AsFloat(v); ok {
			return mgl32.HomogRotate3DY(mgl32.DegToRad(a))
		}
	case "rotateZ":
		if a, ok := prim.AsFloat(v); ok {
			return mgl32.HomogRotate3DZ(mgl32.DegToRad(a))
		}
	case "rotateXYZ":
		if r, ok := prim.AsVec3(v); ok {
			return mgl32.HomogRotate3DX(mgl32.DegToRad(r.X())).
				Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(r.Y()))).
				Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(r.Z())))
		}
	case "orient":
		if q, ok := prim.AsQuat(v); ok {
			return q.Mat4()
		}
	case "transform":
		if m, ok := prim.AsMat4(v); ok {
			return m
		}
	}
	return mgl32.Ident4()
}

// applyTRS decomposes a local matrix into position, rotation and scale
// on the output node. Matrix ops therefore behave identically to
// separate TRS ops downstream.
func applyTRS(node *core.Node, m mgl32.Mat4) {
	var pos math32.Vector3
	var quat math32.Quaternion
	var scale math32.Vector3
	mm := toMath32(m)
	mm.Decompose(&pos, &quat, &scale)

	node.SetPosition(pos.X, pos.Y, pos.Z)
	node.SetScale(scale.X, scale.Y, scale.Z)
	ex, ey, ez := quatToEulerXYZ(quat)
	node.SetRotation(ex, ey, ez)
}

// toMath32 converts a column-major mgl32 matrix into the engine's type.
func toMath32(m mgl32.Mat4) *math32.Matrix4 {
	var out math32.Matrix4
	out.FromArray(m[:], 0)
	return &out
}

// quatToEulerXYZ extracts XYZ-order Euler angles (radians), matching the
// engine node's rotation convention.
func quatToEulerXYZ(q math32.Quaternion) (x, y, z float32) {
	// Rotation matrix terms for R = Rx·Ry·Rz applied as XYZ intrinsic.
	xx, yy, zz, ww := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)
	m13 := 2 * (xx*zz + ww*yy)
	if m13 > 1 {
		m13 = 1
	} else if m13 < -1 {
		m13 = -1
	}
	y = float32(math.Asin(m13))
	if math.Abs(m13) < 0.9999999 {
		m23 := 2 * (yy*zz - ww*xx)
		m33 := 1 - 2*(xx*xx+yy*yy)
		x = float32(math.Atan2(-m23, m33))
		m12 := 2 * (xx*yy - ww*zz)
		m11 := 1 - 2*(yy*yy+zz*zz)
		z = float32(math.Atan2(-m12, m11))
	} else {
		m21 := 2 * (xx*yy + ww*zz)
		m22 := 1 - 2*(xx*xx+zz*zz)
		x = float32(math.Atan2(m21, m22))
		z = 0
	}
	return
}
