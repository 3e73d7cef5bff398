package prim

import "github.com/go-gl/mathgl/mgl32"

// Value conversion helpers. Authored values arrive as the concrete types
// the scenejson loader (or a composing collaborator) produces; composed
// trees are allowed to mix float64 scalars from JSON with float32 data.

// AsFloat converts a scalar numeric value. ok is false for anything else.
func AsFloat(v any) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int:
		return float32(x), true
	}
	return 0, false
}

// AsBool converts a bool value, treating absence as false.
func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// AsString converts string-ish values (strings, tokens, asset paths).
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsVec2 converts a fixed 2-tuple.
func AsVec2(v any) (mgl32.Vec2, bool) {
	x, ok := v.(mgl32.Vec2)
	return x, ok
}

// AsVec3 converts a fixed 3-tuple. A Vec4 is accepted and truncated so
// color4 inputs can feed color3 slots.
func AsVec3(v any) (mgl32.Vec3, bool) {
	switch x := v.(type) {
	case mgl32.Vec3:
		return x, true
	case mgl32.Vec4:
		return x.Vec3(), true
	}
	return mgl32.Vec3{}, false
}

// AsVec4 converts a fixed 4-tuple, widening a Vec3 with w=1.
func AsVec4(v any) (mgl32.Vec4, bool) {
	switch x := v.(type) {
	case mgl32.Vec4:
		return x, true
	case mgl32.Vec3:
		return x.Vec4(1), true
	}
	return mgl32.Vec4{}, false
}

// AsQuat converts a quaternion value.
func AsQuat(v any) (mgl32.Quat, bool) {
	q, ok := v.(mgl32.Quat)
	return q, ok
}

// AsMat4 converts a 4×4 matrix value.
func AsMat4(v any) (mgl32.Mat4, bool) {
	m, ok := v.(mgl32.Mat4)
	return m, ok
}

// AsInts converts an int array.
func AsInts(v any) ([]int, bool) {
	switch x := v.(type) {
	case []int:
		return x, true
	case []int32:
		out := make([]int, len(x))
		for i, n := range x {
			out[i] = int(n)
		}
		return out, true
	}
	return nil, false
}

// AsFloats converts a float array.
func AsFloats(v any) ([]float32, bool) {
	switch x := v.(type) {
	case []float32:
		return x, true
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

// AsVec3s converts a point/vector/color array.
func AsVec3s(v any) ([]mgl32.Vec3, bool) {
	x, ok := v.([]mgl32.Vec3)
	return x, ok
}

// AsVec2s converts a texcoord array.
func AsVec2s(v any) ([]mgl32.Vec2, bool) {
	x, ok := v.([]mgl32.Vec2)
	return x, ok
}

// AsQuats converts a quaternion array (instancer orientations,
// skeleton rotations).
func AsQuats(v any) ([]mgl32.Quat, bool) {
	x, ok := v.([]mgl32.Quat)
	return x, ok
}

// AsMat4s converts a matrix array (bind/rest transforms).
func AsMat4s(v any) ([]mgl32.Mat4, bool) {
	x, ok := v.([]mgl32.Mat4)
	return x, ok
}

// AsStrings converts a token/string array (joint lists, purposes).
func AsStrings(v any) ([]string, bool) {
	x, ok := v.([]string)
	return x, ok
}
