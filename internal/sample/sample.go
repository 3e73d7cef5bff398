// Package sample reads property values at a point in time, resolving
// keyframe tables with interpolation.
package sample

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

// Default reads a property's untimed value, or nil.
func Default(p *prim.Property) any {
	if p == nil {
		return nil
	}
	return p.Value
}

// Eval returns the property's value at time t.
//
// Untimed properties return the default value. A time at or beyond the
// sample range clamps to the first/last sample. Between two keys, numeric
// scalars and fixed-size tuples interpolate linearly by fractional time
// offset; every other value shape holds the earlier key.
//
// The keyframe table is an unordered map sorted on each call. Fine for
// the small tracks this renderer sees; cache sorted keys before pointing
// this at long mocap clips.
func Eval(p *prim.Property, t float64) any {
	if p == nil {
		return nil
	}
	if len(p.Samples) == 0 {
		return p.Value
	}
	times := p.SampleTimes()
	if t <= times[0] {
		return p.Samples[times[0]]
	}
	last := times[len(times)-1]
	if t >= last {
		return p.Samples[last]
	}
	// Bracketing keys.
	hi := 1
	for times[hi] < t {
		hi++
	}
	t0, t1 := times[hi-1], times[hi]
	if t == t1 {
		return p.Samples[t1]
	}
	a, b := p.Samples[t0], p.Samples[t1]
	f := float32((t - t0) / (t1 - t0))
	if v, ok := lerp(a, b, f); ok {
		return v
	}
	// Step-hold for everything not linearly interpolable.
	return a
}

// EvalAttr evaluates the named property of a prim at time t.
func EvalAttr(p *prim.Prim, name string, t float64) any {
	if p == nil {
		return nil
	}
	return Eval(p.Prop(name), t)
}

// lerp interpolates two values of matching numeric shape.
func lerp(a, b any, f float32) (any, bool) {
	switch x := a.(type) {
	case float32:
		if y, ok := b.(float32); ok {
			return x + (y-x)*f, true
		}
	case float64:
		if y, ok := b.(float64); ok {
			return x + (y-x)*float64(f), true
		}
	case int:
		if y, ok := b.(int); ok {
			return int(math.Round(float64(x) + float64(y-x)*float64(f))), true
		}
	case mgl32.Vec2:
		if y, ok := b.(mgl32.Vec2); ok {
			return x.Add(y.Sub(x).Mul(f)), true
		}
	case mgl32.Vec3:
		if y, ok := b.(mgl32.Vec3); ok {
			return x.Add(y.Sub(x).Mul(f)), true
		}
	case mgl32.Vec4:
		if y, ok := b.(mgl32.Vec4); ok {
			return x.Add(y.Sub(x).Mul(f)), true
		}
	case mgl32.Quat:
		if y, ok := b.(mgl32.Quat); ok {
			// Tuple-wise lerp with renormalization keeps rotations
			// continuous without a full slerp.
			return mgl32.QuatNlerp(x, y, f), true
		}
	}
	return nil, false
}

// TimeRange reports the min and max sample key over every timed property
// of the subtree rooted at p. ok is false when nothing is timed.
func TimeRange(p *prim.Prim) (lo, hi float64, ok bool) {
	p.Walk(func(q *prim.Prim) bool {
		for _, pr := range q.Props {
			for t := range pr.Samples {
				if !ok {
					lo, hi, ok = t, t, true
					continue
				}
				lo = math.Min(lo, t)
				hi = math.Max(hi, t)
			}
		}
		return true
	})
	return lo, hi, ok
}
