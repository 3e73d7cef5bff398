package stage

import (
	"math"
	"time"

	"github.com/g3n/engine/core"
	"github.com/g3n/engine/gls"
	"github.com/g3n/engine/math32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
)

// animKind selects what applyTime re-evaluates for a registry entry.
type animKind int

const (
	animTransform animKind = iota // transform-op stack
	animPoints                    // raw position buffer
	animSkel                      // skeleton joint animation
)

// animEntry is one animated output: the source prim plus whichever
// handle the kind needs to write through.
type animEntry struct {
	node   *core.Node
	pr     *prim.Prim
	kind   animKind
	posVBO *gls.VBO
	orig   []int
	skel   *skeletonEntry
}

// Playback is the animation state record: play/pause/stop plus a time
// cursor that wraps over [startTime, endTime] at fps timecodes per
// second of wall time. Setters apply registered animated nodes
// immediately; Tick belongs on the render loop.
type Playback struct {
	stage *Stage

	playing bool
	current float64
	start   float64
	end     float64
	fps     float64

	lastTick time.Time
}

func newPlayback(fps float64) *Playback {
	return &Playback{fps: fps}
}

func (pb *Playback) setRange(start, end, fps float64) {
	pb.start = start
	pb.end = end
	if fps > 0 {
		pb.fps = fps
	}
	pb.current = clampTime(pb.current, start, end)
}

// Playing reports whether the cursor advances on Tick.
func (pb *Playback) Playing() bool { return pb.playing }

// CurrentTime returns the time cursor in timecodes.
func (pb *Playback) CurrentTime() float64 { return pb.current }

// StartTime returns the range start in timecodes.
func (pb *Playback) StartTime() float64 { return pb.start }

// EndTime returns the range end in timecodes.
func (pb *Playback) EndTime() float64 { return pb.end }

// FPS returns the playback rate in timecodes per second.
func (pb *Playback) FPS() float64 { return pb.fps }

// Play starts advancing and resets frame timing so the first Tick after
// a long pause does not jump.
func (pb *Playback) Play() {
	pb.playing = true
	pb.lastTick = time.Time{}
}

// Pause stops advancing without moving the cursor.
func (pb *Playback) Pause() { pb.playing = false }

// Stop is Pause under its transport name; the cursor keeps its value.
func (pb *Playback) Stop() { pb.playing = false }

// SetTime moves the cursor, clamped into range, and applies it.
func (pb *Playback) SetTime(t float64) {
	pb.current = clampTime(t, pb.start, pb.end)
	if pb.stage != nil {
		pb.stage.applyTime(pb.current)
	}
}

// Tick advances the cursor by elapsed wall time while playing, wrapping
// from endTime back to startTime.
func (pb *Playback) Tick(now time.Time) {
	if !pb.playing {
		return
	}
	if pb.lastTick.IsZero() {
		pb.lastTick = now
		return
	}
	dt := now.Sub(pb.lastTick).Seconds()
	pb.lastTick = now

	pb.current += dt * pb.fps
	if span := pb.end - pb.start; pb.current > pb.end {
		if span > 0 {
			pb.current = pb.start + math.Mod(pb.current-pb.start, span)
		} else {
			pb.current = pb.start
		}
	}
	if pb.stage != nil {
		pb.stage.applyTime(pb.current)
	}
}

func clampTime(t, lo, hi float64) float64 {
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	return t
}

// applyTime re-evaluates every registered animated output at t.
func (s *Stage) applyTime(t float64) {
	for i := range s.registry {
		e := &s.registry[i]
		switch e.kind {
		case animTransform:
			m, _ := s.localMatrix(e.pr, t)
			applyTRS(e.node, m)
		case animPoints:
			s.applyPoints(e, t)
		case animSkel:
			s.applySkelAnim(e.skel, t)
		}
	}
}

// applyPoints writes the sampled position array back through the
// geometry's position buffer, scattering through the original-point map
// when the mesh was de-indexed.
func (s *Stage) applyPoints(e *animEntry, t float64) {
	pts, ok := prim.AsVec3s(sample.EvalAttr(e.pr, "points", t))
	if !ok || len(pts) == 0 || e.posVBO == nil {
		return
	}
	if e.orig == nil {
		e.posVBO.SetBuffer(math32.ArrayF32(flatten(pts)))
		return
	}
	buf := make([]float32, len(e.orig)*3)
	for v, src := range e.orig {
		if src < 0 || src >= len(pts) {
			continue
		}
		p := pts[src]
		buf[v*3] = p.X()
		buf[v*3+1] = p.Y()
		buf[v*3+2] = p.Z()
	}
	e.posVBO.SetBuffer(math32.ArrayF32(buf))
}

// applySkelAnim poses a skeleton's bones from its animation source.
// Arrays shorter than the joint list leave the remaining bones at rest.
func (s *Stage) applySkelAnim(entry *skeletonEntry, t float64) {
	if entry == nil || entry.animSrc == nil {
		return
	}
	anim := entry.animSrc
	translations, _ := prim.AsVec3s(sample.EvalAttr(anim, "translations", t))
	rotations, _ := prim.AsQuats(sample.EvalAttr(anim, "rotations", t))
	scales, _ := prim.AsVec3s(sample.EvalAttr(anim, "scales", t))

	nj := len(entry.bones)
	for a := 0; a < nj; a++ {
		j := a
		if entry.animRemap != nil {
			if a >= len(entry.animRemap) {
				break
			}
			j = entry.animRemap[a]
		}
		if j < 0 || j >= nj {
			continue
		}
		bone := entry.bones[j]
		if a < len(translations) {
			v := translations[a]
			bone.SetPosition(v.X(), v.Y(), v.Z())
		}
		if a < len(rotations) {
			q := rotations[a].Normalize()
			ex, ey, ez := quatToEulerXYZ(math32.Quaternion{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W})
			bone.SetRotation(ex, ey, ez)
		}
		if a < len(scales) {
			v := scales[a]
			bone.SetScale(v.X(), v.Y(), v.Z())
		}
	}
}
