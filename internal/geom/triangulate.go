package geom

import "github.com/go-gl/mathgl/mgl32"

// NewellNormal computes a stable face normal from the summed cross
// products of consecutive edges. Works for non-planar and concave faces
// where a single edge cross product would not.
func NewellNormal(pts []mgl32.Vec3) mgl32.Vec3 {
	var n mgl32.Vec3
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		n[0] += (a.Y() - b.Y()) * (a.Z() + b.Z())
		n[1] += (a.Z() - b.Z()) * (a.X() + b.X())
		n[2] += (a.X() - b.X()) * (a.Y() + b.Y())
	}
	return n
}

// project2D drops the dominant component of the face normal and returns
// the polygon projected onto the remaining two axes.
func project2D(pts []mgl32.Vec3, normal mgl32.Vec3) []mgl32.Vec2 {
	ax, ay := 0, 1
	nx, ny, nz := abs(normal.X()), abs(normal.Y()), abs(normal.Z())
	switch {
	case nx >= ny && nx >= nz:
		ax, ay = 1, 2
	case ny >= nx && ny >= nz:
		ax, ay = 0, 2
	}
	out := make([]mgl32.Vec2, len(pts))
	for i, p := range pts {
		out[i] = mgl32.Vec2{p[ax], p[ay]}
	}
	return out
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func signedArea(poly []mgl32.Vec2) float32 {
	var a float32
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X()*poly[j].Y() - poly[j].X()*poly[i].Y()
	}
	return a / 2
}

func cross2(o, a, b mgl32.Vec2) float32 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

func pointInTri(p, a, b, c mgl32.Vec2) bool {
	d1 := cross2(p, a, b)
	d2 := cross2(p, b, c)
	d3 := cross2(p, c, a)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

// earClip triangulates a simple polygon given as 2D points, returning
// triples of indices into the input. Returns nil when the polygon is
// degenerate enough that no ear can be found.
func earClip(poly []mgl32.Vec2) [][3]int {
	n := len(poly)
	if n < 3 {
		return nil
	}
	// Work on a positively oriented copy of the index ring.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if signedArea(poly) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}

	var tris [][3]int
	guard := 0
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			ia := idx[(i+len(idx)-1)%len(idx)]
			ib := idx[i]
			ic := idx[(i+1)%len(idx)]
			a, b, c := poly[ia], poly[ib], poly[ic]
			if cross2(a, b, c) <= 0 {
				continue // reflex corner
			}
			ear := true
			for _, k := range idx {
				if k == ia || k == ib || k == ic {
					continue
				}
				if pointInTri(poly[k], a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, [3]int{ia, ib, ic})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// No ear exists; give up and let the caller fall back.
			return nil
		}
		if guard++; guard > n*n {
			return nil
		}
	}
	tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	return tris
}

// triangulateFace triangulates one face given its corner positions,
// returning triples of corner offsets whose winding always matches the
// face's 3-D Newell normal, regardless of the 2-D triangulator's
// conventions.
//
// A fan triangulation is used only when ear clipping yields nothing;
// an approximation for concave or self-intersecting degenerate faces.
func triangulateFace(corners []mgl32.Vec3) [][3]int {
	n := len(corners)
	switch {
	case n < 3:
		return nil
	case n == 3:
		return [][3]int{{0, 1, 2}}
	}

	normal := NewellNormal(corners)
	tris := earClip(project2D(corners, normal))
	if tris == nil {
		tris = make([][3]int, 0, n-2)
		for i := 2; i < n; i++ {
			tris = append(tris, [3]int{0, i - 1, i})
		}
	}
	for t := range tris {
		a := corners[tris[t][0]]
		b := corners[tris[t][1]]
		c := corners[tris[t][2]]
		tn := b.Sub(a).Cross(c.Sub(a))
		if tn.Dot(normal) < 0 {
			tris[t][1], tris[t][2] = tris[t][2], tris[t][1]
		}
	}
	return tris
}
