package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Safety caps. Exceeding either skips the mesh rather than letting a
// corrupt asset allocate without bound.
const (
	maxPoints    = 4 << 20
	maxTriangles = 8 << 20
)

// MeshData is the authored polygonal mesh handed to Build.
type MeshData struct {
	Points            []mgl32.Vec3
	FaceVertexCounts  []int
	FaceVertexIndices []int

	// LeftHanded marks authored left-handed orientation; the output
	// winding is flipped to compensate.
	LeftHanded bool

	// SubdivisionScheme is the authored scheme. Only "catmullClark" and
	// "loop" subdivide; "", "none" and "bilinear" leave the mesh polygonal.
	SubdivisionScheme string

	Normals *Primvar // authored normals, nil for computed shading normals
	UV      *Primvar
	Color   *Primvar
}

// FaceRange records where a source face landed in the triangle stream.
type FaceRange struct {
	Start, Count int // triangles
}

// Buffers is the render-ready result: flat attribute arrays, an optional
// index array (nil means one unshared vertex per triangle corner), and
// the face→triangle-range map used for per-face material assignment.
type Buffers struct {
	Positions []float32 // xyz per vertex
	Normals   []float32 // xyz per vertex
	UVs       []float32 // uv per vertex, optional
	Colors    []float32 // rgb per vertex, optional
	Indices   []uint32  // nil when de-indexed

	FaceRanges []FaceRange

	// OrigPoint maps every emitted vertex back to its source point index.
	// Survives de-indexing; the skinning binder reads influence data
	// through it.
	OrigPoint []int

	// AuthoredNormals is true when normals came from the asset rather
	// than being recomputed here.
	AuthoredNormals bool
}

// Deindexed reports whether the buffers carry unshared vertices.
func (b *Buffers) Deindexed() bool { return b.Indices == nil }

// VertexCount returns the number of emitted vertices.
func (b *Buffers) VertexCount() int { return len(b.Positions) / 3 }

// TriangleCount returns the number of triangles in the final stream.
func (b *Buffers) TriangleCount() int {
	if b.Indices != nil {
		return len(b.Indices) / 3
	}
	return b.VertexCount() / 3
}

func subdivides(scheme string) bool {
	return scheme == "catmullClark" || scheme == "loop"
}

// Build realizes mesh data into render buffers.
//
// De-indexing is forced when any attached primvar resolves to the
// faceVarying or uniform domain, or when normals must be flat (nothing
// authored and subdivision disabled); shared-vertex buffers cannot carry
// per-corner or per-face values. Subdivision only applies to the indexed
// path — if de-indexing was forced for other reasons it is silently
// skipped.
func Build(data *MeshData) (*Buffers, error) {
	nPoints := len(data.Points)
	nCorners := len(data.FaceVertexIndices)
	nFaces := len(data.FaceVertexCounts)

	switch {
	case nPoints == 0:
		return nil, fmt.Errorf("geom: mesh has no points")
	case nPoints > maxPoints:
		return nil, fmt.Errorf("geom: point count %d exceeds cap", nPoints)
	case nFaces == 0 || nCorners == 0:
		return nil, fmt.Errorf("geom: mesh has no faces")
	}
	sum := 0
	for _, c := range data.FaceVertexCounts {
		sum += c
	}
	if sum != nCorners {
		return nil, fmt.Errorf("geom: face vertex counts sum %d != index count %d", sum, nCorners)
	}
	for _, i := range data.FaceVertexIndices {
		if i < 0 || i >= nPoints {
			return nil, fmt.Errorf("geom: face vertex index %d out of range", i)
		}
	}

	// Triangulate. Triangles are triples of global corner offsets so both
	// point-indexed and corner-indexed data remain reachable.
	var (
		tris    [][3]int
		ranges  = make([]FaceRange, 0, nFaces)
		corner  = 0
		scratch []mgl32.Vec3
	)
	for _, cnt := range data.FaceVertexCounts {
		if cnt < 3 {
			ranges = append(ranges, FaceRange{Start: len(tris)})
			corner += cnt
			continue
		}
		scratch = scratch[:0]
		for k := 0; k < cnt; k++ {
			scratch = append(scratch, data.Points[data.FaceVertexIndices[corner+k]])
		}
		ft := triangulateFace(scratch)
		start := len(tris)
		for _, t := range ft {
			tris = append(tris, [3]int{corner + t[0], corner + t[1], corner + t[2]})
		}
		ranges = append(ranges, FaceRange{Start: start, Count: len(tris) - start})
		corner += cnt
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("geom: no triangles produced")
	}
	if len(tris) > maxTriangles {
		return nil, fmt.Errorf("geom: triangle count %d exceeds cap", len(tris))
	}

	subdiv := subdivides(data.SubdivisionScheme)

	deindex := data.Normals == nil && !subdiv
	var domUV, domColor, domNormals Domain
	if data.UV != nil {
		domUV = data.UV.Classify(nPoints, nCorners, nFaces)
		deindex = deindex || domUV == DomainFaceVarying || domUV == DomainUniform
	}
	if data.Color != nil {
		domColor = data.Color.Classify(nPoints, nCorners, nFaces)
		deindex = deindex || domColor == DomainFaceVarying || domColor == DomainUniform
	}
	if data.Normals != nil {
		domNormals = data.Normals.Classify(nPoints, nCorners, nFaces)
		deindex = deindex || domNormals == DomainFaceVarying || domNormals == DomainUniform
	}

	var b *Buffers
	if deindex {
		b = buildDeindexed(data, tris, ranges, domUV, domColor, domNormals)
	} else {
		b = buildIndexed(data, tris, ranges, domUV, domColor, domNormals)
		if subdiv {
			subdivide(b)
			if !b.AuthoredNormals {
				b.Normals = smoothNormals(b.Positions, b.Indices)
			}
		}
	}

	if data.LeftHanded {
		b.FlipWinding()
	}
	return b, nil
}

// cornerValue fetches a primvar element for a triangle corner given the
// resolved domain. face is the source face index, corner the global
// face-corner offset, point the source point index.
func cornerValue(pv *Primvar, dom Domain, face, corner, point int) []float32 {
	switch dom {
	case DomainFaceVarying:
		return pv.elem(corner)
	case DomainUniform:
		return pv.elem(face)
	case DomainVertex:
		return pv.elem(point)
	default:
		return pv.elem(0)
	}
}

func buildDeindexed(data *MeshData, tris [][3]int, ranges []FaceRange, domUV, domColor, domNormals Domain) *Buffers {
	b := &Buffers{
		FaceRanges:      ranges,
		AuthoredNormals: data.Normals != nil,
		Positions:       make([]float32, 0, len(tris)*9),
		OrigPoint:       make([]int, 0, len(tris)*3),
	}
	if data.UV != nil {
		b.UVs = make([]float32, 0, len(tris)*6)
	}
	if data.Color != nil {
		b.Colors = make([]float32, 0, len(tris)*9)
	}
	if data.Normals != nil {
		b.Normals = make([]float32, 0, len(tris)*9)
	}

	face := 0
	for ti, t := range tris {
		for face+1 < len(ranges) && ti >= ranges[face].Start+ranges[face].Count {
			face++
		}
		for _, c := range t {
			pi := data.FaceVertexIndices[c]
			p := data.Points[pi]
			b.Positions = append(b.Positions, p.X(), p.Y(), p.Z())
			b.OrigPoint = append(b.OrigPoint, pi)
			if data.UV != nil {
				b.UVs = append(b.UVs, clampN(cornerValue(data.UV, domUV, face, c, pi), 2)...)
			}
			if data.Color != nil {
				b.Colors = append(b.Colors, clampN(cornerValue(data.Color, domColor, face, c, pi), 3)...)
			}
			if data.Normals != nil {
				b.Normals = append(b.Normals, clampN(cornerValue(data.Normals, domNormals, face, c, pi), 3)...)
			}
		}
	}
	if data.Normals == nil {
		b.Normals = flatNormals(b.Positions)
	}
	return b
}

func buildIndexed(data *MeshData, tris [][3]int, ranges []FaceRange, domUV, domColor, domNormals Domain) *Buffers {
	nPoints := len(data.Points)
	b := &Buffers{
		FaceRanges:      ranges,
		AuthoredNormals: data.Normals != nil,
		Positions:       make([]float32, 0, nPoints*3),
		OrigPoint:       make([]int, nPoints),
		Indices:         make([]uint32, 0, len(tris)*3),
	}
	for i, p := range data.Points {
		b.Positions = append(b.Positions, p.X(), p.Y(), p.Z())
		b.OrigPoint[i] = i
	}
	for _, t := range tris {
		for _, c := range t {
			b.Indices = append(b.Indices, uint32(data.FaceVertexIndices[c]))
		}
	}
	// Shared vertices only carry constant or vertex domains here; the
	// faceVarying/uniform cases forced de-indexing above.
	if data.UV != nil {
		b.UVs = expandPerPoint(data.UV, domUV, nPoints, 2)
	}
	if data.Color != nil {
		b.Colors = expandPerPoint(data.Color, domColor, nPoints, 3)
	}
	if data.Normals != nil {
		b.Normals = expandPerPoint(data.Normals, domNormals, nPoints, 3)
	} else {
		b.Normals = smoothNormals(b.Positions, b.Indices)
	}
	return b
}

func expandPerPoint(pv *Primvar, dom Domain, nPoints, width int) []float32 {
	out := make([]float32, 0, nPoints*width)
	for i := 0; i < nPoints; i++ {
		e := pv.elem(0)
		if dom == DomainVertex {
			e = pv.elem(i)
		}
		out = append(out, clampN(e, width)...)
	}
	return out
}

// clampN pads or truncates an element to exactly n floats.
func clampN(e []float32, n int) []float32 {
	if len(e) == n {
		return e
	}
	out := make([]float32, n)
	copy(out, e)
	return out
}

// FlipWinding reverses the triangle winding in place: index pair swap
// for indexed buffers, vertex record swap for de-indexed ones. Computed
// normals are negated to follow; authored normals are left alone.
// Applying the flip twice restores the original buffers.
func (b *Buffers) FlipWinding() {
	if b.Indices != nil {
		for t := 0; t+2 < len(b.Indices); t += 3 {
			b.Indices[t+1], b.Indices[t+2] = b.Indices[t+2], b.Indices[t+1]
		}
	} else {
		n := b.VertexCount()
		for t := 0; t+2 < n; t += 3 {
			swapVec(b.Positions, t+1, t+2, 3)
			swapVec(b.Normals, t+1, t+2, 3)
			swapVec(b.UVs, t+1, t+2, 2)
			swapVec(b.Colors, t+1, t+2, 3)
			if b.OrigPoint != nil {
				b.OrigPoint[t+1], b.OrigPoint[t+2] = b.OrigPoint[t+2], b.OrigPoint[t+1]
			}
		}
	}
	if !b.AuthoredNormals {
		for i := range b.Normals {
			b.Normals[i] = -b.Normals[i]
		}
	}
}

func swapVec(buf []float32, i, j, width int) {
	if buf == nil {
		return
	}
	for k := 0; k < width; k++ {
		buf[i*width+k], buf[j*width+k] = buf[j*width+k], buf[i*width+k]
	}
}

// flatNormals assigns each de-indexed triangle its geometric normal.
func flatNormals(positions []float32) []float32 {
	out := make([]float32, len(positions))
	for t := 0; t+8 < len(positions); t += 9 {
		a := mgl32.Vec3{positions[t], positions[t+1], positions[t+2]}
		bb := mgl32.Vec3{positions[t+3], positions[t+4], positions[t+5]}
		c := mgl32.Vec3{positions[t+6], positions[t+7], positions[t+8]}
		n := bb.Sub(a).Cross(c.Sub(a))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		for v := 0; v < 3; v++ {
			out[t+v*3] = n.X()
			out[t+v*3+1] = n.Y()
			out[t+v*3+2] = n.Z()
		}
	}
	return out
}

// smoothNormals accumulates area-weighted triangle normals per shared
// vertex and normalizes.
func smoothNormals(positions []float32, indices []uint32) []float32 {
	out := make([]float32, len(positions))
	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		n := at(i1).Sub(at(i0)).Cross(at(i2).Sub(at(i0)))
		for _, i := range []uint32{i0, i1, i2} {
			out[i*3] += n.X()
			out[i*3+1] += n.Y()
			out[i*3+2] += n.Z()
		}
	}
	for i := 0; i+2 < len(out); i += 3 {
		n := mgl32.Vec3{out[i], out[i+1], out[i+2]}
		if n.Len() > 0 {
			n = n.Normalize()
			out[i], out[i+1], out[i+2] = n.X(), n.Y(), n.Z()
		}
	}
	return out
}
