package geom

import "math"

// subdivide applies one level of 4-way triangle subdivision with
// Loop-style vertex smoothing to indexed buffers. The mesh was already
// triangulated, so the catmullClark scheme is approximated with the same
// triangle split; faithful quad-based Catmull-Clark is out of reach once
// faces are triangles.
//
// The face→triangle-range map stays valid: every source triangle becomes
// four consecutive triangles, so each face's range scales by four.
func subdivide(b *Buffers) {
	if b.Indices == nil || len(b.Indices) == 0 {
		return
	}
	oldCount := uint32(b.VertexCount())
	oldIndices := b.Indices

	// Edge adjacency of the pre-split topology drives the vertex rule.
	neighbors := make([]map[uint32]bool, oldCount)
	link := func(a, c uint32) {
		if neighbors[a] == nil {
			neighbors[a] = make(map[uint32]bool)
		}
		neighbors[a][c] = true
	}
	for t := 0; t+2 < len(oldIndices); t += 3 {
		a, bb, c := oldIndices[t], oldIndices[t+1], oldIndices[t+2]
		link(a, bb)
		link(bb, a)
		link(bb, c)
		link(c, bb)
		link(c, a)
		link(a, c)
	}

	type edge [2]uint32
	mid := make(map[edge]uint32)
	midpoint := func(a, c uint32) uint32 {
		e := edge{a, c}
		if a > c {
			e = edge{c, a}
		}
		if i, ok := mid[e]; ok {
			return i
		}
		i := uint32(len(b.Positions) / 3)
		for k := uint32(0); k < 3; k++ {
			b.Positions = append(b.Positions, (b.Positions[a*3+k]+b.Positions[c*3+k])/2)
		}
		if b.Normals != nil {
			for k := uint32(0); k < 3; k++ {
				b.Normals = append(b.Normals, (b.Normals[a*3+k]+b.Normals[c*3+k])/2)
			}
		}
		if b.UVs != nil {
			for k := uint32(0); k < 2; k++ {
				b.UVs = append(b.UVs, (b.UVs[a*2+k]+b.UVs[c*2+k])/2)
			}
		}
		if b.Colors != nil {
			for k := uint32(0); k < 3; k++ {
				b.Colors = append(b.Colors, (b.Colors[a*3+k]+b.Colors[c*3+k])/2)
			}
		}
		// A midpoint has two source points; keep the first so skinning
		// still finds an influence set for the new vertex.
		b.OrigPoint = append(b.OrigPoint, b.OrigPoint[a])
		mid[e] = i
		return i
	}

	out := make([]uint32, 0, len(oldIndices)*4)
	for t := 0; t+2 < len(oldIndices); t += 3 {
		a, bb, c := oldIndices[t], oldIndices[t+1], oldIndices[t+2]
		ab := midpoint(a, bb)
		bc := midpoint(bb, c)
		ca := midpoint(c, a)
		out = append(out,
			a, ab, ca,
			ab, bb, bc,
			ca, bc, c,
			ab, bc, ca,
		)
	}
	b.Indices = out
	for i := range b.FaceRanges {
		b.FaceRanges[i].Start *= 4
		b.FaceRanges[i].Count *= 4
	}

	// Relax the original vertices toward the average of their old edge
	// neighbors (Loop vertex rule, Warren's weights).
	smoothed := make([]float32, oldCount*3)
	for v := uint32(0); v < oldCount; v++ {
		ns := neighbors[v]
		n := len(ns)
		if n < 3 {
			copy(smoothed[v*3:v*3+3], b.Positions[v*3:v*3+3])
			continue
		}
		beta := 3.0 / 16.0
		if n > 3 {
			beta = 3.0 / (8.0 * float64(n))
		}
		w := 1 - float64(n)*beta
		var sx, sy, sz float64
		for u := range ns {
			sx += float64(b.Positions[u*3])
			sy += float64(b.Positions[u*3+1])
			sz += float64(b.Positions[u*3+2])
		}
		smoothed[v*3] = float32(w*float64(b.Positions[v*3]) + beta*sx)
		smoothed[v*3+1] = float32(w*float64(b.Positions[v*3+1]) + beta*sy)
		smoothed[v*3+2] = float32(w*float64(b.Positions[v*3+2]) + beta*sz)
	}
	for i, f := range smoothed {
		if !math.IsNaN(float64(f)) {
			b.Positions[i] = f
		}
	}
}
