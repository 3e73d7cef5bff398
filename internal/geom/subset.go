package geom

// SelectFaces extracts the triangles belonging to the given source faces
// into new buffers, using the face→triangle-range map. Used for
// per-face material assignment: each material subset becomes its own
// draw range. Faces out of range are ignored.
//
// Indexed buffers share the vertex arrays and carry a reduced index
// stream; de-indexed buffers copy the vertex records of the selected
// triangle runs.
func (b *Buffers) SelectFaces(faces []int) *Buffers {
	out := &Buffers{
		AuthoredNormals: b.AuthoredNormals,
		FaceRanges:      make([]FaceRange, 0, len(faces)),
	}
	if b.Indices != nil {
		out.Indices = make([]uint32, 0, len(b.Indices))
		out.Positions = b.Positions
		out.Normals = b.Normals
		out.UVs = b.UVs
		out.Colors = b.Colors
		out.OrigPoint = b.OrigPoint
		for _, f := range faces {
			if f < 0 || f >= len(b.FaceRanges) {
				continue
			}
			r := b.FaceRanges[f]
			start := len(out.Indices) / 3
			out.Indices = append(out.Indices, b.Indices[r.Start*3:(r.Start+r.Count)*3]...)
			out.FaceRanges = append(out.FaceRanges, FaceRange{Start: start, Count: r.Count})
		}
		return out
	}

	for _, f := range faces {
		if f < 0 || f >= len(b.FaceRanges) {
			continue
		}
		r := b.FaceRanges[f]
		start := len(out.Positions) / 9
		lo, hi := r.Start*3, (r.Start+r.Count)*3
		out.Positions = append(out.Positions, b.Positions[lo*3:hi*3]...)
		if b.Normals != nil {
			out.Normals = append(out.Normals, b.Normals[lo*3:hi*3]...)
		}
		if b.UVs != nil {
			out.UVs = append(out.UVs, b.UVs[lo*2:hi*2]...)
		}
		if b.Colors != nil {
			out.Colors = append(out.Colors, b.Colors[lo*3:hi*3]...)
		}
		if b.OrigPoint != nil {
			out.OrigPoint = append(out.OrigPoint, b.OrigPoint[lo:hi]...)
		}
		out.FaceRanges = append(out.FaceRanges, FaceRange{Start: start, Count: r.Count})
	}
	return out
}

// RemainingFaces returns the face indices not claimed by any subset.
func (b *Buffers) RemainingFaces(claimed ...[]int) []int {
	taken := make([]bool, len(b.FaceRanges))
	for _, set := range claimed {
		for _, f := range set {
			if f >= 0 && f < len(taken) {
				taken[f] = true
			}
		}
	}
	var rest []int
	for f, t := range taken {
		if !t {
			rest = append(rest, f)
		}
	}
	return rest
}
