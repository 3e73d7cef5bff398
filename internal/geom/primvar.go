// Package geom turns polygonal mesh data into render-ready buffers:
// triangulation, primvar-domain resolution, optional de-indexing,
// subdivision and winding correction.
package geom

// Domain describes how many values a primvar carries relative to the
// mesh topology.
type Domain string

const (
	DomainConstant    Domain = "constant"    // one value for the whole mesh
	DomainUniform     Domain = "uniform"     // one value per face
	DomainVertex      Domain = "vertex"      // one value per point
	DomainFaceVarying Domain = "faceVarying" // one value per face corner
)

// Primvar is a named per-geometry attribute with flattened float values.
// Width is the number of floats per element (2 for texcoords, 3 for
// colors and normals). Indices, when present, index into the elements.
type Primvar struct {
	Name    string
	Values  []float32
	Width   int
	Indices []int
	Domain  Domain // empty means unauthored
}

// ElemCount returns the number of logical elements the primvar yields.
func (pv *Primvar) ElemCount() int {
	if pv == nil || pv.Width <= 0 {
		return 0
	}
	if len(pv.Indices) > 0 {
		return len(pv.Indices)
	}
	return len(pv.Values) / pv.Width
}

// elem returns element i as a short float slice, resolving the index
// table. Out-of-range access returns the zero element.
func (pv *Primvar) elem(i int) []float32 {
	if len(pv.Indices) > 0 {
		if i < 0 || i >= len(pv.Indices) {
			return make([]float32, pv.Width)
		}
		i = pv.Indices[i]
	}
	lo := i * pv.Width
	if i < 0 || lo+pv.Width > len(pv.Values) {
		return make([]float32, pv.Width)
	}
	return pv.Values[lo : lo+pv.Width]
}

// Classify resolves the primvar's interpolation domain. An authored
// domain wins; otherwise the element count is matched against the point
// count, the face-corner count and the face count, in that order, with
// constant as the last resort.
func (pv *Primvar) Classify(points, corners, faces int) Domain {
	if pv.Domain != "" {
		return pv.Domain
	}
	switch pv.ElemCount() {
	case points:
		return DomainVertex
	case corners:
		return DomainFaceVarying
	case faces:
		return DomainUniform
	}
	return DomainConstant
}
