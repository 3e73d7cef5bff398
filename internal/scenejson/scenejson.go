// Package scenejson loads composed prim trees from a JSON fixture
// format. The real composed tree arrives from an external composition
// subsystem; this loader exists for the command-line tools and tests,
// which need scenes without that subsystem present.
//
// The format is a nested prim document:
//
//	{
//	  "meta": {"startTimeCode": 1, "endTimeCode": 24},
//	  "root": {
//	    "children": {
//	      "World": {
//	        "type": "Xform",
//	        "props": {
//	          "xformOp:translate": {"type": "float3", "value": [0, 1, 0]}
//	        },
//	        "rels": {"material:binding": ["/Materials/Red"]},
//	        "children": {}
//	      }
//	    }
//	  }
//	}
//
// Every property value carries an explicit type tag. Matrices are 16
// numbers in the source order; quaternions are [w, x, y, z].
package scenejson

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

type fileDoc struct {
	Meta map[string]any `json:"meta,omitempty"`
	Root *primDoc       `json:"root"`
}

type primDoc struct {
	Type     string              `json:"type,omitempty"`
	Props    map[string]*propDoc `json:"props,omitempty"`
	Rels     map[string][]string `json:"rels,omitempty"`
	Children map[string]*primDoc `json:"children,omitempty"`
	Order    []string            `json:"order,omitempty"`
	Meta     map[string]any      `json:"meta,omitempty"`
}

type propDoc struct {
	Type        string                     `json:"type"`
	Value       json.RawMessage            `json:"value,omitempty"`
	Samples     map[string]json.RawMessage `json:"samples,omitempty"`
	Interp      string                     `json:"interp,omitempty"`
	Indices     []int                      `json:"indices,omitempty"`
	ElementSize int                        `json:"elementSize,omitempty"`
	Connect     []string                   `json:"connect,omitempty"`
	ColorSpace  string                     `json:"colorSpace,omitempty"`
}

// Load reads a scene fixture from disk.
func Load(path string) (*prim.Prim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenejson: read %s: %w", path, err)
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenejson: parse %s: %w", path, err)
	}
	return root, nil
}

// Parse decodes a scene fixture document into a prim tree.
func Parse(data []byte) (*prim.Prim, error) {
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenejson: decode: %w", err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("scenejson: document has no root")
	}
	root := prim.New(prim.Root, doc.Root.Type)
	for k, v := range doc.Meta {
		root.Meta[k] = v
	}
	if err := fillPrim(root, doc.Root); err != nil {
		return nil, err
	}
	return root, nil
}

func fillPrim(p *prim.Prim, doc *primDoc) error {
	for name, pd := range doc.Props {
		prop, err := decodeProp(pd)
		if err != nil {
			return fmt.Errorf("scenejson: prim %s property %s: %w", p.Path, name, err)
		}
		p.Props[name] = prop
	}
	for name, targets := range doc.Rels {
		paths := make([]prim.Path, len(targets))
		for i, t := range targets {
			paths[i] = prim.Path(t)
		}
		p.Rels[name] = paths
	}
	for k, v := range doc.Meta {
		p.Meta[k] = v
	}
	for _, name := range childOrder(doc) {
		cd := doc.Children[name]
		c := p.NewChild(name, cd.Type)
		if err := fillPrim(c, cd); err != nil {
			return err
		}
	}
	return nil
}

// childOrder honors an authored order list, appending unlisted children
// sorted by name so traversal stays deterministic.
func childOrder(doc *primDoc) []string {
	seen := make(map[string]bool, len(doc.Order))
	var names []string
	for _, n := range doc.Order {
		if _, ok := doc.Children[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range doc.Children {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func decodeProp(pd *propDoc) (*prim.Property, error) {
	prop := &prim.Property{
		Interp:      pd.Interp,
		Indices:     pd.Indices,
		ElementSize: pd.ElementSize,
		ColorSpace:  pd.ColorSpace,
	}
	for _, c := range pd.Connect {
		prop.Connect = append(prop.Connect, prim.Path(c))
	}
	if len(pd.Value) > 0 {
		v, err := decodeValue(pd.Type, pd.Value)
		if err != nil {
			return nil, err
		}
		prop.Value = v
	}
	if len(pd.Samples) > 0 {
		prop.Samples = make(map[float64]any, len(pd.Samples))
		for key, raw := range pd.Samples {
			t, err := strconv.ParseFloat(key, 64)
			if err != nil {
				return nil, fmt.Errorf("sample key %q: %w", key, err)
			}
			v, err := decodeValue(pd.Type, raw)
			if err != nil {
				return nil, fmt.Errorf("sample %q: %w", key, err)
			}
			prop.Samples[t] = v
		}
	}
	return prop, nil
}

func decodeValue(typ string, raw json.RawMessage) (any, error) {
	switch typ {
	case "bool":
		var v bool
		return v, unmarshal(raw, &v)
	case "int":
		var v int
		return v, unmarshal(raw, &v)
	case "float":
		var v float32
		return v, unmarshal(raw, &v)
	case "double":
		var v float64
		return v, unmarshal(raw, &v)
	case "token", "string", "asset":
		var v string
		return v, unmarshal(raw, &v)
	case "float2", "texCoord2f", "double2":
		return decodeVec2(raw)
	case "float3", "double3", "color3f", "point3f", "normal3f", "vector3f", "half3":
		return decodeVec3(raw)
	case "float4", "double4", "color4f":
		return decodeVec4(raw)
	case "quatf", "quatd", "quath":
		return decodeQuat(raw)
	case "matrix4d", "matrix4f":
		return decodeMat4(raw)
	case "int[]":
		var v []int
		return v, unmarshal(raw, &v)
	case "float[]", "double[]", "half[]":
		var v []float32
		return v, unmarshal(raw, &v)
	case "token[]", "string[]", "asset[]":
		var v []string
		return v, unmarshal(raw, &v)
	case "float2[]", "texCoord2f[]", "double2[]":
		return decodeSlice(raw, decodeVec2)
	case "float3[]", "double3[]", "color3f[]", "point3f[]", "normal3f[]", "vector3f[]", "half3[]":
		return decodeSlice(raw, decodeVec3)
	case "float4[]", "double4[]", "color4f[]":
		return decodeSlice(raw, decodeVec4)
	case "quatf[]", "quatd[]", "quath[]":
		return decodeSlice(raw, decodeQuat)
	case "matrix4d[]", "matrix4f[]":
		return decodeSlice(raw, decodeMat4)
	default:
		return nil, fmt.Errorf("unknown value type %q", typ)
	}
}

func unmarshal(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("scenejson: value: %w", err)
	}
	return nil
}

func decodeSlice[T any](raw json.RawMessage, elem func(json.RawMessage) (T, error)) (any, error) {
	var raws []json.RawMessage
	if err := unmarshal(raw, &raws); err != nil {
		return nil, err
	}
	out := make([]T, len(raws))
	for i, r := range raws {
		v, err := elem(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeFloats(raw json.RawMessage, n int) ([]float32, error) {
	var fs []float32
	if err := unmarshal(raw, &fs); err != nil {
		return nil, err
	}
	if len(fs) != n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(fs))
	}
	return fs, nil
}

func decodeVec2(raw json.RawMessage) (mgl32.Vec2, error) {
	fs, err := decodeFloats(raw, 2)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	return mgl32.Vec2{fs[0], fs[1]}, nil
}

func decodeVec3(raw json.RawMessage) (mgl32.Vec3, error) {
	fs, err := decodeFloats(raw, 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{fs[0], fs[1], fs[2]}, nil
}

func decodeVec4(raw json.RawMessage) (mgl32.Vec4, error) {
	fs, err := decodeFloats(raw, 4)
	if err != nil {
		return mgl32.Vec4{}, err
	}
	return mgl32.Vec4{fs[0], fs[1], fs[2], fs[3]}, nil
}

// decodeQuat reads [w, x, y, z], the order quaternions are authored in.
func decodeQuat(raw json.RawMessage) (mgl32.Quat, error) {
	fs, err := decodeFloats(raw, 4)
	if err != nil {
		return mgl32.Quat{}, err
	}
	return mgl32.Quat{W: fs[0], V: mgl32.Vec3{fs[1], fs[2], fs[3]}}, nil
}

// decodeMat4 reads 16 numbers in source order. The source convention
// multiplies row vectors on the left; loading the flat array straight
// into column-major storage yields the equivalent column-vector matrix,
// so no transpose is needed.
func decodeMat4(raw json.RawMessage) (mgl32.Mat4, error) {
	fs, err := decodeFloats(raw, 16)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	var m mgl32.Mat4
	copy(m[:], fs)
	return m, nil
}
