// Package shading resolves material bindings and walks shader networks
// into renderer-ready material parameters and texture bindings.
package shading

import (
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

// UVTransform is a 2D texture-coordinate transform in the order
// scale, rotate, translate.
type UVTransform struct {
	Rotation    float32 // degrees
	Scale       mgl32.Vec2
	Translation mgl32.Vec2
}

// TextureRef describes one texture binding before the asset is fetched.
type TextureRef struct {
	Asset string    // authored asset path
	From  prim.Path // prim whose property referenced the asset

	UVSet    string // primvar feeding the texcoords, usually "st"
	WrapS    string // "repeat", "clamp", "mirror", "black"
	WrapT    string
	Channel  string // output channel the input connected to: "rgb", "r"...
	Scale    mgl32.Vec4
	Bias     mgl32.Vec4
	Fallback *mgl32.Vec4
	Xform    *UVTransform
}

// Descriptor is the common resolved-material output of every shader
// family. One renderer-native material is created per descriptor; after
// that only queued texture completions may patch it.
type Descriptor struct {
	Source prim.Path // shader prim, for logs

	BaseColor          mgl32.Vec3
	Emissive           mgl32.Vec3
	Roughness          float32
	Metalness          float32
	Opacity            float32
	IOR                float32
	Clearcoat          float32
	ClearcoatRoughness float32

	DoubleSided bool

	BaseColorMap *TextureRef
	NormalMap    *TextureRef
	RoughnessMap *TextureRef
	MetalnessMap *TextureRef
	EmissiveMap  *TextureRef
	OpacityMap   *TextureRef
}

// Neutral is the fall-back material used whenever binding or shader
// resolution fails: a plain mid-gray, never an error.
func Neutral() *Descriptor {
	return &Descriptor{
		BaseColor: mgl32.Vec3{0.7, 0.7, 0.7},
		Roughness: 0.8,
		Opacity:   1,
		IOR:       1.5,
	}
}

// TextureSlot pairs a texture reference with the material role it fills.
type TextureSlot struct {
	Role string
	Ref  *TextureRef
}

// Textures returns the non-nil texture slots with their roles, in a
// stable order.
func (d *Descriptor) Textures() []TextureSlot {
	var out []TextureSlot
	add := func(role string, ref *TextureRef) {
		if ref != nil {
			out = append(out, TextureSlot{role, ref})
		}
	}
	add("baseColor", d.BaseColorMap)
	add("normal", d.NormalMap)
	add("roughness", d.RoughnessMap)
	add("metalness", d.MetalnessMap)
	add("emissive", d.EmissiveMap)
	add("opacity", d.OpacityMap)
	return out
}
