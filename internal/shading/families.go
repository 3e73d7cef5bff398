package shading

import (
	"log/slog"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

// Resolve walks a terminal surface shader into the common material
// descriptor. Dispatch is a single match on the shader's declared type
// identifier; the three supported families all land in the same output
// shape. An unrecognized or nil shader resolves to the neutral material.
func Resolve(shader *prim.Prim, log *slog.Logger) *Descriptor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if shader == nil {
		return Neutral()
	}
	id, _ := prim.AsString(shader.Prop("info:id").Val())
	r := &resolver{log: log}
	switch {
	case id == "UsdPreviewSurface":
		return r.previewSurface(shader)
	case id == "standard_surface" || id == "ND_standard_surface_surfaceshader":
		return r.standardSurface(shader)
	case id == "Pbr" || id == "SimplePbr":
		return r.legacyPbr(shader)
	case shader.Prop("inputs:diffuseColor") != nil:
		// Unidentified shader that still quacks like a preview surface.
		log.Debug("unknown shader id treated as preview surface", "id", id, "shader", string(shader.Path))
		return r.previewSurface(shader)
	}
	log.Warn("unsupported shader family", "id", id, "shader", string(shader.Path))
	return Neutral()
}

type resolver struct {
	log *slog.Logger
}

// input reads a shader input, returning its constant value and, when the
// input is connected into a texture network, the resolved texture
// reference.
func (r *resolver) input(shader *prim.Prim, name string) (any, *TextureRef) {
	prop := shader.Prop("inputs:" + name)
	if prop == nil {
		return nil, nil
	}
	for _, target := range prop.Connect {
		dst, outName := FollowOutput(shader, target, 0)
		if dst == nil || dst == shader {
			continue
		}
		if ref := r.textureRef(dst, channelOf(outName)); ref != nil {
			return prop.Value, ref
		}
		// A primvar reader wired straight into a scalar/color input:
		// take its fallback as the constant.
		if id, _ := prim.AsString(dst.Prop("info:id").Val()); strings.HasPrefix(id, "UsdPrimvarReader") {
			return dst.Prop("inputs:fallback").Val(), nil
		}
	}
	return prop.Value, nil
}

// channelOf extracts the channel from an output property name like
// "outputs:rgb" or "outputs:r".
func channelOf(outName string) string {
	c := strings.TrimPrefix(outName, "outputs:")
	switch c {
	case "r", "g", "b", "a", "rgb", "rgba":
		return c
	}
	return "rgb"
}

// isImageNode reports whether a shader prim reads a texture asset.
func isImageNode(id string) bool {
	return id == "UsdUVTexture" || strings.HasPrefix(id, "ND_image")
}

// textureRef builds a texture reference from a texture-reading shader
// prim, or nil when the prim is not one.
func (r *resolver) textureRef(node *prim.Prim, channel string) *TextureRef {
	id, _ := prim.AsString(node.Prop("info:id").Val())
	if !isImageNode(id) {
		return nil
	}
	asset, ok := prim.AsString(node.Prop("inputs:file").Val())
	if !ok || asset == "" {
		return nil
	}
	ref := &TextureRef{
		Asset:   asset,
		From:    node.Path,
		UVSet:   "st",
		WrapS:   "repeat",
		WrapT:   "repeat",
		Channel: channel,
		Scale:   mgl32.Vec4{1, 1, 1, 1},
	}
	if w, ok := prim.AsString(node.Prop("inputs:wrapS").Val()); ok {
		ref.WrapS = w
	}
	if w, ok := prim.AsString(node.Prop("inputs:wrapT").Val()); ok {
		ref.WrapT = w
	}
	if s, ok := prim.AsVec4(node.Prop("inputs:scale").Val()); ok {
		ref.Scale = s
	}
	if b, ok := prim.AsVec4(node.Prop("inputs:bias").Val()); ok {
		ref.Bias = b
	}
	if f, ok := prim.AsVec4(node.Prop("inputs:fallback").Val()); ok {
		fb := f
		ref.Fallback = &fb
	}

	// The st input chains through an optional UsdTransform2d into a
	// primvar reader.
	for _, target := range node.Prop("inputs:st").ConnectTargets() {
		dst, _ := FollowOutput(node, target, 0)
		if dst == nil {
			continue
		}
		dstID, _ := prim.AsString(dst.Prop("info:id").Val())
		if dstID == "UsdTransform2d" {
			xf := &UVTransform{Scale: mgl32.Vec2{1, 1}}
			if rot, ok := prim.AsFloat(dst.Prop("inputs:rotation").Val()); ok {
				xf.Rotation = rot
			}
			if sc, ok := prim.AsVec2(dst.Prop("inputs:scale").Val()); ok {
				xf.Scale = sc
			}
			if tr, ok := prim.AsVec2(dst.Prop("inputs:translation").Val()); ok {
				xf.Translation = tr
			}
			ref.Xform = xf
			for _, inner := range dst.Prop("inputs:in").ConnectTargets() {
				if reader, _ := FollowOutput(dst, inner, 0); reader != nil {
					dst = reader
					break
				}
			}
		}
		if varname, ok := prim.AsString(dst.Prop("inputs:varname").Val()); ok && varname != "" {
			ref.UVSet = varname
		}
	}
	return ref
}

func floatOr(v any, def float32) float32 {
	if f, ok := prim.AsFloat(v); ok {
		return f
	}
	return def
}

func vec3Or(v any, def mgl32.Vec3) mgl32.Vec3 {
	if c, ok := prim.AsVec3(v); ok {
		return c
	}
	return def
}

// previewSurface resolves the general-purpose preview-surface family:
// every slot is either a constant or a connected texture.
func (r *resolver) previewSurface(shader *prim.Prim) *Descriptor {
	d := Neutral()
	d.Source = shader.Path

	v, tex := r.input(shader, "diffuseColor")
	d.BaseColor = vec3Or(v, mgl32.Vec3{0.18, 0.18, 0.18})
	d.BaseColorMap = tex

	v, tex = r.input(shader, "emissiveColor")
	d.Emissive = vec3Or(v, mgl32.Vec3{})
	d.EmissiveMap = tex

	v, tex = r.input(shader, "roughness")
	d.Roughness = floatOr(v, 0.5)
	d.RoughnessMap = tex

	v, tex = r.input(shader, "metallic")
	d.Metalness = floatOr(v, 0)
	d.MetalnessMap = tex

	v, tex = r.input(shader, "opacity")
	d.Opacity = floatOr(v, 1)
	d.OpacityMap = tex

	_, d.NormalMap = r.input(shader, "normal")

	d.Clearcoat = floatOr(shader.Prop("inputs:clearcoat").Val(), 0)
	d.ClearcoatRoughness = floatOr(shader.Prop("inputs:clearcoatRoughness").Val(), 0.01)
	d.IOR = floatOr(shader.Prop("inputs:ior").Val(), 1.5)
	return d
}

// standardSurface resolves the physically-based standard-surface family.
// Texture values are found by following chains of node-graph outputs to
// image nodes.
func (r *resolver) standardSurface(shader *prim.Prim) *Descriptor {
	d := Neutral()
	d.Source = shader.Path

	base := floatOr(shader.Prop("inputs:base").Val(), 1)
	v, tex := r.input(shader, "base_color")
	d.BaseColor = vec3Or(v, mgl32.Vec3{0.8, 0.8, 0.8}).Mul(base)
	d.BaseColorMap = tex

	v, tex = r.input(shader, "specular_roughness")
	d.Roughness = floatOr(v, 0.2)
	d.RoughnessMap = tex

	v, tex = r.input(shader, "metalness")
	d.Metalness = floatOr(v, 0)
	d.MetalnessMap = tex

	emission := floatOr(shader.Prop("inputs:emission").Val(), 0)
	v, tex = r.input(shader, "emission_color")
	d.Emissive = vec3Or(v, mgl32.Vec3{1, 1, 1}).Mul(emission)
	if emission > 0 {
		d.EmissiveMap = tex
	}

	d.Clearcoat = floatOr(shader.Prop("inputs:coat").Val(), 0)
	d.ClearcoatRoughness = floatOr(shader.Prop("inputs:coat_roughness").Val(), 0.1)
	d.IOR = floatOr(shader.Prop("inputs:specular_IOR").Val(), 1.5)

	// Transmission approximated as transparency; this renderer does not
	// refract.
	if tr := floatOr(shader.Prop("inputs:transmission").Val(), 0); tr > 0 {
		d.Opacity = 1 - tr
	}
	_, d.NormalMap = r.input(shader, "normal")
	return d
}

// legacyPbr resolves the legacy PBR family: named scalar/texture inputs
// with explicit enable flags for the optional maps.
func (r *resolver) legacyPbr(shader *prim.Prim) *Descriptor {
	d := Neutral()
	d.Source = shader.Path

	d.BaseColor = vec3Or(shader.Prop("inputs:diffuse_color").Val(), mgl32.Vec3{0.5, 0.5, 0.5})
	d.Roughness = floatOr(shader.Prop("inputs:roughness").Val(), 0.6)
	d.Metalness = floatOr(shader.Prop("inputs:metallic").Val(), 0)

	d.BaseColorMap = r.legacyTexture(shader, "diffuse_texture")
	d.RoughnessMap = r.legacyTexture(shader, "roughness_texture")
	d.MetalnessMap = r.legacyTexture(shader, "metallic_texture")

	if prim.AsBool(shader.Prop("inputs:use_normal_map").Val()) {
		d.NormalMap = r.legacyTexture(shader, "normal_texture")
	}
	if prim.AsBool(shader.Prop("inputs:use_emission").Val()) {
		d.Emissive = vec3Or(shader.Prop("inputs:emission_color").Val(), mgl32.Vec3{})
		d.EmissiveMap = r.legacyTexture(shader, "emission_texture")
	}
	if prim.AsBool(shader.Prop("inputs:use_opacity").Val()) {
		d.Opacity = floatOr(shader.Prop("inputs:opacity").Val(), 1)
		if prim.AsBool(shader.Prop("inputs:use_opacity_map").Val()) {
			d.OpacityMap = r.legacyTexture(shader, "opacity_texture")
		}
	}
	return d
}

// legacyTexture reads a legacy family texture input: either a direct
// asset-path value or a connection to an image node.
func (r *resolver) legacyTexture(shader *prim.Prim, name string) *TextureRef {
	prop := shader.Prop("inputs:" + name)
	if prop == nil {
		return nil
	}
	if asset, ok := prim.AsString(prop.Value); ok && asset != "" {
		return &TextureRef{
			Asset:   asset,
			From:    shader.Path,
			UVSet:   "st",
			WrapS:   "repeat",
			WrapT:   "repeat",
			Channel: "rgb",
			Scale:   mgl32.Vec4{1, 1, 1, 1},
		}
	}
	for _, target := range prop.Connect {
		if dst, outName := FollowOutput(shader, target, 0); dst != nil {
			if ref := r.textureRef(dst, channelOf(outName)); ref != nil {
				return ref
			}
		}
	}
	return nil
}
