package stage

import (
	"image"

	"github.com/g3n/engine/gls"
	"github.com/g3n/engine/material"
	engtex "github.com/g3n/engine/texture"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/shading"
	"usd-stage-realizer/internal/texture"
)

// resolveMaterial resolves the material bound to p into a renderer
// material, queuing asynchronous texture fetches against it. Always
// succeeds; unresolvable bindings yield the neutral material.
func (s *Stage) resolveMaterial(p *prim.Prim, protoRoot prim.Path, doubleSided bool) material.IMaterial {
	m := shading.ResolveBinding(p, protoRoot, s.log)
	var desc *shading.Descriptor
	if m == nil {
		s.log.Debug("no material binding", "prim", string(p.Path))
		desc = shading.Neutral()
	} else {
		desc = shading.Resolve(shading.SurfaceShader(m, s.log), s.log)
	}
	desc.DoubleSided = desc.DoubleSided || doubleSided
	return s.materialFor(desc)
}

// materialFor creates one engine material per resolved descriptor. The
// material is usable immediately with constant values; texture slots
// fill in whenever their fetches complete.
func (s *Stage) materialFor(d *shading.Descriptor) material.IMaterial {
	mat := material.NewPhysical()
	mat.SetBaseColorFactor(toColor4(d.BaseColor, d.Opacity))
	mat.SetMetallicFactor(d.Metalness)
	mat.SetRoughnessFactor(d.Roughness)
	mat.SetEmissiveFactor(toColor(d.Emissive))
	if d.Opacity < 1 {
		mat.SetTransparent(true)
	}
	if d.DoubleSided {
		mat.SetSide(material.SideDouble)
	}

	if s.fetcher == nil {
		return mat
	}
	for _, slot := range d.Textures() {
		slot := slot
		s.fetcher.Fetch(slot.Ref.Asset, string(slot.Ref.From), func(img *image.NRGBA) {
			s.applyTexture(mat, d, slot.Role, slot.Ref, img)
		})
	}
	return mat
}

// applyTexture is the texture completion callback: a small, well-defined
// patch on the already-published material. Whole-field replacement only;
// multiple slots of one material may complete in any order.
func (s *Stage) applyTexture(mat *material.Physical, d *shading.Descriptor, role string, ref *shading.TextureRef, img *image.NRGBA) {
	if img == nil {
		// Keep the constant-value appearance, optionally tinted by a
		// color guessed from the asset's file name.
		if role == "baseColor" {
			if r, g, b, ok := texture.GuessColor(ref.Asset); ok {
				mat.SetBaseColorFactor(toColor4(mgl32.Vec3{r, g, b}, d.Opacity))
				s.log.Debug("texture fallback color", "asset", ref.Asset)
			}
		}
		return
	}

	tex := engtex.NewTexture2DFromRGBA(toRGBA(img))
	tex.SetWrapS(wrapMode(ref.WrapS))
	tex.SetWrapT(wrapMode(ref.WrapT))
	if ref.Xform != nil {
		tex.SetOffset(ref.Xform.Translation.X(), ref.Xform.Translation.Y())
		tex.SetRepeat(ref.Xform.Scale.X(), ref.Xform.Scale.Y())
		if ref.Xform.Rotation != 0 {
			s.log.Debug("UV rotation unsupported, ignored", "asset", ref.Asset)
		}
	}
	tex.SetFlipY(false)

	switch role {
	case "baseColor":
		// White out the factor so the map is not double-tinted.
		mat.SetBaseColorFactor(toColor4(mgl32.Vec3{1, 1, 1}, d.Opacity))
		mat.SetBaseColorMap(tex)
	case "emissive":
		mat.SetEmissiveMap(tex)
	case "normal":
		mat.SetNormalMap(tex)
	case "roughness", "metalness":
		// The engine reads both from one combined map.
		mat.SetMetallicRoughnessMap(tex)
	case "opacity":
		mat.SetTransparent(true)
		mat.AddTexture(tex)
	}
}

func wrapMode(w string) uint32 {
	switch w {
	case "clamp", "black":
		return gls.CLAMP_TO_EDGE
	case "mirror":
		return gls.MIRRORED_REPEAT
	default:
		return gls.REPEAT
	}
}
