package shading

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

// previewMaterial builds a Material prim with a preview-surface shader
// under parent and wires the surface output.
func previewMaterial(parent *prim.Prim, name string, baseColor mgl32.Vec3) *prim.Prim {
	m := parent.NewChild(name, "Material")
	sh := m.NewChild("Surface", "Shader")
	sh.SetProp("info:id", "UsdPreviewSurface")
	sh.SetProp("inputs:diffuseColor", baseColor)
	m.SetProp("outputs:surface", nil).Connect =
		[]prim.Path{prim.Path(string(sh.Path) + ".outputs:surface")}
	return m
}

func TestResolveBindingInheritance(t *testing.T) {
	root := prim.New(prim.Root, "")
	mats := root.NewChild("Materials", "Scope")
	red := previewMaterial(mats, "Red", mgl32.Vec3{1, 0, 0})

	geo := root.NewChild("Geo", "Xform")
	geo.Rels["material:binding"] = []prim.Path{red.Path}
	mesh := geo.NewChild("Body", "Mesh")

	if got := ResolveBinding(mesh, "", nil); got != red {
		t.Fatalf("inherited binding: got %v", got)
	}
	if got := ResolveBinding(geo, "", nil); got != red {
		t.Fatalf("direct binding: got %v", got)
	}
	if got := ResolveBinding(mats, "", nil); got != nil {
		t.Fatalf("unbound prim: got %v, want nil", got)
	}
}

func TestResolveBindingStopBoundary(t *testing.T) {
	root := prim.New(prim.Root, "")
	mats := root.NewChild("Materials", "Scope")
	red := previewMaterial(mats, "Red", mgl32.Vec3{1, 0, 0})

	world := root.NewChild("World", "Xform")
	world.Rels["material:binding"] = []prim.Path{red.Path}
	proto := world.NewChild("Proto", "Xform")
	mesh := proto.NewChild("Body", "Mesh")

	// Unbounded resolution escapes to the World binding.
	if got := ResolveBinding(mesh, "", nil); got != red {
		t.Fatalf("unbounded: got %v, want the bound material", got)
	}
	// The prototype boundary stops the climb before World.
	if got := ResolveBinding(mesh, proto.Path, nil); got != nil {
		t.Fatalf("bounded: got %v, want nil", got)
	}
}

func TestResolveBindingPriority(t *testing.T) {
	root := prim.New(prim.Root, "")
	mats := root.NewChild("Materials", "Scope")
	full := previewMaterial(mats, "Full", mgl32.Vec3{0, 1, 0})
	preview := previewMaterial(mats, "Preview", mgl32.Vec3{0, 0, 1})

	geo := root.NewChild("Geo", "Mesh")
	geo.Rels["material:binding"] = []prim.Path{full.Path}
	geo.Rels["material:binding:preview"] = []prim.Path{preview.Path}

	if got := ResolveBinding(geo, "", nil); got != preview {
		t.Fatalf("priority: got %v, want the preview binding", got)
	}
}

func TestResolveBindingLeafRemap(t *testing.T) {
	root := prim.New(prim.Root, "")
	mats := root.NewChild("Materials", "Scope")
	red := previewMaterial(mats, "Red", mgl32.Vec3{1, 0, 0})

	geo := root.NewChild("Geo", "Mesh")
	// An absolute target from a referenced layer that no longer exists.
	geo.Rels["material:binding"] = []prim.Path{"/Asset/Looks/Red"}

	if got := ResolveBinding(geo, "", nil); got != red {
		t.Fatalf("leaf remap: got %v, want /Materials/Red", got)
	}
}

func TestSurfaceShaderThroughNodeGraph(t *testing.T) {
	root := prim.New(prim.Root, "")
	m := root.NewChild("Mat", "Material")
	ng := m.NewChild("Graph", "NodeGraph")
	sh := ng.NewChild("Std", "Shader")
	sh.SetProp("info:id", "standard_surface")

	m.SetProp("outputs:mtlx:surface", nil).Connect =
		[]prim.Path{prim.Path(string(ng.Path) + ".outputs:mtlx:surface")}
	ng.SetProp("outputs:mtlx:surface", nil).Connect =
		[]prim.Path{prim.Path(string(sh.Path) + ".outputs:surface")}

	if got := SurfaceShader(m, nil); got != sh {
		t.Fatalf("node-graph chain: got %v, want the terminal shader", got)
	}
}

func TestSurfaceShaderDescendantScan(t *testing.T) {
	root := prim.New(prim.Root, "")
	m := root.NewChild("Mat", "Material")
	sh := m.NewChild("Orphan", "Shader")
	sh.SetProp("info:id", "UsdPreviewSurface")

	// No output connections at all; the scan finds the shader anyway.
	if got := SurfaceShader(m, nil); got != sh {
		t.Fatalf("descendant scan: got %v, want the orphan shader", got)
	}
	if got := SurfaceShader(nil, nil); got != nil {
		t.Fatalf("nil material: got %v", got)
	}
}

func TestSubsets(t *testing.T) {
	root := prim.New(prim.Root, "")
	mats := root.NewChild("Materials", "Scope")
	red := previewMaterial(mats, "Red", mgl32.Vec3{1, 0, 0})

	mesh := root.NewChild("Body", "Mesh")
	sub := mesh.NewChild("front", "GeomSubset")
	sub.SetProp("familyName", "materialBind")
	sub.SetProp("indices", []int{0, 2})
	sub.Rels["material:binding"] = []prim.Path{red.Path}

	// A subset of another family is not a material override.
	other := mesh.NewChild("physics", "GeomSubset")
	other.SetProp("familyName", "physicsCollision")
	other.SetProp("indices", []int{1})
	other.Rels["material:binding"] = []prim.Path{red.Path}

	// materialBind subsets inherit the mesh binding when unbound
	// themselves; with nothing bound anywhere they are dropped.
	unbound := mesh.NewChild("back", "GeomSubset")
	unbound.SetProp("familyName", "materialBind")
	unbound.SetProp("indices", []int{3})

	subs := Subsets(mesh, "", nil)
	if len(subs) != 1 {
		t.Fatalf("got %d subsets, want 1", len(subs))
	}
	if subs[0].Material != red {
		t.Fatalf("subset material: got %v", subs[0].Material)
	}
	if len(subs[0].Faces) != 2 || subs[0].Faces[0] != 0 || subs[0].Faces[1] != 2 {
		t.Fatalf("subset faces: got %v, want [0 2]", subs[0].Faces)
	}
}

func TestResolvePreviewSurface(t *testing.T) {
	root := prim.New(prim.Root, "")
	m := root.NewChild("Mat", "Material")
	sh := m.NewChild("Surface", "Shader")
	sh.SetProp("info:id", "UsdPreviewSurface")
	sh.SetProp("inputs:diffuseColor", mgl32.Vec3{0.2, 0.4, 0.6})
	sh.SetProp("inputs:roughness", float32(0.3))
	sh.SetProp("inputs:metallic", float32(1))
	sh.SetProp("inputs:opacity", float32(0.5))

	d := Resolve(sh, nil)
	if d.BaseColor != (mgl32.Vec3{0.2, 0.4, 0.6}) {
		t.Errorf("base color: got %v", d.BaseColor)
	}
	if d.Roughness != 0.3 || d.Metalness != 1 || d.Opacity != 0.5 {
		t.Errorf("scalars: roughness %v metalness %v opacity %v",
			d.Roughness, d.Metalness, d.Opacity)
	}
	if d.BaseColorMap != nil {
		t.Errorf("unexpected base color map: %v", d.BaseColorMap)
	}
}

func TestResolveTextureNetwork(t *testing.T) {
	root := prim.New(prim.Root, "")
	m := root.NewChild("Mat", "Material")
	sh := m.NewChild("Surface", "Shader")
	sh.SetProp("info:id", "UsdPreviewSurface")

	tex := m.NewChild("Tex", "Shader")
	tex.SetProp("info:id", "UsdUVTexture")
	tex.SetProp("inputs:file", "textures/wood.png")
	tex.SetProp("inputs:wrapS", "clamp")

	xf := m.NewChild("Place", "Shader")
	xf.SetProp("info:id", "UsdTransform2d")
	xf.SetProp("inputs:scale", mgl32.Vec2{2, 2})

	reader := m.NewChild("Reader", "Shader")
	reader.SetProp("info:id", "UsdPrimvarReader_float2")
	reader.SetProp("inputs:varname", "uv2")

	sh.SetProp("inputs:diffuseColor", nil).Connect =
		[]prim.Path{prim.Path(string(tex.Path) + ".outputs:rgb")}
	tex.SetProp("inputs:st", nil).Connect =
		[]prim.Path{prim.Path(string(xf.Path) + ".outputs:result")}
	xf.SetProp("inputs:in", nil).Connect =
		[]prim.Path{prim.Path(string(reader.Path) + ".outputs:result")}

	d := Resolve(sh, nil)
	ref := d.BaseColorMap
	if ref == nil {
		t.Fatal("no base color map resolved")
	}
	if ref.Asset != "textures/wood.png" {
		t.Errorf("asset: got %q", ref.Asset)
	}
	if ref.WrapS != "clamp" || ref.WrapT != "repeat" {
		t.Errorf("wrap: got %q/%q", ref.WrapS, ref.WrapT)
	}
	if ref.Channel != "rgb" {
		t.Errorf("channel: got %q", ref.Channel)
	}
	if ref.Xform == nil || ref.Xform.Scale != (mgl32.Vec2{2, 2}) {
		t.Errorf("uv transform: got %+v", ref.Xform)
	}
	if ref.UVSet != "uv2" {
		t.Errorf("uv set: got %q, want uv2", ref.UVSet)
	}
}

func TestResolveFallbacks(t *testing.T) {
	if d := Resolve(nil, nil); *d != *Neutral() {
		t.Fatalf("nil shader: got %+v", d)
	}

	root := prim.New(prim.Root, "")
	sh := root.NewChild("Weird", "Shader")
	sh.SetProp("info:id", "VolumeScatter")
	if d := Resolve(sh, nil); d.BaseColor != Neutral().BaseColor {
		t.Fatalf("unknown family: got %+v", d)
	}

	// Unknown id with preview-style inputs still resolves.
	quack := root.NewChild("Quack", "Shader")
	quack.SetProp("info:id", "MyRendererSurface")
	quack.SetProp("inputs:diffuseColor", mgl32.Vec3{0, 1, 0})
	if d := Resolve(quack, nil); d.BaseColor != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("duck-typed preview surface: got %+v", d)
	}
}

func TestResolveStandardSurface(t *testing.T) {
	root := prim.New(prim.Root, "")
	sh := root.NewChild("Std", "Shader")
	sh.SetProp("info:id", "standard_surface")
	sh.SetProp("inputs:base", float32(0.5))
	sh.SetProp("inputs:base_color", mgl32.Vec3{1, 0.5, 0})
	sh.SetProp("inputs:specular_roughness", float32(0.4))
	sh.SetProp("inputs:transmission", float32(0.25))

	d := Resolve(sh, nil)
	if d.BaseColor != (mgl32.Vec3{0.5, 0.25, 0}) {
		t.Errorf("base weighting: got %v", d.BaseColor)
	}
	if d.Roughness != 0.4 {
		t.Errorf("roughness: got %v", d.Roughness)
	}
	if d.Opacity != 0.75 {
		t.Errorf("transmission opacity: got %v", d.Opacity)
	}
}

func TestResolveLegacyPbr(t *testing.T) {
	root := prim.New(prim.Root, "")
	sh := root.NewChild("Pbr", "Shader")
	sh.SetProp("info:id", "SimplePbr")
	sh.SetProp("inputs:diffuse_color", mgl32.Vec3{0.9, 0.1, 0.1})
	sh.SetProp("inputs:diffuse_texture", "skin.tga")
	sh.SetProp("inputs:emission_color", mgl32.Vec3{2, 2, 2})
	sh.SetProp("inputs:emission_texture", "glow.png")

	d := Resolve(sh, nil)
	if d.BaseColorMap == nil || d.BaseColorMap.Asset != "skin.tga" {
		t.Fatalf("diffuse texture: got %+v", d.BaseColorMap)
	}
	// Emission stays off without the enable flag.
	if d.EmissiveMap != nil || d.Emissive != (mgl32.Vec3{}) {
		t.Fatalf("emission applied without enable flag: %+v", d)
	}

	sh.SetProp("inputs:use_emission", true)
	d = Resolve(sh, nil)
	if d.EmissiveMap == nil || d.Emissive != (mgl32.Vec3{2, 2, 2}) {
		t.Fatalf("enabled emission: %+v %v", d.EmissiveMap, d.Emissive)
	}
}
