package stage

import (
	"testing"
	"time"

	"github.com/g3n/engine/core"
	"github.com/g3n/engine/graphic"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

func testStage() *Stage {
	return New(Options{})
}

// triMesh authors a minimal single-triangle mesh on p.
func triMesh(p *prim.Prim) {
	p.SetProp("points", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	p.SetProp("faceVertexCounts", []int{3})
	p.SetProp("faceVertexIndices", []int{0, 1, 2})
}

func TestLocalMatrixOrder(t *testing.T) {
	s := testStage()
	p := prim.New("/X", "Xform")
	p.SetProp("xformOpOrder", []string{"xformOp:translate", "xformOp:scale"})
	p.SetProp("xformOp:translate", mgl32.Vec3{1, 0, 0})
	p.SetProp("xformOp:scale", mgl32.Vec3{2, 2, 2})

	m, timed := s.localMatrix(p, 0)
	if timed {
		t.Fatal("untimed ops reported as timed")
	}
	got := mgl32.TransformCoordinate(mgl32.Vec3{1, 1, 1}, m)
	want := mgl32.Vec3{3, 2, 2} // scale first, then translate
	if got.Sub(want).Len() > 1e-5 {
		t.Fatalf("composed transform: got %v, want %v", got, want)
	}
}

func TestLocalMatrixFallbackOrder(t *testing.T) {
	s := testStage()
	p := prim.New("/X", "Xform")
	// No authored op order: translate applies before scale.
	p.SetProp("xformOp:scale", mgl32.Vec3{3, 3, 3})
	p.SetProp("xformOp:translate", mgl32.Vec3{0, 1, 0})

	m, _ := s.localMatrix(p, 0)
	got := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, m)
	want := mgl32.Vec3{0, 1, 0}
	if got.Sub(want).Len() > 1e-5 {
		t.Fatalf("fallback order: origin maps to %v, want %v", got, want)
	}
}

func TestLocalMatrixSuffixAndInvert(t *testing.T) {
	s := testStage()
	p := prim.New("/X", "Xform")
	p.SetProp("xformOpOrder", []string{"xformOp:translate:pivot", "!invert!xformOp:translate:pivot"})
	p.SetProp("xformOp:translate:pivot", mgl32.Vec3{5, 0, 0})
	p.SetProp("!invert!xformOp:translate:pivot", mgl32.Vec3{5, 0, 0})

	// Inverted pivot pairs are skipped wholesale; only the forward half
	// would unbalance the matrix, so both halves are dropped.
	m, _ := s.localMatrix(p, 0)
	got := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, m)
	if got.Len() > 1e-5 {
		t.Fatalf("pivot pair not skipped: origin maps to %v", got)
	}
}

func TestLocalMatrixTimed(t *testing.T) {
	s := testStage()
	p := prim.New("/X", "Xform")
	p.SetProp("xformOpOrder", []string{"xformOp:translate"})
	tr := p.SetProp("xformOp:translate", nil)
	tr.Samples = map[float64]any{
		0:  mgl32.Vec3{0, 0, 0},
		10: mgl32.Vec3{10, 0, 0},
	}

	m, timed := s.localMatrix(p, 5)
	if !timed {
		t.Fatal("sampled op not reported as timed")
	}
	got := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, m)
	if got.Sub(mgl32.Vec3{5, 0, 0}).Len() > 1e-5 {
		t.Fatalf("timed translate at 5: got %v", got)
	}
}

func TestRealizeBasicScene(t *testing.T) {
	root := prim.New(prim.Root, "")
	world := root.NewChild("World", "Xform")
	body := world.NewChild("Body", "Mesh")
	triMesh(body)
	world.NewChild("Sun", "DistantLight")

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)
	if scene == nil {
		t.Fatal("Realize returned nil")
	}

	var meshes int
	walkNodes(scene, func(n core.INode) {
		if _, ok := n.(*graphic.Mesh); ok {
			meshes++
		}
	})
	if meshes != 1 {
		t.Fatalf("got %d meshes, want 1", meshes)
	}
	if findNode(scene, "World") == nil || findNode(scene, "Body") == nil {
		t.Fatal("hierarchy containers missing")
	}
}

func TestRealizeInstancerFanOut(t *testing.T) {
	root := prim.New(prim.Root, "")
	inst := root.NewChild("Scatter", "PointInstancer")
	proto := inst.NewChild("Cube", "Mesh")
	triMesh(proto)
	inst.SetProp("protoIndices", []int{0, 0, 0})
	inst.SetProp("positions", []mgl32.Vec3{{0, 0, 0}, {5, 0, 0}, {0, 5, 0}})
	inst.SetProp("scales", []mgl32.Vec3{{1, 1, 1}, {2, 2, 2}, {1, 1, 1}})

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)

	var set *InstanceSet
	walkNodes(scene, func(n core.INode) {
		if is, ok := n.(*InstanceSet); ok {
			set = is
		}
	})
	if set == nil {
		t.Fatal("no InstanceSet emitted")
	}
	if len(set.Matrices) != 3 {
		t.Fatalf("instance count: got %d, want 3", len(set.Matrices))
	}
	if len(set.Children()) != 3 {
		t.Fatalf("instance meshes: got %d, want 3", len(set.Children()))
	}
}

func TestRealizeInstancerIndexOutOfRange(t *testing.T) {
	root := prim.New(prim.Root, "")
	inst := root.NewChild("Scatter", "PointInstancer")
	proto := inst.NewChild("Cube", "Mesh")
	triMesh(proto)
	inst.SetProp("protoIndices", []int{0, 7})
	inst.SetProp("positions", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)

	var set *InstanceSet
	walkNodes(scene, func(n core.INode) {
		if is, ok := n.(*InstanceSet); ok {
			set = is
		}
	})
	if set == nil {
		t.Fatal("no InstanceSet emitted")
	}
	if len(set.Matrices) != 1 {
		t.Fatalf("out-of-range instance kept: %d matrices", len(set.Matrices))
	}
}

func TestRealizeNestedInstancer(t *testing.T) {
	root := prim.New(prim.Root, "")
	outer := root.NewChild("Scatter", "PointInstancer")
	grid := outer.NewChild("Grid", "Xform")
	inner := grid.NewChild("Row", "PointInstancer")
	cube := inner.NewChild("Cube", "Mesh")
	triMesh(cube)
	inner.SetProp("protoIndices", []int{0, 0})
	inner.SetProp("positions", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})
	outer.SetProp("protoIndices", []int{0, 0, 0})
	outer.SetProp("positions", []mgl32.Vec3{{0, 0, 0}, {0, 10, 0}, {0, 20, 0}})

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)

	var set *InstanceSet
	walkNodes(scene, func(n core.INode) {
		if is, ok := n.(*InstanceSet); ok {
			set = is
		}
	})
	if set == nil {
		t.Fatal("no InstanceSet emitted")
	}
	if len(set.Matrices) != 3 {
		t.Fatalf("outer instance count: got %d, want 3", len(set.Matrices))
	}
	// Each outer instance expands the inner instancer's two draws.
	if len(set.Children()) != 6 {
		t.Fatalf("expanded meshes: got %d, want 6", len(set.Children()))
	}

	// The composed transforms keep the inner offsets under the outer
	// translation: one mesh lands at (1, 10, 0).
	found := false
	for _, c := range set.Children() {
		p := c.GetNode().Position()
		if (mgl32.Vec3{p.X, p.Y, p.Z}).Sub(mgl32.Vec3{1, 10, 0}).Len() < 1e-4 {
			found = true
		}
	}
	if !found {
		t.Fatal("composed nested instance transform missing")
	}
}

func TestRealizeDeferredSkinBinding(t *testing.T) {
	root := prim.New(prim.Root, "")
	sr := root.NewChild("Char", "SkelRoot")

	// The mesh precedes the skeleton in traversal order; binding must
	// defer and complete in the second pass.
	mesh := sr.NewChild("Body", "Mesh")
	triMesh(mesh)
	mesh.Rels["skel:skeleton"] = []prim.Path{"/Char/Skel"}
	ji := mesh.SetProp("primvars:skel:jointIndices", []int{0, 1, 1})
	ji.ElementSize = 1
	w := mesh.SetProp("primvars:skel:jointWeights", []float32{1, 1, 1})
	w.ElementSize = 1

	skel := sr.NewChild("Skel", "Skeleton")
	skel.SetProp("joints", []string{"Root", "Root/Tip"})
	skel.SetProp("bindTransforms", []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, 1, 0)})
	skel.SetProp("restTransforms", []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(0, 1, 0)})

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)

	var rigged, plain int
	walkNodes(scene, func(n core.INode) {
		switch n.(type) {
		case *graphic.RiggedMesh:
			rigged++
		case *graphic.Mesh:
			plain++
		}
	})
	if rigged != 1 {
		t.Fatalf("got %d rigged meshes, want 1", rigged)
	}
	if plain != 0 {
		t.Fatalf("static placeholder left behind: %d plain meshes", plain)
	}
}

func TestRealizeMissingSkeletonKeepsPlaceholder(t *testing.T) {
	root := prim.New(prim.Root, "")
	mesh := root.NewChild("Body", "Mesh")
	triMesh(mesh)
	mesh.Rels["skel:skeleton"] = []prim.Path{"/Nowhere"}
	mesh.SetProp("primvars:skel:jointIndices", []int{0, 0, 0}).ElementSize = 1
	mesh.SetProp("primvars:skel:jointWeights", []float32{1, 1, 1}).ElementSize = 1

	s := testStage()
	defer s.Close()
	scene := s.Realize(root)

	var rigged, plain int
	walkNodes(scene, func(n core.INode) {
		switch n.(type) {
		case *graphic.RiggedMesh:
			rigged++
		case *graphic.Mesh:
			plain++
		}
	})
	if rigged != 0 || plain != 1 {
		t.Fatalf("got %d rigged / %d plain, want 0 / 1", rigged, plain)
	}
}

func TestRealizePlaybackRange(t *testing.T) {
	root := prim.New(prim.Root, "")
	root.Meta["startTimeCode"] = 10.0
	root.Meta["endTimeCode"] = 50.0
	root.Meta["timeCodesPerSecond"] = 30.0
	body := root.NewChild("Body", "Mesh")
	triMesh(body)

	s := testStage()
	defer s.Close()
	s.Realize(root)

	pb := s.Playback()
	if pb.StartTime() != 10 || pb.EndTime() != 50 || pb.FPS() != 30 {
		t.Fatalf("range: [%v, %v] @ %v", pb.StartTime(), pb.EndTime(), pb.FPS())
	}
}

func TestRealizeRangeFromSamples(t *testing.T) {
	root := prim.New(prim.Root, "")
	x := root.NewChild("X", "Xform")
	x.SetProp("xformOpOrder", []string{"xformOp:translate"})
	x.SetProp("xformOp:translate", nil).Samples = map[float64]any{
		2:  mgl32.Vec3{},
		48: mgl32.Vec3{1, 0, 0},
	}

	s := testStage()
	defer s.Close()
	s.Realize(root)

	pb := s.Playback()
	if pb.StartTime() != 2 || pb.EndTime() != 48 {
		t.Fatalf("sampled range: [%v, %v], want [2, 48]", pb.StartTime(), pb.EndTime())
	}
	if len(s.registry) != 1 || s.registry[0].kind != animTransform {
		t.Fatalf("registry: %+v", s.registry)
	}
}

func TestPlaybackStateMachine(t *testing.T) {
	pb := newPlayback(24)
	pb.setRange(0, 10, 24)

	if pb.Playing() {
		t.Fatal("fresh playback is playing")
	}
	pb.Play()
	if !pb.Playing() {
		t.Fatal("Play did not start")
	}

	t0 := time.Now()
	pb.Tick(t0) // first tick only arms frame timing
	if pb.CurrentTime() != 0 {
		t.Fatalf("armed tick moved time to %v", pb.CurrentTime())
	}
	pb.Tick(t0.Add(250 * time.Millisecond))
	if got := pb.CurrentTime(); got < 5.9 || got > 6.1 {
		t.Fatalf("after 0.25s at 24fps: %v, want 6", got)
	}

	// Advancing past the end wraps back into range.
	pb.Tick(t0.Add(500 * time.Millisecond))
	if got := pb.CurrentTime(); got < 1.9 || got > 2.1 {
		t.Fatalf("wrap: %v, want 2", got)
	}

	pb.Pause()
	held := pb.CurrentTime()
	pb.Tick(t0.Add(time.Second))
	if pb.CurrentTime() != held {
		t.Fatal("paused playback advanced")
	}

	pb.SetTime(99)
	if pb.CurrentTime() != 10 {
		t.Fatalf("SetTime clamp: %v, want 10", pb.CurrentTime())
	}
	pb.SetTime(-1)
	if pb.CurrentTime() != 0 {
		t.Fatalf("SetTime clamp low: %v, want 0", pb.CurrentTime())
	}
}

func TestRealizeCoalesced(t *testing.T) {
	root := prim.New(prim.Root, "")
	body := root.NewChild("Body", "Mesh")
	triMesh(body)

	s := testStage()
	defer s.Close()

	// A request arriving mid-pass records one follow-up, not a recursive
	// pass. Simulate by flagging the realizing state directly.
	s.mu.Lock()
	s.realizing = true
	s.mu.Unlock()
	if got := s.Realize(root); got != nil {
		t.Fatal("queued request should return the previous scene (nil here)")
	}
	s.mu.Lock()
	if !s.queued {
		t.Fatal("re-entrant request not queued")
	}
	s.realizing = false
	s.queued = false
	s.mu.Unlock()

	if s.Realize(root) == nil {
		t.Fatal("direct request did not realize")
	}
}

func walkNodes(n core.INode, fn func(core.INode)) {
	fn(n)
	for _, c := range n.GetNode().Children() {
		walkNodes(c, fn)
	}
}

func findNode(n core.INode, name string) core.INode {
	if n.GetNode().Name() == name {
		return n
	}
	for _, c := range n.GetNode().Children() {
		if f := findNode(c, name); f != nil {
			return f
		}
	}
	return nil
}
