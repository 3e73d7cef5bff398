// Package stage drives scene realization: one recursive traversal over
// the composed prim tree that emits a render-engine scene graph with
// geometry, materials, skinned meshes, instancing and lights, plus the
// animation registry that keeps time-sampled values live.
package stage

import (
	"log/slog"
	"sync"

	"github.com/g3n/engine/core"
	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
	"usd-stage-realizer/internal/sample"
	"usd-stage-realizer/internal/texture"
)

// Options configures a Stage.
type Options struct {
	// Resolver maps texture asset paths to loadable locations. Nil
	// disables texture fetching; materials keep constant values.
	Resolver texture.Resolver

	// TextureWorkers sizes the async fetch pool.
	TextureWorkers int

	// FPS overrides the playback rate when the root layer does not
	// author timeCodesPerSecond. Zero means 24.
	FPS float64

	// Logger receives realization diagnostics. Nil discards.
	Logger *slog.Logger
}

// Stage realizes composed prim trees into a g3n scene graph.
type Stage struct {
	log     *slog.Logger
	fetcher *texture.Fetcher
	fps     float64

	root  *prim.Prim
	scene *core.Node

	playback *Playback
	registry []animEntry

	skeletons map[prim.Path]*skeletonEntry
	pending   map[prim.Path][]*pendingSkin
	protos    map[prim.Path]*protoResult

	// Re-entrant realization requests are coalesced: one follow-up pass
	// after the current one, never a concurrent or queued pile-up.
	mu        sync.Mutex
	realizing bool
	queued    bool
}

// New creates a stage.
func New(opts Options) *Stage {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 24
	}
	s := &Stage{
		log:      log,
		fps:      fps,
		playback: newPlayback(fps),
	}
	s.playback.stage = s
	if opts.Resolver != nil {
		s.fetcher = texture.NewFetcher(opts.Resolver, opts.TextureWorkers, log)
	}
	return s
}

// Scene returns the realized scene root, nil before the first pass.
func (s *Stage) Scene() *core.Node { return s.scene }

// Playback returns the animation state record.
func (s *Stage) Playback() *Playback { return s.playback }

// Close releases the texture fetch pool.
func (s *Stage) Close() {
	if s.fetcher != nil {
		s.fetcher.Close()
	}
}

// WaitTextures blocks until queued texture fetches complete. Tools use
// it before sampling materials; interactive callers never need to.
func (s *Stage) WaitTextures() {
	if s.fetcher != nil {
		s.fetcher.Wait()
	}
}

// Realize runs one full realization pass over root and returns the new
// scene graph. Output from any previous pass is discarded wholesale;
// there is no incremental update model. A call arriving while a pass is
// already running records exactly one follow-up pass instead of
// recursing.
func (s *Stage) Realize(root *prim.Prim) *core.Node {
	s.mu.Lock()
	if s.realizing {
		s.queued = true
		s.root = root
		s.mu.Unlock()
		return s.scene
	}
	s.realizing = true
	s.root = root
	s.mu.Unlock()

	for {
		s.pass()
		s.mu.Lock()
		if !s.queued {
			s.realizing = false
			s.mu.Unlock()
			return s.scene
		}
		s.queued = false
		s.mu.Unlock()
	}
}

// pass rebuilds everything from s.root.
func (s *Stage) pass() {
	s.registry = nil
	s.skeletons = make(map[prim.Path]*skeletonEntry)
	s.pending = make(map[prim.Path][]*pendingSkin)
	s.protos = make(map[prim.Path]*protoResult)

	scene := core.NewNode()
	scene.SetName("stage")

	if s.root != nil {
		sn := buildSceneNode(s.root)
		ctx := &travCtx{world: mgl32.Ident4()}
		for _, c := range sn.children {
			s.traverse(c, scene, ctx)
		}
		s.bindPendingSkins()
		s.configurePlayback()
	}
	s.scene = scene
	// First application so a paused viewer still shows frame start.
	s.applyTime(s.playback.CurrentTime())
}

// sceneNode mirrors a prim subtree with a cached type name; it lives on
// the traversal call stack and is only retained inside the prototype
// cache.
type sceneNode struct {
	pr       *prim.Prim
	typeName string
	children []*sceneNode
}

func buildSceneNode(p *prim.Prim) *sceneNode {
	sn := &sceneNode{pr: p, typeName: p.TypeName}
	p.VisitChildren(func(c *prim.Prim) {
		sn.children = append(sn.children, buildSceneNode(c))
	})
	return sn
}

// travCtx carries traversal state down the recursion.
type travCtx struct {
	// protoRoot marks the subtree root when realizing inside an
	// instancer prototype; material bindings stop there.
	protoRoot prim.Path

	// world accumulates the transform from the traversal origin, used
	// when collecting prototype draw items.
	world mgl32.Mat4

	// collect receives (geometry, material) pairs during prototype
	// realization.
	collect *[]protoItem

	time float64
}

func (c *travCtx) with(local mgl32.Mat4) *travCtx {
	cc := *c
	cc.world = c.world.Mul4(local)
	return &cc
}

// traverse realizes one scene node under parent and recurses into its
// children. Every error is soft: a prim that cannot be realized becomes
// a bare container so the rest of the tree survives.
func (s *Stage) traverse(sn *sceneNode, parent *core.Node, ctx *travCtx) {
	p := sn.pr

	node, local, timed := s.emitTransform(p, ctx.time)
	parent.Add(node)
	if timed {
		s.register(node, p, animTransform)
	}
	sub := ctx.with(local)

	switch sn.typeName {
	case "Mesh":
		s.emitMesh(sn, node, sub)
	case "Points":
		s.emitPoints(p, node, sub)
	case "BasisCurves":
		s.emitCurves(p, node, sub)
	case "PointInstancer":
		s.emitInstancer(sn, node, sub)
		return // prototypes under an instancer are not plain children
	case "Skeleton":
		s.emitSkeleton(p, node)
	case "DistantLight", "SphereLight", "DomeLight", "RectLight":
		s.emitLight(p, node)
	case "Material", "Shader", "NodeGraph", "GeomSubset", "SkelAnimation":
		// Consumed by the shading resolver or the skeleton; nothing to
		// draw, and no children worth visiting either.
		return
	case "Camera", "Scope", "Xform", "SkelRoot", "":
		// Plain container. Camera navigation is the host application's
		// business.
	default:
		s.log.Debug("unhandled schema type", "type", sn.typeName, "prim", string(p.Path))
	}

	for _, c := range sn.children {
		s.traverse(c, node, sub)
	}
}

// register notes an animated output node for per-frame re-evaluation.
func (s *Stage) register(node *core.Node, p *prim.Prim, kind animKind) {
	s.registry = append(s.registry, animEntry{node: node, pr: p, kind: kind})
}

// configurePlayback derives the time range from root-layer metadata,
// falling back to the span of authored samples.
func (s *Stage) configurePlayback() {
	lo, hi := 0.0, 0.0
	if v, ok := s.root.Meta["startTimeCode"].(float64); ok {
		lo = v
		hi = lo
	}
	if v, ok := s.root.Meta["endTimeCode"].(float64); ok {
		hi = v
	}
	if hi <= lo {
		if l, h, ok := sample.TimeRange(s.root); ok {
			lo, hi = l, h
		}
	}
	fps := s.fps
	if v, ok := s.root.Meta["timeCodesPerSecond"].(float64); ok && v > 0 {
		fps = v
	}
	s.playback.setRange(lo, hi, fps)
}
