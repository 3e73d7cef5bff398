// Package skin builds bone hierarchies and per-vertex skinning
// attributes from authored skeleton data.
package skin

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Skeleton is an ordered bone list. Joint names are slash-delimited
// paths; a joint's parent is the bone whose name equals the joint name
// with its last segment removed.
type Skeleton struct {
	Joints  []string // natural bone order, as authored
	Parents []int    // -1 for roots

	Rest        []mgl32.Mat4 // local rest transform per bone
	Bind        []mgl32.Mat4 // world-space bind transform per bone
	InverseBind []mgl32.Mat4

	byName map[string]int
}

// Build creates a skeleton from joint paths and per-joint bind/rest
// transforms. bind and rest may be shorter than joints; missing entries
// fall back to identity.
func Build(joints []string, bind, rest []mgl32.Mat4) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, fmt.Errorf("skin: skeleton has no joints")
	}
	s := &Skeleton{
		Joints:      joints,
		Parents:     make([]int, len(joints)),
		Rest:        make([]mgl32.Mat4, len(joints)),
		Bind:        make([]mgl32.Mat4, len(joints)),
		InverseBind: make([]mgl32.Mat4, len(joints)),
		byName:      make(map[string]int, len(joints)),
	}
	for i, j := range joints {
		if _, dup := s.byName[j]; dup {
			return nil, fmt.Errorf("skin: duplicate joint %q", j)
		}
		s.byName[j] = i
	}
	for i, j := range joints {
		s.Parents[i] = -1
		if k := strings.LastIndexByte(j, '/'); k >= 0 {
			if p, ok := s.byName[j[:k]]; ok {
				s.Parents[i] = p
			}
		}
		s.Rest[i] = mgl32.Ident4()
		s.Bind[i] = mgl32.Ident4()
		if i < len(rest) {
			s.Rest[i] = rest[i]
		}
		if i < len(bind) {
			s.Bind[i] = bind[i]
		}
		s.InverseBind[i] = s.Bind[i].Inv()
	}
	return s, nil
}

// JointIndex returns the bone index for a joint path, or -1.
func (s *Skeleton) JointIndex(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

// Remap maps an authored mesh joint order onto the skeleton's natural
// bone order. Returns nil when the orders already agree, so callers can
// skip the remap entirely. Unknown joints map to -1.
func (s *Skeleton) Remap(meshJoints []string) []int {
	if len(meshJoints) == 0 {
		return nil
	}
	same := len(meshJoints) == len(s.Joints)
	remap := make([]int, len(meshJoints))
	for i, j := range meshJoints {
		remap[i] = s.JointIndex(j)
		if remap[i] != i {
			same = false
		}
	}
	if same {
		return nil
	}
	return remap
}

// WorldRest returns world-space rest transforms by chaining each bone's
// local rest transform with its parent's. Parents precede children in
// authored joint lists; out-of-order hierarchies resolve iteratively.
func (s *Skeleton) WorldRest() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(s.Joints))
	done := make([]bool, len(s.Joints))
	var resolve func(i int) mgl32.Mat4
	resolve = func(i int) mgl32.Mat4 {
		if done[i] {
			return out[i]
		}
		done[i] = true
		out[i] = s.Rest[i]
		if p := s.Parents[i]; p >= 0 && p != i {
			out[i] = resolve(p).Mul4(s.Rest[i])
		}
		return out[i]
	}
	for i := range s.Joints {
		resolve(i)
	}
	return out
}
