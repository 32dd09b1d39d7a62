package core

import (
	"image"
	"math"

	"github.com/signalsfoundry/orrery/model"
)

// Euler holds rotations in radians, applied Z, then Y, then X.
type Euler struct {
	X, Y, Z float64
}

// Transform is a node's placement relative to its parent.
type Transform struct {
	Position Vec3
	Rotation Euler
	Scale    Vec3
}

// IdentityTransform has unit scale and no rotation or offset.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{X: 1, Y: 1, Z: 1}}
}

// Apply maps a point from this node's local frame into its parent's frame.
func (t Transform) Apply(p Vec3) Vec3 {
	p = p.Mul(t.Scale)
	p = t.Rotation.Rotate(p)
	return p.Add(t.Position)
}

// Rotate applies the Euler rotation to v.
func (e Euler) Rotate(v Vec3) Vec3 {
	if e.Z != 0 {
		s, c := math.Sincos(e.Z)
		v = Vec3{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c, Z: v.Z}
	}
	if e.Y != 0 {
		s, c := math.Sincos(e.Y)
		v = Vec3{X: v.X*c + v.Z*s, Y: v.Y, Z: -v.X*s + v.Z*c}
	}
	if e.X != 0 {
		s, c := math.Sincos(e.X)
		v = Vec3{X: v.X, Y: v.Y*c - v.Z*s, Z: v.Y*s + v.Z*c}
	}
	return v
}

// Geometry is the drawable shape attached to a node.
type Geometry interface {
	geometry()
}

// SphereGeometry is a UV sphere centred on the node origin.
type SphereGeometry struct {
	Radius   float64
	Segments int
}

// RingGeometry is a flat annulus in the node's XY plane.
type RingGeometry struct {
	Inner    float64
	Outer    float64
	Segments int
}

// SpriteGeometry is a camera-facing text billboard. Its world size comes
// from the node scale.
type SpriteGeometry struct {
	Text string
}

// PointsGeometry is a static cloud of small spheres.
type PointsGeometry struct {
	Points []Vec3
	Size   float64
}

func (SphereGeometry) geometry() {}
func (RingGeometry) geometry()   {}
func (SpriteGeometry) geometry() {}
func (PointsGeometry) geometry() {}

// Shading selects how a material reacts to lights.
type Shading int

const (
	ShadingUnlit Shading = iota
	ShadingLit
	ShadingGlow
)

// Side selects which faces are drawn.
type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// Material describes the appearance of a mesh.
type Material struct {
	Shading     Shading
	Color       model.Color
	Map         *Texture
	Opacity     float64
	Transparent bool
	Side        Side
	Additive    bool
	DepthTest   bool

	// Emissive is refreshed per frame by the animator.
	Emissive float64
	// CameraPos is the glow shader's camera uniform.
	CameraPos Vec3
}

// Textured reports whether the material currently has a usable image.
func (m *Material) Textured() bool {
	return m != nil && m.Map != nil && m.Map.State() == TextureReady
}

// TextureState is the lifecycle of an asynchronously loaded image.
type TextureState int

const (
	TexturePending TextureState = iota
	TextureReady
	TextureUnavailable
)

// Texture is a handle to an image that may still be loading. Materials
// fall back to their base colour until the handle resolves.
type Texture struct {
	Path string

	state TextureState
	img   image.Image
	err   error
}

// NewTexture returns a pending handle for path.
func NewTexture(path string) *Texture {
	return &Texture{Path: path}
}

func (t *Texture) State() TextureState { return t.state }
func (t *Texture) Image() image.Image  { return t.img }
func (t *Texture) Err() error          { return t.err }

// Resolve binds decoded image data to the handle.
func (t *Texture) Resolve(img image.Image) {
	t.img = img
	t.err = nil
	t.state = TextureReady
}

// Fail marks the handle unavailable; the material keeps its base colour.
func (t *Texture) Fail(err error) {
	t.img = nil
	t.err = err
	t.state = TextureUnavailable
}

// Light is a light source attached to a node.
type Light interface {
	light()
}

// PointLight radiates from the node origin up to Range.
type PointLight struct {
	Color     model.Color
	Intensity float64
	Range     float64
}

// AmbientLight lights every lit surface uniformly.
type AmbientLight struct {
	Color model.Color
}

func (PointLight) light()   {}
func (AmbientLight) light() {}

// Node is a scene-graph element. A node with neither geometry nor light is
// a group or pivot.
type Node struct {
	Name      string
	Transform Transform
	Geometry  Geometry
	Material  *Material
	Light     Light
	Visible   bool

	parent   *Node
	children []*Node
}

// NewNode returns an empty, visible group node.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: IdentityTransform(), Visible: true}
}

// NewMesh returns a visible node carrying geometry and material.
func NewMesh(name string, g Geometry, m *Material) *Node {
	n := NewNode(name)
	n.Geometry = g
	n.Material = m
	return n
}

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }

// LocalToWorld maps a point in n's local frame to world coordinates by
// composing every ancestor transform.
func (n *Node) LocalToWorld(p Vec3) Vec3 {
	for m := n; m != nil; m = m.parent {
		p = m.Transform.Apply(p)
	}
	return p
}

// WorldPosition returns the world coordinates of n's origin.
func (n *Node) WorldPosition() Vec3 {
	return n.LocalToWorld(Vec3{})
}

// WorldScale returns the accumulated scale along each axis.
func (n *Node) WorldScale() Vec3 {
	s := Vec3{X: 1, Y: 1, Z: 1}
	for m := n; m != nil; m = m.parent {
		s = s.Mul(m.Transform.Scale)
	}
	return s
}

// WorldYaw returns the accumulated rotation about Y.
func (n *Node) WorldYaw() float64 {
	yaw := 0.0
	for m := n; m != nil; m = m.parent {
		yaw += m.Transform.Rotation.Y
	}
	return yaw
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips that node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		c.walk(fn, depth+1)
	}
}

// Find returns the first descendant (or n itself) with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(node *Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.Name == name {
			found = node
			return false
		}
		return true
	})
	return found
}
