package core

import (
	"math"
)

// Camera is a perspective camera looking at Target.
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	// FovY is the vertical field of view in degrees.
	FovY   float64
	Aspect float64
	Near   float64
	Far    float64
}

// DefaultCamera is the initial overview of the system.
func DefaultCamera() Camera {
	return Camera{
		Position: Vec3{Y: 100, Z: 120},
		Up:       Vec3{Y: 1},
		FovY:     75,
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      1000,
	}
}

// MouseAction is what a pointer button does while dragged.
type MouseAction int

const (
	ActionNone MouseAction = iota
	ActionRotate
	ActionDolly
	ActionPan
)

// MouseBindings maps pointer buttons to actions.
type MouseBindings struct {
	Left   MouseAction
	Middle MouseAction
	Right  MouseAction
}

// DefaultMouseBindings rotates with left, dollies with middle and pans with right.
var DefaultMouseBindings = MouseBindings{Left: ActionRotate, Middle: ActionDolly, Right: ActionPan}

// OrbitControllerConfig bounds and tunes the orbit controller.
type OrbitControllerConfig struct {
	MinDistance   float64
	MaxDistance   float64
	EnableDamping bool
	DampingFactor float64
	RotateSpeed   float64
	ZoomSpeed     float64
	PanSpeed      float64
	// ScreenSpacePanning pans in the view plane; when false panning stays
	// parallel to the orbital plane.
	ScreenSpacePanning bool
	Bindings           MouseBindings
}

// DefaultOrbitControllerConfig returns the reference controller tuning.
func DefaultOrbitControllerConfig() OrbitControllerConfig {
	return OrbitControllerConfig{
		MinDistance:   1,
		MaxDistance:   500,
		EnableDamping: true,
		DampingFactor: 0.25,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		Bindings:      DefaultMouseBindings,
	}
}

// PointerInput is one frame's worth of pointer and window events.
type PointerInput struct {
	Left, Middle, Right bool
	// DX and DY are the pointer movement in pixels since the last frame.
	DX, DY float64
	// Wheel is positive when scrolling away from the user (zoom in).
	Wheel float64

	Resized       bool
	Width, Height int
}

const polarEpsilon = 1e-6

// OrbitController orbits, dollies and pans a camera around its target with
// optional inertia.
type OrbitController struct {
	camera Camera
	cfg    OrbitControllerConfig

	width, height float64

	deltaTheta float64
	deltaPhi   float64
	scale      float64
	pan        Vec3
}

// NewOrbitController wraps cam. A non-positive MaxDistance, a MinDistance
// outside [0, MaxDistance], a DampingFactor outside (0, 1], and zero speeds
// or bindings take the defaults. MinDistance 0 and EnableDamping false are
// kept as given.
func NewOrbitController(cam Camera, cfg OrbitControllerConfig) *OrbitController {
	def := DefaultOrbitControllerConfig()
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = def.MaxDistance
	}
	if cfg.MinDistance < 0 || cfg.MinDistance > cfg.MaxDistance {
		cfg.MinDistance = def.MinDistance
	}
	if cfg.DampingFactor <= 0 || cfg.DampingFactor > 1 {
		cfg.DampingFactor = def.DampingFactor
	}
	if cfg.RotateSpeed == 0 {
		cfg.RotateSpeed = def.RotateSpeed
	}
	if cfg.ZoomSpeed == 0 {
		cfg.ZoomSpeed = def.ZoomSpeed
	}
	if cfg.PanSpeed == 0 {
		cfg.PanSpeed = def.PanSpeed
	}
	if cfg.Bindings == (MouseBindings{}) {
		cfg.Bindings = def.Bindings
	}
	if cam.Up == (Vec3{}) {
		cam.Up = Vec3{Y: 1}
	}
	c := &OrbitController{camera: cam, cfg: cfg, scale: 1, width: 1280, height: 720}
	c.clampDistance()
	return c
}

// Camera returns a copy of the current camera.
func (c *OrbitController) Camera() Camera { return c.camera }

// CameraPosition implements CameraSource.
func (c *OrbitController) CameraPosition() Vec3 { return c.camera.Position }

// Config returns the controller tuning.
func (c *OrbitController) Config() OrbitControllerConfig { return c.cfg }

// Resize updates the viewport and the camera aspect ratio.
func (c *OrbitController) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.width = float64(width)
	c.height = float64(height)
	c.camera.Aspect = c.width / c.height
}

// Rotate queues an orbit by a pointer drag of (dx, dy) pixels.
func (c *OrbitController) Rotate(dx, dy float64) {
	c.deltaTheta -= 2 * math.Pi * dx / c.height * c.cfg.RotateSpeed
	c.deltaPhi -= 2 * math.Pi * dy / c.height * c.cfg.RotateSpeed
}

// Dolly scales the distance to the target; factors below 1 move closer.
func (c *OrbitController) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	c.scale *= factor
}

func (c *OrbitController) zoomScale() float64 {
	return math.Pow(0.95, c.cfg.ZoomSpeed)
}

// Pan queues a translation of camera and target by a drag of (dx, dy) pixels.
func (c *OrbitController) Pan(dx, dy float64) {
	offset := c.camera.Position.Sub(c.camera.Target)
	targetDistance := offset.Norm() * math.Tan(c.camera.FovY/2*math.Pi/180)

	forward, err := c.camera.Target.Sub(c.camera.Position).Normalize()
	if err != nil {
		return
	}
	right, err := forward.Cross(c.camera.Up).Normalize()
	if err != nil {
		return
	}

	var up Vec3
	if c.cfg.ScreenSpacePanning {
		up = right.Cross(forward)
	} else {
		up = c.camera.Up.Cross(right)
	}

	left := 2 * dx * targetDistance / c.height * c.cfg.PanSpeed
	upDist := 2 * dy * targetDistance / c.height * c.cfg.PanSpeed
	c.pan = c.pan.Add(right.Scale(-left)).Add(up.Scale(upDist))
}

// HandleInput applies one frame of pointer and window events.
func (c *OrbitController) HandleInput(in PointerInput) {
	if in.Resized {
		c.Resize(in.Width, in.Height)
	}
	if in.DX != 0 || in.DY != 0 {
		switch {
		case in.Left:
			c.drag(c.cfg.Bindings.Left, in.DX, in.DY)
		case in.Middle:
			c.drag(c.cfg.Bindings.Middle, in.DX, in.DY)
		case in.Right:
			c.drag(c.cfg.Bindings.Right, in.DX, in.DY)
		}
	}
	switch {
	case in.Wheel > 0:
		c.Dolly(c.zoomScale())
	case in.Wheel < 0:
		c.Dolly(1 / c.zoomScale())
	}
}

func (c *OrbitController) drag(action MouseAction, dx, dy float64) {
	switch action {
	case ActionRotate:
		c.Rotate(dx, dy)
	case ActionPan:
		c.Pan(dx, dy)
	case ActionDolly:
		switch {
		case dy > 0:
			c.Dolly(1 / c.zoomScale())
		case dy < 0:
			c.Dolly(c.zoomScale())
		}
	}
}

// Update applies queued input to the camera and decays it when damping is
// enabled. It reports whether the camera moved.
func (c *OrbitController) Update() bool {
	before := c.camera.Position

	offset := c.camera.Position.Sub(c.camera.Target)
	radius := offset.Norm()
	theta := math.Atan2(offset.X, offset.Z)
	phi := 0.0
	if radius > 0 {
		phi = math.Acos(Clamp(offset.Y/radius, -1, 1))
	}

	damping := 1.0
	if c.cfg.EnableDamping {
		damping = c.cfg.DampingFactor
	}

	theta += c.deltaTheta * damping
	phi += c.deltaPhi * damping
	phi = Clamp(phi, polarEpsilon, math.Pi-polarEpsilon)

	radius = Clamp(radius*c.scale, c.cfg.MinDistance, c.cfg.MaxDistance)

	c.camera.Target = c.camera.Target.Add(c.pan.Scale(damping))

	sinPhi, cosPhi := math.Sincos(phi)
	sinTheta, cosTheta := math.Sincos(theta)
	offset = Vec3{
		X: radius * sinPhi * sinTheta,
		Y: radius * cosPhi,
		Z: radius * sinPhi * cosTheta,
	}
	c.camera.Position = c.camera.Target.Add(offset)

	if c.cfg.EnableDamping {
		c.deltaTheta *= 1 - damping
		c.deltaPhi *= 1 - damping
		c.pan = c.pan.Scale(1 - damping)
	} else {
		c.deltaTheta, c.deltaPhi, c.pan = 0, 0, Vec3{}
	}
	c.scale = 1

	return c.camera.Position.DistanceTo(before) > 1e-9
}

// Distance returns the current distance between camera and target.
func (c *OrbitController) Distance() float64 {
	return c.camera.Position.DistanceTo(c.camera.Target)
}

func (c *OrbitController) clampDistance() {
	offset := c.camera.Position.Sub(c.camera.Target)
	d := offset.Norm()
	if d == 0 {
		c.camera.Position = c.camera.Target.Add(Vec3{Z: c.cfg.MinDistance})
		return
	}
	clamped := Clamp(d, c.cfg.MinDistance, c.cfg.MaxDistance)
	if clamped != d {
		c.camera.Position = c.camera.Target.Add(offset.Scale(clamped / d))
	}
}
