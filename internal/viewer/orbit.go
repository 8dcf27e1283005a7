// Package viewer produces viewer positions for driving planet refinement.
package viewer

import (
	gomath "math"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Orbit places a viewer on a sphere around a planet center.
type Orbit struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // from center, world units
	Pitch    float32 // latitude, radians
	Yaw      float32 // longitude, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
}

// NewOrbit returns an orbit at twice radius over the equator. The
// distance is kept between the surface and ten radii.
func NewOrbit(center math.Vec3, radius float32) *Orbit {
	return &Orbit{
		Center:      center,
		Distance:    2 * radius,
		MinDistance: radius,
		MaxDistance: 10 * radius,
	}
}

// Position returns the viewer position in world space.
func (o *Orbit) Position() math.Vec3 {
	pitch, yaw := float64(o.Pitch), float64(o.Yaw)
	x := o.Distance * float32(gomath.Cos(pitch)*gomath.Cos(yaw))
	y := o.Distance * float32(gomath.Sin(pitch))
	z := o.Distance * float32(gomath.Cos(pitch)*gomath.Sin(yaw))
	return o.Center.Add(math.Vec3{X: x, Y: y, Z: z})
}

// Rotate turns the orbit. Pitch is clamped just short of the poles.
func (o *Orbit) Rotate(dYaw, dPitch float32) {
	const limit = gomath.Pi/2 - 1e-3
	o.Yaw += dYaw
	o.Pitch = math.Clamp(o.Pitch+dPitch, -limit, limit)
}

// Zoom scales the distance by (1 - delta), within the distance limits.
func (o *Orbit) Zoom(delta float32) {
	o.Distance -= delta * o.Distance
	o.Distance = o.clampDistance(o.Distance)
}

// Altitude returns the distance above radius.
func (o *Orbit) Altitude(radius float32) float32 {
	return o.Distance - radius
}

func (o *Orbit) clampDistance(d float32) float32 {
	if o.MinDistance > 0 && d < o.MinDistance {
		d = o.MinDistance
	}
	if o.MaxDistance > 0 && d > o.MaxDistance {
		d = o.MaxDistance
	}
	return d
}

// Descent returns n positions spiralling from the current distance down
// to the final distance over the given number of turns, with the pitch
// sweeping from the current value to pitchEnd. The orbit is left at the
// last position.
func (o *Orbit) Descent(n int, final float32, turns float32, pitchEnd float32) []math.Vec3 {
	if n <= 0 {
		return nil
	}
	final = o.clampDistance(final)
	startDist, startPitch, startYaw := o.Distance, o.Pitch, o.Yaw

	out := make([]math.Vec3, 0, n)
	for i := 0; i < n; i++ {
		t := float32(1)
		if n > 1 {
			t = float32(i) / float32(n-1)
		}
		o.Distance = math.Lerp(startDist, final, t)
		o.Pitch = startPitch
		o.Yaw = startYaw
		o.Rotate(t*turns*2*gomath.Pi, (pitchEnd-startPitch)*t)
		out = append(out, o.Position())
	}
	return out
}
