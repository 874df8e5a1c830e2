// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/dof/internal/mathx"
)

// maxCoCWidthFraction caps the CoC radius at 2% of the frame width.
// Larger radii cost quadratically more in the gather and are visually
// indistinguishable from a strong blur.
const maxCoCWidthFraction = 0.02

// degenerateEps guards the denominators of the thin lens equation.
const degenerateEps = 1e-6

// Camera exposes the projection terms needed to map device depth to CoC.
type Camera interface {
	// NearPlane returns the near clip plane distance (> 0).
	NearPlane() float32
	// FarPlane returns the far clip plane distance (> NearPlane).
	FarPlane() float32
	// FovY returns the vertical field of view in radians.
	FovY() float32
}

// PerspectiveCamera is a plain symmetric perspective camera.
type PerspectiveCamera struct {
	Near    float32
	Far     float32
	FovYRad float32
	Aspect  float32
}

// NearPlane implements Camera.
func (c PerspectiveCamera) NearPlane() float32 { return c.Near }

// FarPlane implements Camera.
func (c PerspectiveCamera) FarPlane() float32 { return c.Far }

// FovY implements Camera.
func (c PerspectiveCamera) FovY() float32 { return c.FovYRad }

// Projection returns the OpenGL style projection matrix (row-major,
// clip-space z in [-1, 1]) whose depth mapping ClipInfo inverts.
func (c PerspectiveCamera) Projection() f32.Mat4 {
	t := float32(1 / math.Tan(float64(c.FovYRad)/2))
	aspect := c.Aspect
	if aspect == 0 {
		aspect = 1
	}
	n, f := c.Near, c.Far
	return f32.Mat4{
		t / aspect, 0, 0, 0,
		0, t, 0, 0,
		0, 0, -(f + n) / (f - n), -2 * f * n / (f - n),
		0, 0, -1, 0,
	}
}

// ClipInfo returns (2nf, f-n, f+n) for a camera. Linear depth for a device
// depth d in [0, 1] is ClipInfo[0] / (ClipInfo[2] - (2d-1)*ClipInfo[1]).
func ClipInfo(cam Camera) f32.Vec3 {
	n, f := cam.NearPlane(), cam.FarPlane()
	return f32.Vec3{2 * n * f, f - n, f + n}
}

// LinearDepth converts a device depth in [0, 1] to a view-space distance.
func LinearDepth(d float32, clip f32.Vec3) float32 {
	return clip[0] / (clip[2] - (2*d-1)*clip[1])
}

// DeviceDepth converts a view-space distance to device depth in [0, 1].
// It is the inverse of LinearDepth.
func DeviceDepth(z float32, clip f32.Vec3) float32 {
	ndc := (clip[2] - clip[0]/z) / clip[1]
	return (ndc + 1) / 2
}

// CoCParams are the per-frame terms of the signed circle of confusion.
//
// For device depth d the normalized CoC is
//
//	clamp(Scale*DepthTerm(d) + Bias, -1, 1)
//
// where DepthTerm(d) is the inverse linear depth 1/z. Positive values are
// in front of the focus plane (near field), negative values behind it (far
// field). A magnitude of 1 corresponds to MaxRadius full-resolution pixels.
type CoCParams struct {
	Scale float32
	Bias  float32

	// MaxRadius is the largest CoC radius in full-resolution pixels.
	MaxRadius float32

	// Clip holds the camera terms used by DepthTerm, see ClipInfo.
	Clip f32.Vec3

	// Degenerate is set when the configuration could not produce a finite
	// CoC. Scale and Bias are then zero, which renders no blur.
	Degenerate bool
}

// DepthTerm returns 1/z for device depth d.
func (c CoCParams) DepthTerm(d float32) float32 {
	if c.Clip[0] == 0 {
		return 0
	}
	return (c.Clip[2] - (2*d-1)*c.Clip[1]) / c.Clip[0]
}

// CoC returns the normalized signed circle of confusion for device depth d.
func (c CoCParams) CoC(d float32) float32 {
	v := c.Scale*c.DepthTerm(d) + c.Bias
	if !mathx.IsFinite(v) {
		return 0
	}
	return mathx.Clamp(v, -1, 1)
}

// RadiusPixels returns the signed CoC radius in full-resolution pixels.
func (c CoCParams) RadiusPixels(d float32) float32 {
	return c.CoC(d) * c.MaxRadius
}

// ComputeCoCParams derives the per-frame CoC terms from the lens, the camera
// and the full output resolution.
//
// With focal length F = v*S/(v+S) (thin lens, v = image distance,
// S = focus distance) and aperture diameter A = F/N, the CoC radius on the
// sensor at distance z is
//
//	c(z) = A*F*(S - z) / (2*z*(S - F)) = k/z - k/S,  k = A*F*S / (2*(S - F))
//
// which is converted to pixels through the sensor height 2*v*tan(fovY/2)
// and normalized by the maximum radius reached between the clip planes.
// Degenerate inputs yield a zero CoC instead of non-finite values.
func ComputeCoCParams(p OpticalParams, cam Camera, width, height int) CoCParams {
	if cam == nil || width <= 0 || height <= 0 {
		return CoCParams{Degenerate: true}
	}

	n := float64(cam.NearPlane())
	f := float64(cam.FarPlane())
	fov := float64(cam.FovY())
	clip := ClipInfo(cam)
	if !(n > 0) || !(f > n) || !(fov > 0 && fov < math.Pi) {
		return CoCParams{Clip: clip, Degenerate: true}
	}

	N := float64(p.FStops)
	v := float64(p.ImageDistance)
	S := float64(p.FocusDistance)
	if !(N > 0) || !(v > 0) || !(S > 0) ||
		math.Abs(v+S) < degenerateEps || math.Abs(S-v) < minSeparation {
		return CoCParams{Clip: clip, Degenerate: true}
	}

	F := v * S / (v + S)
	A := F / N
	if math.Abs(S-F) < degenerateEps {
		return CoCParams{Clip: clip, Degenerate: true}
	}
	k := A * F * S / (2 * (S - F))

	sensorHeight := 2 * v * math.Tan(fov/2)
	pixelsPerUnit := float64(height) / sensorHeight

	radiusAt := func(z float64) float64 { return math.Abs(k/z-k/S) * pixelsPerUnit }
	maxRadius := math.Max(radiusAt(n), radiusAt(f))
	maxRadius = math.Min(maxRadius, float64(width)*maxCoCWidthFraction)
	maxRadius = math.Max(maxRadius, 1)

	out := CoCParams{
		Scale:     float32(k * pixelsPerUnit / maxRadius),
		Bias:      float32(-k / S * pixelsPerUnit / maxRadius),
		MaxRadius: float32(maxRadius),
		Clip:      clip,
	}
	if !mathx.IsFinite(out.Scale) || !mathx.IsFinite(out.Bias) || !mathx.IsFinite(out.MaxRadius) {
		return CoCParams{Clip: clip, Degenerate: true}
	}
	return out
}
