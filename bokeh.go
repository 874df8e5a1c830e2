// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/dof/internal/cache"
	"github.com/gogpu/dof/internal/mathx"
)

// NumBokehTaps is the number of gather offsets around the center sample.
const NumBokehTaps = 48

// BokehTaps holds the gather offsets in units of the reference ring radius.
// The outermost ring has radius 6 at f = 0.
type BokehTaps [NumBokehTaps]f32.Vec2

// bokehRingRadius is the radius of the outermost reference ring.
const bokehRingRadius = 6

// bokehRings lists the reference rings as (point count, radius).
var bokehRings = [...]struct {
	count  int
	radius float32
}{
	{8, 2},
	{16, 4},
	{24, bokehRingRadius},
}

// bokehReference is the circular tap pattern every table is derived from.
var bokehReference = buildBokehReference()

func buildBokehReference() BokehTaps {
	var ref BokehTaps
	i := 0
	for _, ring := range bokehRings {
		for j := 0; j < ring.count; j++ {
			a := 2 * math.Pi * float64(j) / float64(ring.count)
			ref[i] = f32.Vec2{
				ring.radius * float32(math.Cos(a)),
				ring.radius * float32(math.Sin(a)),
			}
			i++
		}
	}
	return ref
}

// bokehKey identifies a tap table.
type bokehKey struct {
	fStops         float32
	fStopsMin      float32
	fStopsMax      float32
	bokehShape     int
	rotateBokehMax float32
}

func hashBokehKey(k bokehKey) uint64 {
	return cache.Float32sHasher(k.fStops, k.fStopsMin, k.fStopsMax, float32(k.bokehShape), k.rotateBokehMax)
}

// tapCache is shared by every pipeline in the process.
var tapCache = cache.NewSharded[bokehKey, BokehTaps](cache.DefaultCapacity, hashBokehKey)

// ApertureFactor returns how far the aperture is stopped down, from 0 at
// FStopsMin (circular) to 1 at FStopsMax (fully polygonal).
func ApertureFactor(p OpticalParams) float32 {
	span := p.FStopsMax - p.FStopsMin
	if !(span > 0) {
		return 0
	}
	return mathx.Saturate((p.FStops - p.FStopsMin) / span)
}

// RecalcBokeh computes the tap table for p.
//
// Each reference offset at angle θ and radius r is rotated by
// f*RotateBokehMax and pulled onto a regular polygon with BokehShape sides:
//
//	rScale = (cos(π/N) / cos((θ mod 2π/N) - π/N))^f
//
// At f = 0 the pattern stays circular, at f = 1 every tap lies on the
// polygon edge of its ring. The polygon rotates with the taps.
func RecalcBokeh(p OpticalParams) BokehTaps {
	shape := max(p.BokehShape, 3)
	f := float64(ApertureFactor(p))
	rot := f * float64(p.RotateBokehMax)
	if !mathx.IsFinite(rot) {
		rot = 0
	}

	sector := 2 * math.Pi / float64(shape)
	half := sector / 2
	cosHalf := math.Cos(half)

	var taps BokehTaps
	for i, ref := range bokehReference {
		x, y := float64(ref[0]), float64(ref[1])
		r := math.Hypot(x, y)
		theta := math.Atan2(y, x)
		if theta < 0 {
			theta += 2 * math.Pi
		}

		local := math.Mod(theta, sector) - half
		scale := math.Pow(cosHalf/math.Cos(local), f)

		a := theta + rot
		taps[i] = f32.Vec2{
			float32(r * scale * math.Cos(a)),
			float32(r * scale * math.Sin(a)),
		}
	}
	return taps
}

// cachedBokeh returns the memoized table for p.
func cachedBokeh(p OpticalParams) BokehTaps {
	return tapCache.GetOrCreate(p.shapeKey(), func() BokehTaps {
		Logger().Debug("dof: bokeh taps recomputed",
			"fStops", p.FStops, "shape", p.BokehShape, "aperture", ApertureFactor(p))
		return RecalcBokeh(p)
	})
}
