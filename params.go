// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/dof/internal/mathx"
)

// ErrInvalidParams is returned when optical parameters violate their invariants.
var ErrInvalidParams = errors.New("dof: invalid optical parameters")

// minSeparation is the smallest distance (in scene units) tolerated between
// the focus distance and the image distance. Closer values make the thin
// lens equation ill-conditioned.
const minSeparation = 1e-4

// OpticalParams are the user-facing lens parameters.
//
// Distances use scene units (meters by convention). The JSON names match the
// historical parameter archive so saved presets stay readable.
type OpticalParams struct {
	// FocusDistance is the distance from the lens to the plane in focus.
	FocusDistance float32 `json:"focusZ"`

	// ImageDistance is the distance from the lens to the image plane.
	ImageDistance float32 `json:"imageDistance"`

	// FStops is the current aperture number N.
	FStops float32 `json:"fStops"`

	// FStopsMin and FStopsMax bound the aperture range. At FStopsMin the
	// aperture is circular, at FStopsMax it is a fully formed polygon.
	FStopsMin float32 `json:"fStopsMin"`
	FStopsMax float32 `json:"fStopsMax"`

	// BokehShape is the number of aperture blades (polygon sides), >= 3.
	BokehShape int `json:"bokehShape"`

	// RotateBokehMax is the polygon rotation in radians reached at FStopsMax.
	RotateBokehMax float32 `json:"rotateBokehMax"`

	// BlendFactor fades between the unmodified input (0) and the full effect (1).
	BlendFactor float32 `json:"blendFactor"`
}

// DefaultOpticalParams returns the parameters of a 50mm lens focused at 3.3m.
func DefaultOpticalParams() OpticalParams {
	return OpticalParams{
		FocusDistance:  3.3,
		ImageDistance:  0.05,
		FStops:         2.2,
		FStopsMin:      1.6,
		FStopsMax:      5.6,
		BokehShape:     7,
		RotateBokehMax: math.Pi / 3,
		BlendFactor:    1,
	}
}

// Validate checks the parameter invariants.
func (p OpticalParams) Validate() error {
	for _, f := range []struct {
		name string
		v    float32
	}{
		{"focusZ", p.FocusDistance},
		{"imageDistance", p.ImageDistance},
		{"fStops", p.FStops},
		{"fStopsMin", p.FStopsMin},
		{"fStopsMax", p.FStopsMax},
		{"rotateBokehMax", p.RotateBokehMax},
		{"blendFactor", p.BlendFactor},
	} {
		if !mathx.IsFinite(f.v) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
	}

	switch {
	case p.FocusDistance <= 0:
		return fmt.Errorf("%w: focus distance %v must be positive", ErrInvalidParams, p.FocusDistance)
	case p.ImageDistance <= 0:
		return fmt.Errorf("%w: image distance %v must be positive", ErrInvalidParams, p.ImageDistance)
	case mathx.NearlyEqual(p.FocusDistance, p.ImageDistance, minSeparation):
		return fmt.Errorf("%w: focus distance %v too close to image distance %v",
			ErrInvalidParams, p.FocusDistance, p.ImageDistance)
	case p.FStops <= 0:
		return fmt.Errorf("%w: f-stops %v must be positive", ErrInvalidParams, p.FStops)
	case p.FStopsMin <= 0 || p.FStopsMin >= p.FStopsMax:
		return fmt.Errorf("%w: f-stop range [%v, %v] is empty", ErrInvalidParams, p.FStopsMin, p.FStopsMax)
	case p.BokehShape < 3:
		return fmt.Errorf("%w: bokeh shape %d needs at least 3 blades", ErrInvalidParams, p.BokehShape)
	case p.BlendFactor < 0 || p.BlendFactor > 1:
		return fmt.Errorf("%w: blend factor %v outside [0, 1]", ErrInvalidParams, p.BlendFactor)
	}
	return nil
}

// shapeKey extracts the fields the bokeh tap table depends on.
func (p OpticalParams) shapeKey() bokehKey {
	return bokehKey{
		fStops:         p.FStops,
		fStopsMin:      p.FStopsMin,
		fStopsMax:      p.FStopsMax,
		bokehShape:     p.BokehShape,
		rotateBokehMax: p.RotateBokehMax,
	}
}

// Params returns a copy of the current parameters.
func (d *DepthOfField) Params() OpticalParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// SetParams replaces all parameters after validating them.
// The bokeh table is marked dirty if any shape-affecting field changed.
func (d *DepthOfField) SetParams(p OpticalParams) error {
	return d.update(func(q *OpticalParams) { *q = p })
}

// SetFocusDistance sets the distance of the plane in focus.
func (d *DepthOfField) SetFocusDistance(v float32) error {
	return d.update(func(q *OpticalParams) { q.FocusDistance = v })
}

// SetImageDistance sets the lens to image plane distance.
func (d *DepthOfField) SetImageDistance(v float32) error {
	return d.update(func(q *OpticalParams) { q.ImageDistance = v })
}

// SetFStops sets the aperture number.
func (d *DepthOfField) SetFStops(v float32) error {
	return d.update(func(q *OpticalParams) { q.FStops = v })
}

// SetFStopRange sets the aperture range used to morph the bokeh shape.
func (d *DepthOfField) SetFStopRange(lo, hi float32) error {
	return d.update(func(q *OpticalParams) { q.FStopsMin, q.FStopsMax = lo, hi })
}

// SetBokehShape sets the number of aperture blades.
func (d *DepthOfField) SetBokehShape(n int) error {
	return d.update(func(q *OpticalParams) { q.BokehShape = n })
}

// SetRotateBokehMax sets the polygon rotation reached at the maximum f-stop.
func (d *DepthOfField) SetRotateBokehMax(v float32) error {
	return d.update(func(q *OpticalParams) { q.RotateBokehMax = v })
}

// SetBlendFactor sets the effect strength in [0, 1].
func (d *DepthOfField) SetBlendFactor(v float32) error {
	return d.update(func(q *OpticalParams) { q.BlendFactor = v })
}

// update applies mutate to a copy of the parameters and commits it only if
// the result is valid.
func (d *DepthOfField) update(mutate func(*OpticalParams)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.params
	mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	d.commitLocked(next)
	return nil
}

// commitLocked stores validated parameters. d.mu must be held.
func (d *DepthOfField) commitLocked(next OpticalParams) {
	if next.shapeKey() != d.params.shapeKey() {
		d.recalcBokeh = true
	}
	d.params = next
}
