// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"errors"
	"fmt"

	"github.com/gogpu/dof/surface"
)

// ErrInvalidResolution is returned when render targets cannot be allocated
// for the requested size.
var ErrInvalidResolution = errors.New("dof: invalid resolution")

// Slot names one render target of a TargetSet.
type Slot uint8

// Render target slots. Indices are stable across resizes.
const (
	// SlotCoC is the full resolution packed CoC (R = near, G = far).
	SlotCoC Slot = iota

	// SlotColor is the half resolution color.
	SlotColor

	// SlotColorFar is the half resolution color premultiplied by far CoC.
	SlotColorFar

	// SlotNearField holds the near field gather result.
	SlotNearField

	// SlotFarField holds the far field gather result.
	SlotFarField

	// SlotCoCRaw is the half resolution CoC (max near, average far).
	SlotCoCRaw

	// SlotCoCPing and SlotCoCPong alternate as CoC filter targets.
	// SlotCoCPong holds the final near blur after the pipeline runs.
	SlotCoCPing
	SlotCoCPong

	slotCount
)

// slotSpec describes how a slot is allocated.
type slotSpec struct {
	name   string
	format surface.Format
	full   bool
}

var slotSpecs = [slotCount]slotSpec{
	SlotCoC:       {name: "coc", format: surface.FormatRG32F, full: true},
	SlotColor:     {name: "color", format: surface.FormatRGBA32F},
	SlotColorFar:  {name: "colorFar", format: surface.FormatRGBA32F},
	SlotNearField: {name: "nearField", format: surface.FormatRGBA32F},
	SlotFarField:  {name: "farField", format: surface.FormatRGBA32F},
	SlotCoCRaw:    {name: "cocRaw", format: surface.FormatRG32F},
	SlotCoCPing:   {name: "cocPing", format: surface.FormatRG32F},
	SlotCoCPong:   {name: "cocPong", format: surface.FormatRG32F},
}

// String returns the slot name.
func (s Slot) String() string {
	if s >= slotCount {
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
	return slotSpecs[s].name
}

// Format returns the surface format of the slot.
func (s Slot) Format() surface.Format {
	if s >= slotCount {
		return surface.Format(255)
	}
	return slotSpecs[s].format
}

// TargetSet is one complete set of intermediate images for a frame.
type TargetSet struct {
	images [slotCount]*surface.Image
}

// Image returns the image bound to slot s.
func (t *TargetSet) Image(s Slot) *surface.Image {
	if s >= slotCount {
		return nil
	}
	return t.images[s]
}

// TargetPool owns the render targets of a pipeline.
//
// It keeps framesInFlight complete target sets and hands them out
// round-robin so a host may still read the previous frame's targets while
// the next frame is rendered.
type TargetPool struct {
	pool   *surface.Pool
	sets   []*TargetSet
	next   int
	width  int
	height int
	valid  bool
}

// NewTargetPool creates an empty pool keeping framesInFlight target sets.
func NewTargetPool(framesInFlight int) *TargetPool {
	framesInFlight = max(framesInFlight, 1)
	return &TargetPool{
		pool: surface.NewPool(framesInFlight * int(slotCount)),
		sets: make([]*TargetSet, framesInFlight),
	}
}

// HalfSize returns the half resolution for a full resolution size.
func HalfSize(width, height int) (int, int) {
	return width / 2, height / 2
}

// Resize (re)allocates every slot for a width x height output.
//
// Resizing to the current size is a no-op and keeps the same images.
// On failure the pool is left invalid and ApplyEffect reports a mismatch
// until a later Resize succeeds.
func (p *TargetPool) Resize(width, height int) error {
	if p.valid && width == p.width && height == p.height {
		return nil
	}
	if width < 2 || height < 2 {
		p.releaseAll()
		return fmt.Errorf("%w: %dx%d (minimum 2x2)", ErrInvalidResolution, width, height)
	}

	p.releaseAll()
	hw, hh := HalfSize(width, height)
	for i := range p.sets {
		set := &TargetSet{}
		for s, spec := range slotSpecs {
			w, h := hw, hh
			if spec.full {
				w, h = width, height
			}
			img, err := p.pool.Get(w, h, spec.format)
			if err != nil {
				p.sets[i] = set
				p.releaseAll()
				return fmt.Errorf("%w: allocating %s %dx%d: %w",
					ErrInvalidResolution, Slot(s), w, h, err)
			}
			set.images[s] = img
		}
		p.sets[i] = set
	}

	p.width, p.height = width, height
	p.next = 0
	p.valid = true
	Logger().Debug("dof: render targets allocated",
		"width", width, "height", height, "halfWidth", hw, "halfHeight", hh, "sets", len(p.sets))
	return nil
}

// Next returns the target set for the next frame.
func (p *TargetPool) Next() *TargetSet {
	if !p.valid {
		return nil
	}
	set := p.sets[p.next]
	p.next = (p.next + 1) % len(p.sets)
	return set
}

// Size returns the full resolution the pool is allocated for.
func (p *TargetPool) Size() (width, height int) {
	return p.width, p.height
}

// Valid reports whether the last Resize succeeded.
func (p *TargetPool) Valid() bool {
	return p.valid
}

// FramesInFlight returns the number of target sets.
func (p *TargetPool) FramesInFlight() int {
	return len(p.sets)
}

// Release returns every image to the underlying surface pool.
func (p *TargetPool) Release() {
	p.releaseAll()
}

func (p *TargetPool) releaseAll() {
	for i, set := range p.sets {
		if set == nil {
			continue
		}
		for s, img := range set.images {
			p.pool.Put(img)
			set.images[s] = nil
		}
		p.sets[i] = nil
	}
	p.valid = false
	p.width, p.height = 0, 0
}
