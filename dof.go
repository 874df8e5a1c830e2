// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/google/uuid"

	"github.com/gogpu/dof/internal/parallel"
	"github.com/gogpu/dof/surface"
)

// ErrResolutionMismatch is returned by ApplyEffect when the images do not
// match the allocated render targets.
var ErrResolutionMismatch = errors.New("dof: resolution mismatch")

// DepthOfField renders the depth-of-field effect for one output resolution.
type DepthOfField struct {
	// mu guards params and the bokeh dirty flag, which a UI goroutine may
	// change while a frame renders.
	mu          sync.Mutex
	params      OpticalParams
	recalcBokeh bool

	// frameMu serializes ApplyEffect, Resize and Close.
	frameMu  sync.Mutex
	taps     BokehTaps
	targets  *TargetPool
	pipeline *pipeline
	dispatch *parallel.Dispatcher
	programs *Programs
	host     gpucontext.DeviceProvider
	closed   bool

	id  uuid.UUID
	log *slog.Logger
}

// New creates a pipeline for a width x height output.
//
// The host provides the GPU device, if any. Pass NullDeviceHandle{} to run
// on the CPU only. New fails if a pass program is missing or does not
// compile, if the initial parameters are invalid, or if the render targets
// cannot be allocated.
func New(width, height int, host gpucontext.DeviceProvider, opts ...Option) (*DepthOfField, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if host == nil {
		host = NullDeviceHandle{}
	}

	params := DefaultOpticalParams()
	if o.params != nil {
		params = *o.params
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	log := o.logger
	if log == nil {
		log = Logger()
	}
	log = log.With("instance", id.String())

	progs := o.programs
	if progs == nil {
		progs = DefaultPrograms()
	} else {
		progs = progs.clone()
	}
	if err := progs.prepare(host); err != nil {
		return nil, err
	}

	dispatch := parallel.NewDispatcher(o.workers)
	pl, err := newPipeline(stageLayout, progs, dispatch, log)
	if err != nil {
		dispatch.Close()
		return nil, err
	}

	d := &DepthOfField{
		params:      params,
		recalcBokeh: true,
		targets:     NewTargetPool(o.framesInFlight),
		pipeline:    pl,
		dispatch:    dispatch,
		programs:    progs,
		host:        host,
		id:          id,
		log:         log,
	}
	if err := d.targets.Resize(width, height); err != nil {
		dispatch.Close()
		return nil, err
	}

	log.Info("dof: pipeline created",
		"width", width, "height", height,
		"gpu", host.Device() != nil,
		"adapter", host.AdapterInfo().Type.String(),
		"workers", dispatch.Workers(),
		"framesInFlight", d.targets.FramesInFlight())
	return d, nil
}

// ID returns the instance identifier attached to every log record.
func (d *DepthOfField) ID() uuid.UUID {
	return d.id
}

// GPU reports whether the host provides a GPU device, in which case the
// pass programs carry compiled SPIR-V.
func (d *DepthOfField) GPU() bool {
	return d.host.Device() != nil
}

// Programs returns the resolved pass programs.
func (d *DepthOfField) Programs() *Programs {
	return d.programs
}

// Size returns the output resolution the targets are allocated for.
func (d *DepthOfField) Size() (width, height int) {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	return d.targets.Size()
}

// Resize reallocates the render targets. Resizing to the current size
// keeps the existing targets. After a failed Resize, ApplyEffect returns
// ErrResolutionMismatch until a later Resize succeeds.
func (d *DepthOfField) Resize(width, height int) error {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: pipeline closed", ErrInvalidResolution)
	}
	if err := d.targets.Resize(width, height); err != nil {
		d.log.Warn("dof: resize failed", "width", width, "height", height, "err", err)
		return err
	}
	return nil
}

// BokehDirty reports whether the tap table will be recomputed on the next
// ApplyEffect.
func (d *DepthOfField) BokehDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recalcBokeh
}

// Taps returns the tap table used by the last ApplyEffect.
func (d *DepthOfField) Taps() BokehTaps {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	return d.taps
}

// ApplyEffect renders the effect of color and depth into out.
//
// color and out must be RGBA32F and depth any format with depth in its
// first channel, all at the size passed to New or the last Resize. Inputs
// are only read. The rgb channels of out are the blurred color and the
// alpha channel is copied from color.
func (d *DepthOfField) ApplyEffect(cam Camera, color, depth, out *surface.Image) error {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()

	if err := d.checkInputs(color, depth, out); err != nil {
		return err
	}

	d.mu.Lock()
	params := d.params
	dirty := d.recalcBokeh
	d.recalcBokeh = false
	d.mu.Unlock()

	if dirty {
		d.taps = cachedBokeh(params)
	}

	w, h := d.targets.Size()
	coc := ComputeCoCParams(params, cam, w, h)
	if coc.Degenerate {
		d.log.Warn("dof: degenerate optics, rendering without blur",
			"focusZ", params.FocusDistance, "imageDistance", params.ImageDistance, "fStops", params.FStops)
	}

	set := d.targets.Next()
	p := newPassParams(color, depth, out, set, coc, d.taps, params.BlendFactor)
	d.pipeline.run(p)
	return nil
}

func (d *DepthOfField) checkInputs(color, depth, out *surface.Image) error {
	if d.closed || !d.targets.Valid() {
		return fmt.Errorf("%w: no render targets allocated", ErrResolutionMismatch)
	}
	if color == nil || depth == nil || out == nil {
		return fmt.Errorf("%w: nil image", ErrResolutionMismatch)
	}
	w, h := d.targets.Size()
	for _, img := range []struct {
		name string
		m    *surface.Image
	}{{"color", color}, {"depth", depth}, {"output", out}} {
		if img.m.Width() != w || img.m.Height() != h {
			return fmt.Errorf("%w: %s is %dx%d, targets are %dx%d",
				ErrResolutionMismatch, img.name, img.m.Width(), img.m.Height(), w, h)
		}
	}
	if color.Format() != surface.FormatRGBA32F || out.Format() != surface.FormatRGBA32F {
		return fmt.Errorf("%w: color and output must be %s, got %s and %s",
			ErrResolutionMismatch, surface.FormatRGBA32F, color.Format(), out.Format())
	}
	if out == color || out == depth {
		return fmt.Errorf("%w: output aliases an input", ErrResolutionMismatch)
	}
	return nil
}

// Close releases the render targets and worker goroutines.
func (d *DepthOfField) Close() {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.targets.Release()
	d.dispatch.Close()
}
