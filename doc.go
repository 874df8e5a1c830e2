// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package dof implements a physically based depth-of-field post effect.
//
// # Overview
//
// Given a rendered color image, its depth buffer and the lens of a camera,
// a DepthOfField produces one composited image that simulates defocus blur
// with shaped bokeh. The effect runs as a fixed sequence of passes:
//
//  1. coc: signed circle of confusion per pixel from depth
//  2. downsample: half resolution color and CoC
//  3. tileMinMax: conservative CoC bound per 8x8 tile neighborhood
//  4. nearCoCBlur: softened near field bound
//  5. bokeh: 48 tap scatter-as-gather convolution of near and far fields
//  6. fill: normalization and hole filling
//  7. composite: Catmull-Rom upsample and blend over the input
//
// # Quick Start
//
//	d, err := dof.New(1920, 1080, dof.NullDeviceHandle{})
//	if err != nil {
//	    return err
//	}
//	defer d.Close()
//
//	cam := dof.PerspectiveCamera{Near: 0.1, Far: 100, FovYRad: 0.8, Aspect: 16.0 / 9}
//	if err := d.ApplyEffect(cam, color, depth, out); err != nil {
//	    return err
//	}
//
// # GPU Hosts
//
// Every pass is a Program carrying a WGSL compute shader and a CPU kernel
// producing the same result. When New receives a host whose Device is not
// nil the shaders are compiled to SPIR-V so the host can bind them. The CPU
// kernels run each pass over row bands in parallel, with a full barrier
// between passes.
//
// # Thread Safety
//
// ApplyEffect and Resize must be called from one goroutine at a time.
// Parameter setters may be called concurrently from a debug UI goroutine.
package dof
