// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package color converts between sRGB encoded file values and the linear
// light the pipeline works in.
//
// 16-bit decodes go through a lookup table built on first use, replacing
// a math.Pow call per channel.
package color

import (
	"math"
	"sync"
)

// SRGBToLinear decodes one sRGB channel value in [0, 1].
func SRGBToLinear(s float32) float32 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return float32(math.Pow(float64(s+0.055)/1.055, 2.4))
}

// LinearToSRGB encodes one linear channel value. The result is clamped to
// [0, 1]; NaN encodes as 0.
func LinearToSRGB(l float32) float32 {
	switch {
	case !(l > 0):
		return 0
	case l >= 1:
		return 1
	case l <= 0.0031308:
		return l * 12.92
	}
	return float32(1.055*math.Pow(float64(l), 1/2.4) - 0.055)
}

var (
	decode16Once sync.Once
	decode16LUT  []float32
)

// Decode16 converts a 16-bit sRGB value to linear light.
func Decode16(v uint16) float32 {
	decode16Once.Do(func() {
		decode16LUT = make([]float32, 1<<16)
		for i := range decode16LUT {
			decode16LUT[i] = SRGBToLinear(float32(i) / 0xffff)
		}
	})
	return decode16LUT[v]
}

// Encode16 converts a linear value to 16-bit sRGB.
func Encode16(l float32) uint16 {
	return Quantize16(LinearToSRGB(l))
}

// Quantize16 maps [0, 1] to [0, 0xffff] with rounding; values outside the
// range are clamped.
func Quantize16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
