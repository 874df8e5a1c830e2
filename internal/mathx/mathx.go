// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package mathx holds the small numeric helpers shared by the pipeline stages.
package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Saturate clamps v to [0, 1].
func Saturate[T constraints.Float](v T) T {
	return Clamp(v, 0, 1)
}

// Lerp interpolates between a and b. Lerp(a, b, 0) returns a exactly
// for finite b.
func Lerp[T constraints.Float](a, b, t T) T {
	return a*(1-t) + b*t
}

// Smoothstep is the cubic Hermite step between edge0 and edge1.
func Smoothstep[T constraints.Float](edge0, edge1, x T) T {
	t := Saturate((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite[T constraints.Float](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Abs returns the absolute value of v.
func Abs[T constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// NearlyEqual compares with an absolute tolerance.
func NearlyEqual[T constraints.Float](a, b, eps T) bool {
	return Abs(a-b) <= eps
}
