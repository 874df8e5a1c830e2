// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"github.com/gogpu/dof/surface"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testCamera() PerspectiveCamera {
	return PerspectiveCamera{Near: 0.1, Far: 100, FovYRad: math.Pi / 3, Aspect: 16.0 / 9}
}

// checkerColor returns an RGBA32F checkerboard with 4 pixel cells.
func checkerColor(t testing.TB, w, h int) *surface.Image {
	t.Helper()
	img, err := surface.New(w, h, surface.FormatRGBA32F)
	if err != nil {
		t.Fatalf("surface.New() = %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(0.1)
			if (x/4+y/4)%2 == 0 {
				v = 0.9
			}
			img.SetPixel(x, y, v, v*0.5, 1-v, 1)
		}
	}
	return img
}

// depthImage returns an R32F device depth image with distance z(x, y).
func depthImage(t testing.TB, w, h int, cam Camera, z func(x, y int) float32) *surface.Image {
	t.Helper()
	img, err := surface.New(w, h, surface.FormatR32F)
	if err != nil {
		t.Fatalf("surface.New() = %v", err)
	}
	clip := ClipInfo(cam)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, 0, DeviceDepth(z(x, y), clip))
		}
	}
	return img
}

// flatInputs returns a checkerboard, a constant depth at distance z and an
// output image.
func flatInputs(t testing.TB, w, h int, cam Camera, z float32) (color, depth, out *surface.Image) {
	t.Helper()
	color = checkerColor(t, w, h)
	depth = depthImage(t, w, h, cam, func(int, int) float32 { return z })
	out, err := surface.New(w, h, surface.FormatRGBA32F)
	if err != nil {
		t.Fatalf("surface.New() = %v", err)
	}
	return color, depth, out
}

func newTestDoF(t testing.TB, w, h int, opts ...Option) *DepthOfField {
	t.Helper()
	d, err := New(w, h, NullDeviceHandle{}, opts...)
	if err != nil {
		t.Fatalf("New(%d, %d) = %v", w, h, err)
	}
	t.Cleanup(d.Close)
	return d
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
