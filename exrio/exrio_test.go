// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package exrio

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-openexr/half"

	"github.com/gogpu/dof"
	"github.com/gogpu/dof/surface"
)

func gradient(t *testing.T, w, h int) *surface.Image {
	t.Helper()
	img, err := surface.New(w, h, surface.FormatRGBA32F)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetPixel(x, y, float32(x)/float32(w), float32(y)/float32(h), 0.5, 1)
		}
	}
	return img
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"frame.exr", KindEXR},
		{"FRAME.EXR", KindEXR},
		{"a/b/c.png", KindPNG},
		{"scan.tif", KindTIFF},
		{"scan.tiff", KindTIFF},
		{"photo.jpg", KindOther},
		{"photo.webp", KindOther},
		{"notes.txt", KindUnknown},
		{"noext", KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.path); got != tt.want {
			t.Errorf("KindOf(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEXRRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.exr")
	src := gradient(t, 12, 8)
	src.SetPixel(3, 3, 4.5, 0, 0.125, 0.5) // HDR value

	if err := Write(path, src); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := ReadColor(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadColor() = %v", err)
	}
	if got.Width() != 12 || got.Height() != 8 {
		t.Fatalf("size = %dx%d, want 12x8", got.Width(), got.Height())
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			for c := range 4 {
				want := half.FromFloat32(src.At(x, y, c)).Float32()
				if v := got.At(x, y, c); v != want {
					t.Fatalf("(%d,%d,%d) = %v, want %v", x, y, c, v, want)
				}
			}
		}
	}
}

func TestPNGRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.png")
	src := gradient(t, 10, 6)

	if err := Write(path, src); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := ReadColor(path, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadColor() = %v", err)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			for c := range 4 {
				if d := math.Abs(float64(got.At(x, y, c) - src.At(x, y, c))); d > 1e-3 {
					t.Fatalf("(%d,%d,%d) = %v, want %v", x, y, c, got.At(x, y, c), src.At(x, y, c))
				}
			}
		}
	}
}

func TestReadColorResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.tiff")
	if err := Write(path, gradient(t, 16, 16)); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := ReadColor(path, ReadOptions{Width: 8, Height: 4})
	if err != nil {
		t.Fatalf("ReadColor() = %v", err)
	}
	if got.Width() != 8 || got.Height() != 4 {
		t.Errorf("size = %dx%d, want 8x4", got.Width(), got.Height())
	}
}

func TestReadDepthFromEXR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.exr")
	src, err := surface.New(4, 2, surface.FormatRGBA32F)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 4; x++ {
		src.SetPixel(x, 0, 0.25, 0, 0, 1)
		src.SetPixel(x, 1, 0.75, 0, 0, 1)
	}
	if err := Write(path, src); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	depth, err := ReadDepth(path, DepthOptions{})
	if err != nil {
		t.Fatalf("ReadDepth() = %v", err)
	}
	if depth.Format() != surface.FormatR32F {
		t.Errorf("Format() = %v, want R32F", depth.Format())
	}
	if got := depth.At(1, 0, 0); got != 0.25 {
		t.Errorf("depth(1,0) = %v, want 0.25", got)
	}
	if got := depth.At(2, 1, 0); got != 0.75 {
		t.Errorf("depth(2,1) = %v, want 0.75", got)
	}
}

func TestReadDepthLinear(t *testing.T) {
	cam := dof.PerspectiveCamera{Near: 1, Far: 9, FovYRad: 1, Aspect: 1}
	path := filepath.Join(t.TempDir(), "depth.png")

	gray := image.NewGray16(image.Rect(0, 0, 2, 1))
	gray.SetGray16(0, 0, color.Gray16{Y: 0})
	gray.SetGray16(1, 0, color.Gray16{Y: 0xffff})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, gray); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	depth, err := ReadDepth(path, DepthOptions{Linear: true, Camera: cam})
	if err != nil {
		t.Fatalf("ReadDepth() = %v", err)
	}
	clip := dof.ClipInfo(cam)
	for x, z := range []float32{1, 9} {
		want := dof.DeviceDepth(z, clip)
		if got := depth.At(x, 0, 0); math.Abs(float64(got-want)) > 1e-5 {
			t.Errorf("depth(%d) = %v, want %v (z=%v)", x, got, want, z)
		}
	}

	if _, err := ReadDepth(path, DepthOptions{Linear: true}); err == nil {
		t.Error("ReadDepth(linear, no camera) = nil, want error")
	}
}

func TestUnsupportedExtension(t *testing.T) {
	img := gradient(t, 2, 2)
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "out.bmp"), img); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("Write(.bmp) = %v, want ErrUnsupportedExtension", err)
	}
	if _, err := ReadColor(filepath.Join(dir, "in.txt"), ReadOptions{}); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("ReadColor(.txt) = %v, want ErrUnsupportedExtension", err)
	}
	if _, err := ReadDepth(filepath.Join(dir, "in.txt"), DepthOptions{}); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("ReadDepth(.txt) = %v, want ErrUnsupportedExtension", err)
	}
}

func TestWriteRejectsFormat(t *testing.T) {
	img, err := surface.New(2, 2, surface.FormatR32F)
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(filepath.Join(t.TempDir(), "out.exr"), img); !errors.Is(err, surface.ErrInvalidFormat) {
		t.Errorf("Write(R32F) = %v, want ErrInvalidFormat", err)
	}
}
