// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package exrio loads depth-of-field inputs from image files and writes
// results back.
//
// OpenEXR files are read and written in linear light. PNG, JPEG, TIFF and
// WebP colors are decoded from sRGB, and 16-bit grayscale images can carry
// depth. Depth in EXR files is read from the first of the Z, depth, R or Y
// channels present.
package exrio

import (
	"errors"
	"fmt"
	"image"
	stdcolor "image/color"
	"image/draw"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/exrutil"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/gogpu/dof"
	"github.com/gogpu/dof/internal/color"
	"github.com/gogpu/dof/surface"
)

// ErrUnsupportedExtension is returned for file names with no known codec.
var ErrUnsupportedExtension = errors.New("exrio: unsupported file extension")

// depthChannels lists the EXR channel names probed for depth, in order.
var depthChannels = []string{"Z", "depth", "R", "Y"}

// Kind classifies a file by extension.
type Kind int

// File kinds.
const (
	KindUnknown Kind = iota
	KindEXR
	KindPNG
	KindTIFF
	KindOther // decoded through image.Decode
)

// KindOf returns the codec for path.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		return KindEXR
	case ".png":
		return KindPNG
	case ".tif", ".tiff":
		return KindTIFF
	case ".jpg", ".jpeg", ".webp":
		return KindOther
	}
	return KindUnknown
}

// ReadOptions controls how inputs are decoded.
type ReadOptions struct {
	// Width and Height, when non-zero, resample non-EXR inputs to this size.
	Width, Height int
}

// ReadColor loads an RGBA32F color image in linear light.
func ReadColor(path string, opts ReadOptions) (*surface.Image, error) {
	switch KindOf(path) {
	case KindEXR:
		return readEXRColor(path)
	case KindUnknown:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}

	src, err := decode(path)
	if err != nil {
		return nil, err
	}
	src = resample(src, opts)

	b := src.Bounds()
	nrgba := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, b.Min, draw.Src)

	img, err := surface.New(b.Dx(), b.Dy(), surface.FormatRGBA32F)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Row(y)
		for x := 0; x < b.Dx(); x++ {
			c := nrgba.NRGBA64At(x, y)
			row[4*x+0] = color.Decode16(c.R)
			row[4*x+1] = color.Decode16(c.G)
			row[4*x+2] = color.Decode16(c.B)
			row[4*x+3] = float32(c.A) / 0xffff
		}
	}
	dof.Logger().Debug("exrio: color decoded", "path", path, "size", img.String())
	return img, nil
}

func readEXRColor(path string) (*surface.Image, error) {
	src, err := exr.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("exrio: decode %s: %w", path, err)
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	img, err := surface.New(w, h, surface.FormatRGBA32F)
	if err != nil {
		return nil, fmt.Errorf("exrio: %s: %w", path, err)
	}
	for y := 0; y < h; y++ {
		row := img.Row(y)
		for x := 0; x < w; x++ {
			r, g, b, a := src.RGBA(x+src.Rect.Min.X, y+src.Rect.Min.Y)
			row[4*x+0], row[4*x+1], row[4*x+2], row[4*x+3] = r, g, b, a
		}
	}
	dof.Logger().Debug("exrio: color decoded", "path", path, "size", img.String())
	return img, nil
}

// DepthOptions controls how depth values are interpreted.
type DepthOptions struct {
	ReadOptions

	// Linear marks the stored values as view-space distances. They are
	// converted to device depth for Camera. Otherwise they already are
	// device depth in [0, 1].
	Linear bool

	// Camera is required when Linear is set.
	Camera dof.Camera
}

// ReadDepth loads an R32F device depth image.
//
// Non-EXR depth is read as grayscale in [0, 1]. With Linear set, such
// values are scaled to [near, far] of the camera first.
func ReadDepth(path string, opts DepthOptions) (*surface.Image, error) {
	if opts.Linear && opts.Camera == nil {
		return nil, errors.New("exrio: linear depth needs a camera")
	}

	var (
		vals []float32
		w, h int
		err  error
	)
	switch KindOf(path) {
	case KindEXR:
		vals, w, h, err = readEXRDepth(path)
	case KindUnknown:
		err = fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	default:
		vals, w, h, err = readGrayDepth(path, opts)
		if err == nil && opts.Linear {
			n, f := opts.Camera.NearPlane(), opts.Camera.FarPlane()
			for i, v := range vals {
				vals[i] = n + v*(f-n)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.Linear {
		clip := dof.ClipInfo(opts.Camera)
		for i, z := range vals {
			if z > 0 {
				vals[i] = dof.DeviceDepth(z, clip)
			} else {
				vals[i] = 0
			}
		}
	}
	img, err := surface.FromPix(vals, w, h, surface.FormatR32F)
	if err != nil {
		return nil, fmt.Errorf("exrio: %s: %w", path, err)
	}
	dof.Logger().Debug("exrio: depth decoded", "path", path, "size", img.String(), "linear", opts.Linear)
	return img, nil
}

func readEXRDepth(path string) ([]float32, int, int, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("exrio: open %s: %w", path, err)
	}
	defer f.Close()

	h := f.Header(0)
	if h == nil {
		return nil, 0, 0, fmt.Errorf("exrio: %s: missing header", path)
	}
	var lastErr error
	for _, name := range depthChannels {
		vals, err := exrutil.ExtractChannel(f, name)
		if err == nil {
			return vals, h.Width(), h.Height(), nil
		}
		lastErr = err
	}
	return nil, 0, 0, fmt.Errorf("exrio: %s: no depth channel: %w", path, lastErr)
}

func readGrayDepth(path string, opts DepthOptions) ([]float32, int, int, error) {
	src, err := decode(path)
	if err != nil {
		return nil, 0, 0, err
	}
	src = resample(src, opts.ReadOptions)
	b := src.Bounds()
	gray := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)

	vals := make([]float32, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			vals[y*b.Dx()+x] = float32(gray.Gray16At(x, y).Y) / 0xffff
		}
	}
	return vals, b.Dx(), b.Dy(), nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("exrio: %w", err)
	}
	defer f.Close()

	var img image.Image
	if KindOf(path) == KindTIFF {
		img, err = tiff.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("exrio: decode %s: %w", path, err)
	}
	return img, nil
}

// resample scales src to the requested size with Catmull-Rom filtering.
func resample(src image.Image, opts ReadOptions) image.Image {
	b := src.Bounds()
	if opts.Width <= 0 || opts.Height <= 0 || (b.Dx() == opts.Width && b.Dy() == opts.Height) {
		return src
	}
	dst := image.NewNRGBA64(image.Rect(0, 0, opts.Width, opts.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	dof.Logger().Debug("exrio: resampled",
		"from", b.Size().String(), "to", dst.Bounds().Size().String())
	return dst
}

// Write stores an RGBA32F image. EXR keeps linear half floats; PNG and
// TIFF are encoded as 16-bit sRGB.
func Write(path string, img *surface.Image) error {
	if img.Format() != surface.FormatRGBA32F {
		return fmt.Errorf("exrio: write %s: %w", path, surface.ErrInvalidFormat)
	}
	switch KindOf(path) {
	case KindEXR:
		return writeEXR(path, img)
	case KindPNG, KindTIFF:
		return writeLDR(path, img)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
}

func writeEXR(path string, img *surface.Image) error {
	w, h := img.Width(), img.Height()
	dst := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Row(y)
		for x := 0; x < w; x++ {
			dst.SetRGBA(x, y, row[4*x], row[4*x+1], row[4*x+2], row[4*x+3])
		}
	}
	if err := exr.EncodeFile(path, dst); err != nil {
		return fmt.Errorf("exrio: encode %s: %w", path, err)
	}
	return nil
}

// ToNRGBA64 converts a linear RGBA32F image to 16-bit sRGB.
func ToNRGBA64(img *surface.Image) *image.NRGBA64 {
	w, h := img.Width(), img.Height()
	dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Row(y)
		for x := 0; x < w; x++ {
			dst.SetNRGBA64(x, y, stdcolor.NRGBA64{
				R: color.Encode16(row[4*x+0]),
				G: color.Encode16(row[4*x+1]),
				B: color.Encode16(row[4*x+2]),
				A: color.Quantize16(row[4*x+3]),
			})
		}
	}
	return dst
}

func writeLDR(path string, img *surface.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exrio: %w", err)
	}
	m := ToNRGBA64(img)
	if KindOf(path) == KindTIFF {
		err = tiff.Encode(f, m, &tiff.Options{Compression: tiff.Deflate})
	} else {
		err = png.Encode(f, m)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("exrio: encode %s: %w", path, err)
	}
	return nil
}
