// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface provides the float32 images the depth-of-field pipeline
// reads from and renders into.
//
// An Image is a CPU mirror of a 2D texture: interleaved float32 channels,
// tightly packed rows, and a Format that maps onto a WebGPU texture format.
// Surfaces are addressed by integer pixel coordinates with (0,0) at the
// top-left corner.
package surface

import (
	"errors"
	"fmt"
)

// Common errors for surface operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("surface: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("surface: invalid format")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("surface: data buffer too small")

	// ErrSizeMismatch is returned when two surfaces must share dimensions and format.
	ErrSizeMismatch = errors.New("surface: size or format mismatch")
)

// Image is a float32 image with interleaved channels.
//
// Thread safety: concurrent reads are safe. Concurrent writes are safe only
// when they touch disjoint rows, which is how pipeline stages dispatch work.
type Image struct {
	pix      []float32
	width    int
	height   int
	channels int
	format   Format
}

// New allocates a zeroed image.
func New(width, height int, format Format) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	ch := format.Channels()
	return &Image{
		pix:      make([]float32, width*height*ch),
		width:    width,
		height:   height,
		channels: ch,
		format:   format,
	}, nil
}

// FromPix wraps existing data without copying.
// The caller must keep pix alive for the lifetime of the Image.
func FromPix(pix []float32, width, height int, format Format) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	ch := format.Channels()
	n := width * height * ch
	if len(pix) < n {
		return nil, fmt.Errorf("%w: have %d floats, need %d", ErrDataTooSmall, len(pix), n)
	}
	return &Image{
		pix:      pix[:n],
		width:    width,
		height:   height,
		channels: ch,
		format:   format,
	}, nil
}

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the image height in pixels.
func (m *Image) Height() int { return m.height }

// Format returns the channel layout.
func (m *Image) Format() Format { return m.format }

// Channels returns the number of float32 values per pixel.
func (m *Image) Channels() int { return m.channels }

// Pix returns the backing slice. Pixel (x, y) channel c lives at
// Pix()[(y*Width()+x)*Channels()+c].
func (m *Image) Pix() []float32 { return m.pix }

// Stride returns the number of float32 values per row.
func (m *Image) Stride() int { return m.width * m.channels }

// Row returns the slice for row y.
func (m *Image) Row(y int) []float32 {
	s := m.Stride()
	return m.pix[y*s : (y+1)*s]
}

// Offset returns the index of the first channel of pixel (x, y).
func (m *Image) Offset(x, y int) int {
	return (y*m.width + x) * m.channels
}

// ClampedOffset returns the offset of the nearest pixel inside the image.
// Sampling outside the image extends the edge.
func (m *Image) ClampedOffset(x, y int) int {
	if x < 0 {
		x = 0
	} else if x >= m.width {
		x = m.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= m.height {
		y = m.height - 1
	}
	return (y*m.width + x) * m.channels
}

// At returns channel c of pixel (x, y) with edge clamping.
func (m *Image) At(x, y, c int) float32 {
	return m.pix[m.ClampedOffset(x, y)+c]
}

// Set writes channel c of pixel (x, y). Out-of-bounds writes are ignored.
func (m *Image) Set(x, y, c int, v float32) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height || c < 0 || c >= m.channels {
		return
	}
	m.pix[m.Offset(x, y)+c] = v
}

// SetPixel writes all channels of pixel (x, y) from v. Extra values are ignored.
func (m *Image) SetPixel(x, y int, v ...float32) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	copy(m.pix[m.Offset(x, y):m.Offset(x, y)+m.channels], v)
}

// Fill sets every pixel to v.
func (m *Image) Fill(v ...float32) {
	for i := 0; i < len(m.pix); i += m.channels {
		copy(m.pix[i:i+m.channels], v)
	}
}

// Clear zeroes the image.
func (m *Image) Clear() {
	clear(m.pix)
}

// Clone creates a deep copy of the image.
func (m *Image) Clone() *Image {
	pix := make([]float32, len(m.pix))
	copy(pix, m.pix)
	return &Image{
		pix:      pix,
		width:    m.width,
		height:   m.height,
		channels: m.channels,
		format:   m.format,
	}
}

// SameShape reports whether m and o have identical dimensions and format.
func (m *Image) SameShape(o *Image) bool {
	return o != nil && m.width == o.width && m.height == o.height && m.format == o.format
}

// CopyFrom copies src into m. Both images must share shape.
func (m *Image) CopyFrom(src *Image) error {
	if !m.SameShape(src) {
		return ErrSizeMismatch
	}
	copy(m.pix, src.pix)
	return nil
}

// Equal reports whether m and o hold identical pixels.
func (m *Image) Equal(o *Image) bool {
	if !m.SameShape(o) {
		return false
	}
	for i, v := range m.pix {
		if v != o.pix[i] {
			return false
		}
	}
	return true
}

// String returns a short description, e.g. "960x540 RGBA32F".
func (m *Image) String() string {
	return fmt.Sprintf("%dx%d %s", m.width, m.height, m.format)
}
