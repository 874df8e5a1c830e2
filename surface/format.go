// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "github.com/gogpu/gputypes"

// Format represents the channel layout of a float32 surface.
type Format uint8

const (
	// FormatR32F is a single float channel (depth, scalar CoC).
	FormatR32F Format = iota

	// FormatRG32F is two float channels (packed near/far CoC).
	FormatRG32F

	// FormatRGBA32F is four float channels (linear color, field accumulators).
	FormatRGBA32F

	// formatCount is the number of formats (for internal use).
	formatCount
)

// FormatInfo contains metadata about a surface format.
type FormatInfo struct {
	// Channels is the number of float32 values per pixel.
	Channels int

	// Texture is the matching WebGPU texture format, used when a host
	// mirrors the surface on a GPU device.
	Texture gputypes.TextureFormat

	// Name is a short human readable identifier.
	Name string
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatR32F:    {Channels: 1, Texture: gputypes.TextureFormatR32Float, Name: "R32F"},
	FormatRG32F:   {Channels: 2, Texture: gputypes.TextureFormatRG32Float, Name: "RG32F"},
	FormatRGBA32F: {Channels: 4, Texture: gputypes.TextureFormatRGBA32Float, Name: "RGBA32F"},
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// Info returns the metadata for f. Unknown formats return a zero FormatInfo.
func (f Format) Info() FormatInfo {
	if !f.IsValid() {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// Channels returns the number of float32 values per pixel.
func (f Format) Channels() int {
	return f.Info().Channels
}

// TextureFormat returns the equivalent GPU texture format.
func (f Format) TextureFormat() gputypes.TextureFormat {
	if !f.IsValid() {
		return gputypes.TextureFormatUndefined
	}
	return formatInfoTable[f].Texture
}

// String returns the format name.
func (f Format) String() string {
	if !f.IsValid() {
		return "Unknown"
	}
	return formatInfoTable[f].Name
}
