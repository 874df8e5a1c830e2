// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package color

import (
	"math"
	"testing"
)

func TestSRGBRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.01, 0.2, 0.5, 0.9, 1} {
		if got := SRGBToLinear(LinearToSRGB(v)); math.Abs(float64(got-v)) > 1e-5 {
			t.Errorf("SRGBToLinear(LinearToSRGB(%v)) = %v", v, got)
		}
	}
}

func TestLinearToSRGBClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"above one", 2, 1},
		{"negative", -0.5, 0},
		{"nan", float32(math.NaN()), 0},
		{"inf", float32(math.Inf(1)), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinearToSRGB(tt.in); got != tt.want {
				t.Errorf("LinearToSRGB(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode16MatchesFormula(t *testing.T) {
	for _, v := range []uint16{0, 1, 2650, 0x8000, 0xfffe, 0xffff} {
		want := SRGBToLinear(float32(v) / 0xffff)
		if got := Decode16(v); got != want {
			t.Errorf("Decode16(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestEncodeDecode16(t *testing.T) {
	for v := 0; v <= 0xffff; v += 257 {
		l := Decode16(uint16(v))
		if got := Encode16(l); int(got) < v-1 || int(got) > v+1 {
			t.Errorf("Encode16(Decode16(%d)) = %d", v, got)
		}
	}
}

func TestQuantize16(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0x8000},
		{1, 0xffff},
		{3, 0xffff},
	}
	for _, tt := range tests {
		if got := Quantize16(tt.in); got != tt.want {
			t.Errorf("Quantize16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
