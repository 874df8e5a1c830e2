// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/dof/internal/mathx"
	"github.com/gogpu/dof/surface"
)

// sceneFocus is the focus distance of splitScene.
const sceneFocus = 0.6

func sceneParams() OpticalParams {
	p := DefaultOpticalParams()
	p.FocusDistance = sceneFocus
	return p
}

// splitScene returns a checkerboard whose left third is near the camera,
// middle third at sceneFocus and right third far away.
func splitScene(t testing.TB, w, h int, cam Camera) (color, depth, out *surface.Image) {
	t.Helper()
	color, _, out = flatInputs(t, w, h, cam, 1)
	depth = depthImage(t, w, h, cam, func(x, _ int) float32 {
		switch {
		case x < w/3:
			return 0.15
		case x < 2*w/3:
			return sceneFocus
		}
		return 90
	})
	return color, depth, out
}

func TestNew(t *testing.T) {
	bad := DefaultOpticalParams()
	bad.BokehShape = 1

	tests := []struct {
		name string
		w, h int
		opts []Option
		want error
	}{
		{"ok", 64, 32, nil, nil},
		{"too small", 1, 32, nil, ErrInvalidResolution},
		{"zero", 0, 0, nil, ErrInvalidResolution},
		{"bad params", 64, 32, []Option{WithInitialParams(bad)}, ErrInvalidParams},
		{"missing program", 64, 32, []Option{WithPrograms(DefaultPrograms().Without(ProgramFill))}, ErrProgramNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.w, tt.h, nil, tt.opts...)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("New() = %v", err)
				}
				defer d.Close()
				if w, h := d.Size(); w != tt.w || h != tt.h {
					t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.w, tt.h)
				}
				if d.GPU() {
					t.Error("GPU() = true for a nil host")
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("New() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyEffectInFocusIsIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("full HD frame")
	}
	d := newTestDoF(t, 1920, 1080)
	color, depth, out := flatInputs(t, 1920, 1080, testCamera(), 3.3)

	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatalf("ApplyEffect() = %v", err)
	}
	if !out.Equal(color) {
		t.Error("in-focus frame differs from input color")
	}
}

func TestApplyEffectBlendZeroIsIdentity(t *testing.T) {
	p := sceneParams()
	p.BlendFactor = 0
	d := newTestDoF(t, 160, 120, WithInitialParams(p))
	color, depth, out := splitScene(t, 160, 120, testCamera())

	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatalf("ApplyEffect() = %v", err)
	}
	if !out.Equal(color) {
		t.Error("blend 0 output differs from input color")
	}
}

func TestApplyEffectDegenerateCameraIsIdentity(t *testing.T) {
	d := newTestDoF(t, 96, 64)
	color, depth, out := splitScene(t, 96, 64, testCamera())

	cam := PerspectiveCamera{Near: 0, Far: 10, FovYRad: 1, Aspect: 1.5}
	if err := d.ApplyEffect(cam, color, depth, out); err != nil {
		t.Fatalf("ApplyEffect() = %v", err)
	}
	if !out.Equal(color) {
		t.Error("degenerate camera output differs from input color")
	}
}

func TestApplyEffectBlursOutOfFocus(t *testing.T) {
	const w, h = 320, 240
	d := newTestDoF(t, w, h, WithInitialParams(sceneParams()))
	color, depth, out := splitScene(t, w, h, testCamera())
	colorBefore, depthBefore := color.Clone(), depth.Clone()

	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatalf("ApplyEffect() = %v", err)
	}

	if !color.Equal(colorBefore) || !depth.Equal(depthBefore) {
		t.Fatal("ApplyEffect modified its inputs")
	}

	pix := out.Pix()
	for i, v := range pix {
		if !mathx.IsFinite(v) || v < 0 {
			t.Fatalf("out.Pix()[%d] = %v, want finite and >= 0", i, v)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if out.At(x, y, 3) != color.At(x, y, 3) {
				t.Fatalf("alpha at (%d,%d) = %v, want %v", x, y, out.At(x, y, 3), color.At(x, y, 3))
			}
		}
	}

	maxDiff := func(x0, x1 int) float32 {
		var d float32
		for y := 100; y < 140; y++ {
			for x := x0; x < x1; x++ {
				for c := range 3 {
					d = max(d, mathx.Abs(out.At(x, y, c)-color.At(x, y, c)))
				}
			}
		}
		return d
	}
	if got := maxDiff(20, 80); got < 0.1 {
		t.Errorf("near region max difference = %v, want blurred (>= 0.1)", got)
	}
	if got := maxDiff(250, 300); got < 0.1 {
		t.Errorf("far region max difference = %v, want blurred (>= 0.1)", got)
	}
	if got := maxDiff(150, 200); got != 0 {
		t.Errorf("focused region max difference = %v, want 0", got)
	}
}

func TestApplyEffectDeterministic(t *testing.T) {
	const w, h = 200, 150
	color, depth, _ := splitScene(t, w, h, testCamera())

	render := func(workers, frames int) []*surface.Image {
		d := newTestDoF(t, w, h, WithWorkers(workers), WithFramesInFlight(frames),
			WithInitialParams(sceneParams()))
		var outs []*surface.Image
		for range 3 {
			out, err := surface.New(w, h, surface.FormatRGBA32F)
			if err != nil {
				t.Fatal(err)
			}
			if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
				t.Fatalf("ApplyEffect() = %v", err)
			}
			outs = append(outs, out)
		}
		return outs
	}

	ref := render(1, 1)
	for i := 1; i < len(ref); i++ {
		if !ref[i].Equal(ref[0]) {
			t.Fatalf("frame %d differs from frame 0", i)
		}
	}
	for _, cfg := range []struct{ workers, frames int }{{3, 1}, {8, 2}} {
		for i, out := range render(cfg.workers, cfg.frames) {
			if !out.Equal(ref[0]) {
				t.Errorf("workers=%d frames=%d: frame %d differs from single worker render",
					cfg.workers, cfg.frames, i)
			}
		}
	}
}

func TestApplyEffectInputErrors(t *testing.T) {
	const w, h = 64, 48
	d := newTestDoF(t, w, h)
	color, depth, out := flatInputs(t, w, h, testCamera(), 3.3)

	small, err := surface.New(w/2, h, surface.FormatRGBA32F)
	if err != nil {
		t.Fatal(err)
	}
	gray, err := surface.New(w, h, surface.FormatR32F)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name               string
		color, depth, out *surface.Image
	}{
		{"small color", small, depth, out},
		{"small depth", color, small, out},
		{"small output", color, depth, small},
		{"gray color", gray, depth, out},
		{"gray output", color, depth, gray},
		{"nil depth", color, nil, out},
		{"output aliases color", color, depth, color},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.ApplyEffect(testCamera(), tt.color, tt.depth, tt.out)
			if !errors.Is(err, ErrResolutionMismatch) {
				t.Errorf("ApplyEffect() = %v, want ErrResolutionMismatch", err)
			}
		})
	}
}

func TestResize(t *testing.T) {
	d := newTestDoF(t, 64, 48)

	if err := d.Resize(2, 1); !errors.Is(err, ErrInvalidResolution) {
		t.Fatalf("Resize(2, 1) = %v, want ErrInvalidResolution", err)
	}
	color, depth, out := flatInputs(t, 64, 48, testCamera(), 3.3)
	if err := d.ApplyEffect(testCamera(), color, depth, out); !errors.Is(err, ErrResolutionMismatch) {
		t.Fatalf("ApplyEffect() after failed Resize = %v, want ErrResolutionMismatch", err)
	}

	if err := d.Resize(80, 60); err != nil {
		t.Fatalf("Resize(80, 60) = %v", err)
	}
	if err := d.ApplyEffect(testCamera(), color, depth, out); !errors.Is(err, ErrResolutionMismatch) {
		t.Fatalf("ApplyEffect() with old size = %v, want ErrResolutionMismatch", err)
	}
	color, depth, out = flatInputs(t, 80, 60, testCamera(), 3.3)
	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatalf("ApplyEffect() after Resize = %v", err)
	}
	if !out.Equal(color) {
		t.Error("in-focus frame differs from input color after Resize")
	}
}

func TestClose(t *testing.T) {
	d, err := New(32, 32, NullDeviceHandle{})
	if err != nil {
		t.Fatal(err)
	}
	d.Close()
	d.Close()

	color, depth, out := flatInputs(t, 32, 32, testCamera(), 3.3)
	if err := d.ApplyEffect(testCamera(), color, depth, out); !errors.Is(err, ErrResolutionMismatch) {
		t.Errorf("ApplyEffect() after Close = %v, want ErrResolutionMismatch", err)
	}
	if err := d.Resize(32, 32); err == nil {
		t.Error("Resize() after Close = nil, want error")
	}
}

func TestApplyEffectRecomputesTapsWhenDirty(t *testing.T) {
	d := newTestDoF(t, 32, 32)
	color, depth, out := flatInputs(t, 32, 32, testCamera(), 3.3)

	if !d.BokehDirty() {
		t.Fatal("BokehDirty() = false before first frame")
	}
	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatal(err)
	}
	if d.BokehDirty() {
		t.Error("BokehDirty() = true after ApplyEffect")
	}
	if got, want := d.Taps(), RecalcBokeh(d.Params()); got != want {
		t.Error("Taps() differs from RecalcBokeh(Params())")
	}

	if err := d.SetFStops(5); err != nil {
		t.Fatal(err)
	}
	if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
		t.Fatal(err)
	}
	if got, want := d.Taps(), RecalcBokeh(d.Params()); got != want {
		t.Error("Taps() not recomputed after SetFStops")
	}
}

func TestConcurrentParameterEdits(t *testing.T) {
	d := newTestDoF(t, 48, 32)
	color, depth, out := splitScene(t, 48, 32, testCamera())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 50 {
			_ = d.SetFStops(1.6 + float32(i%10)*0.4)
			_ = d.SetBlendFactor(float32(i%2) * 0.5)
		}
	}()
	for range 10 {
		if err := d.ApplyEffect(testCamera(), color, depth, out); err != nil {
			t.Errorf("ApplyEffect() = %v", err)
		}
	}
	wg.Wait()
}
