// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultPrograms(t *testing.T) {
	ps := DefaultPrograms()
	want := []string{
		ProgramBokeh, ProgramCoC, ProgramComposite, ProgramDownsample, ProgramFill,
		ProgramNearCoCBlurH, ProgramNearCoCBlurV, ProgramTileMinMaxH, ProgramTileMinMaxV,
	}
	got := ps.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for _, name := range got {
		p, err := ps.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) = %v", name, err)
		}
		if !strings.Contains(p.Source, "@compute") {
			t.Errorf("%s: WGSL has no compute entry point", name)
		}
		if p.run == nil {
			t.Errorf("%s: no CPU kernel", name)
		}
		if p.Compiled() {
			t.Errorf("%s: compiled without a GPU host", name)
		}
	}
}

func TestProgramsResolveMissing(t *testing.T) {
	ps := DefaultPrograms().Without(ProgramBokeh)
	if _, err := ps.Resolve(ProgramBokeh); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("Resolve() = %v, want ErrProgramNotFound", err)
	}
	if _, err := DefaultPrograms().Resolve(ProgramBokeh); err != nil {
		t.Errorf("Without() modified the source registry: %v", err)
	}
	var nilPrograms *Programs
	if _, err := nilPrograms.Resolve(ProgramCoC); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("nil Resolve() = %v, want ErrProgramNotFound", err)
	}
}

func TestProgramsWithSource(t *testing.T) {
	base := DefaultPrograms()
	const src = "@compute @workgroup_size(1) fn main() {}"
	ps, err := base.WithSource(ProgramFill, src)
	if err != nil {
		t.Fatalf("WithSource() = %v", err)
	}
	p, _ := ps.Resolve(ProgramFill)
	if p.Source != src {
		t.Errorf("Source = %q, want %q", p.Source, src)
	}
	if p.run == nil {
		t.Error("WithSource dropped the CPU kernel")
	}
	orig, _ := base.Resolve(ProgramFill)
	if orig.Source == src {
		t.Error("WithSource modified the source registry")
	}
	if _, err := base.WithSource("unknown", src); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("WithSource(unknown) = %v, want ErrProgramNotFound", err)
	}
}

func TestNewFailsOnMissingProgram(t *testing.T) {
	_, err := New(16, 16, NullDeviceHandle{}, WithPrograms(DefaultPrograms().Without(ProgramComposite)))
	if !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("New() = %v, want ErrProgramNotFound", err)
	}
}
