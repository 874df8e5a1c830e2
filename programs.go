// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"embed"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/naga"

	"github.com/gogpu/dof/internal/parallel"
)

// Program errors.
var (
	// ErrProgramNotFound is returned when a pass program name cannot be resolved.
	ErrProgramNotFound = errors.New("dof: program not found")

	// ErrProgramCompile is returned when a pass program fails to compile.
	ErrProgramCompile = errors.New("dof: program compile failed")
)

// Logical pass program names.
const (
	ProgramCoC          = "coc"
	ProgramDownsample   = "downsample"
	ProgramTileMinMaxH  = "tileMinMaxH"
	ProgramTileMinMaxV  = "tileMinMaxV"
	ProgramNearCoCBlurH = "nearCoCBlurH"
	ProgramNearCoCBlurV = "nearCoCBlurV"
	ProgramBokeh        = "bokeh"
	ProgramFill         = "fill"
	ProgramComposite    = "composite"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// kernel executes one pass on the CPU. It dispatches its own row bands and
// returns after every band has finished.
type kernel func(p *passParams, d *parallel.Dispatcher)

// Program is one pass of the pipeline: the WGSL compute shader a GPU host
// binds and the CPU kernel that produces the same result.
type Program struct {
	// Name is the logical pass name.
	Name string

	// Source is the WGSL compute shader.
	Source string

	// SPIRV is the compiled shader. It is only populated for hosts that
	// provide a GPU device.
	SPIRV []uint32

	run kernel
}

// Compiled reports whether the program carries SPIR-V.
func (p *Program) Compiled() bool {
	return len(p.SPIRV) > 0
}

// Programs resolves logical pass names to programs.
type Programs struct {
	byName map[string]*Program
}

// DefaultPrograms returns the built-in programs for every pass.
func DefaultPrograms() *Programs {
	builtins := []struct {
		name string
		file string
		run  kernel
	}{
		{ProgramCoC, "coc.wgsl", runCoC},
		{ProgramDownsample, "downsample.wgsl", runDownsample},
		{ProgramTileMinMaxH, "tile_minmax_h.wgsl", runTileMinMaxH},
		{ProgramTileMinMaxV, "tile_minmax_v.wgsl", runTileMinMaxV},
		{ProgramNearCoCBlurH, "near_coc_blur_h.wgsl", runNearCoCBlurH},
		{ProgramNearCoCBlurV, "near_coc_blur_v.wgsl", runNearCoCBlurV},
		{ProgramBokeh, "bokeh.wgsl", runBokeh},
		{ProgramFill, "fill.wgsl", runFill},
		{ProgramComposite, "composite.wgsl", runComposite},
	}

	ps := &Programs{byName: make(map[string]*Program, len(builtins))}
	for _, b := range builtins {
		src, err := shaderFS.ReadFile("shaders/" + b.file)
		if err != nil {
			// Embedded at build time; a missing file is a packaging bug.
			panic(fmt.Sprintf("dof: missing embedded shader %s: %v", b.file, err))
		}
		ps.byName[b.name] = &Program{Name: b.name, Source: string(src), run: b.run}
	}
	return ps
}

// Names returns the registered program names in sorted order.
func (ps *Programs) Names() []string {
	return slices.Sorted(maps.Keys(ps.byName))
}

// Resolve returns the program registered under name.
func (ps *Programs) Resolve(name string) (*Program, error) {
	if ps != nil {
		if p, ok := ps.byName[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
}

// WithSource returns a copy of ps in which the named program uses the given
// WGSL source. Hosts use it to ship tuned shaders for their GPU.
func (ps *Programs) WithSource(name, wgsl string) (*Programs, error) {
	p, err := ps.Resolve(name)
	if err != nil {
		return nil, err
	}
	out := ps.clone()
	out.byName[name] = &Program{Name: name, Source: wgsl, run: p.run}
	return out, nil
}

// Without returns a copy of ps with the named program removed.
func (ps *Programs) Without(name string) *Programs {
	out := ps.clone()
	delete(out.byName, name)
	return out
}

func (ps *Programs) clone() *Programs {
	out := &Programs{byName: make(map[string]*Program, len(ps.byName))}
	for k, v := range ps.byName {
		cp := *v
		out.byName[k] = &cp
	}
	return out
}

// prepare compiles every program for a GPU host. CPU-only hosts keep the
// WGSL sources uncompiled.
func (ps *Programs) prepare(host gpucontext.DeviceProvider) error {
	if host == nil || host.Device() == nil {
		return nil
	}
	for _, name := range ps.Names() {
		p := ps.byName[name]
		spirv, err := compileSPIRV(p.Source)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrProgramCompile, name, err)
		}
		p.SPIRV = spirv
	}
	return nil
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	b, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("spir-v length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}
