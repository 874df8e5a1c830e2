// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/dof/internal/parallel"
)

// resource identifies an image a stage reads or writes. Values below
// slotCount are render target slots.
type resource uint8

const (
	resColor resource = resource(slotCount) + iota
	resDepth
	resOutput
)

func slotRes(s Slot) resource { return resource(s) }

func (r resource) String() string {
	switch r {
	case resColor:
		return "color"
	case resDepth:
		return "depth"
	case resOutput:
		return "output"
	}
	return Slot(r).String()
}

// stage is one step of the pipeline. Inputs must have been written by the
// caller or an earlier stage.
type stage struct {
	name    string
	program string
	inputs  []resource
	outputs []resource
	run     kernel
}

// stageLayout is the fixed stage order with declared resources.
var stageLayout = []stage{
	{
		name:    "coc",
		program: ProgramCoC,
		inputs:  []resource{resDepth},
		outputs: []resource{slotRes(SlotCoC)},
	},
	{
		name:    "downsample",
		program: ProgramDownsample,
		inputs:  []resource{resColor, slotRes(SlotCoC)},
		outputs: []resource{slotRes(SlotColor), slotRes(SlotColorFar), slotRes(SlotCoCRaw)},
	},
	{
		name:    "tileMinMaxH",
		program: ProgramTileMinMaxH,
		inputs:  []resource{slotRes(SlotCoCRaw)},
		outputs: []resource{slotRes(SlotCoCPing)},
	},
	{
		name:    "tileMinMaxV",
		program: ProgramTileMinMaxV,
		inputs:  []resource{slotRes(SlotCoCPing)},
		outputs: []resource{slotRes(SlotCoCPong)},
	},
	{
		name:    "nearCoCBlurH",
		program: ProgramNearCoCBlurH,
		inputs:  []resource{slotRes(SlotCoCPong)},
		outputs: []resource{slotRes(SlotCoCPing)},
	},
	{
		name:    "nearCoCBlurV",
		program: ProgramNearCoCBlurV,
		inputs:  []resource{slotRes(SlotCoCPing), slotRes(SlotCoCRaw)},
		outputs: []resource{slotRes(SlotCoCPong)},
	},
	{
		name:    "bokeh",
		program: ProgramBokeh,
		inputs: []resource{
			slotRes(SlotCoCRaw), slotRes(SlotCoCPong),
			slotRes(SlotColor), slotRes(SlotColorFar),
		},
		outputs: []resource{slotRes(SlotNearField), slotRes(SlotFarField)},
	},
	{
		name:    "fill",
		program: ProgramFill,
		inputs: []resource{
			slotRes(SlotCoCRaw), slotRes(SlotCoCPong),
			slotRes(SlotNearField), slotRes(SlotFarField),
		},
		outputs: []resource{slotRes(SlotNearField), slotRes(SlotFarField)},
	},
	{
		name:    "composite",
		program: ProgramComposite,
		inputs: []resource{
			resColor, slotRes(SlotCoC), slotRes(SlotCoCRaw), slotRes(SlotCoCPong),
			slotRes(SlotNearField), slotRes(SlotFarField),
		},
		outputs: []resource{resOutput},
	},
}

// validateStages checks that every stage only reads resources written
// before it and that the output is produced.
func validateStages(stages []stage) error {
	written := map[resource]bool{resColor: true, resDepth: true}
	for _, s := range stages {
		for _, in := range s.inputs {
			if !written[in] {
				return fmt.Errorf("dof: stage %s reads %s before it is written", s.name, in)
			}
		}
		for _, out := range s.outputs {
			if out == resColor || out == resDepth {
				return fmt.Errorf("dof: stage %s writes read-only input %s", s.name, out)
			}
			written[out] = true
		}
	}
	if !written[resOutput] {
		return fmt.Errorf("dof: no stage writes the output")
	}
	return nil
}

// pipeline is the resolved, validated stage list.
type pipeline struct {
	stages   []stage
	dispatch *parallel.Dispatcher
	log      *slog.Logger
}

// newPipeline binds each stage to its program.
func newPipeline(layout []stage, progs *Programs, dispatch *parallel.Dispatcher, log *slog.Logger) (*pipeline, error) {
	if err := validateStages(layout); err != nil {
		return nil, err
	}
	stages := make([]stage, len(layout))
	for i, s := range layout {
		prog, err := progs.Resolve(s.program)
		if err != nil {
			return nil, fmt.Errorf("dof: stage %s: %w", s.name, err)
		}
		if prog.run == nil {
			return nil, fmt.Errorf("dof: stage %s: %w: %q has no kernel", s.name, ErrProgramNotFound, s.program)
		}
		s.run = prog.run
		stages[i] = s
	}
	return &pipeline{stages: stages, dispatch: dispatch, log: log}, nil
}

// run executes every stage in order. Each stage returns only after all of
// its row bands are written, which orders it before the next stage.
func (pl *pipeline) run(p *passParams) {
	debug := pl.log.Enabled(context.Background(), slog.LevelDebug)
	var total time.Time
	if debug {
		total = time.Now()
	}
	for _, s := range pl.stages {
		var start time.Time
		if debug {
			start = time.Now()
		}
		s.run(p, pl.dispatch)
		if debug {
			pl.log.Debug("dof: stage done", "stage", s.name, "elapsed", time.Since(start))
		}
	}
	if debug {
		pl.log.Debug("dof: frame done", "stages", len(pl.stages), "elapsed", time.Since(total))
	}
}
