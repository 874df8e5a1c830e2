// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import "math"

// ParameterUI is the immediate mode widget toolkit of a debug overlay.
// Each input method edits *v in place and reports whether it changed.
type ParameterUI interface {
	TreeNode(label string) bool
	TreePop()
	InputFloat(label string, v *float32, step float32) bool
	InputInt(label string, v *int, step int) bool
	SliderFloat(label string, v *float32, lo, hi float32) bool
}

// Widget labels.
const (
	labelTree          = "DepthOfField Parameters"
	labelFocus         = "Focus Plane"
	labelImageDistance = "Image Distance"
	labelFStops        = "f-Stops"
	labelFStopsMin     = "f-Stops Min"
	labelFStopsMax     = "f-Stops Max"
	labelBokehShape    = "Bokeh Blades"
	labelRotate        = "Bokeh Rotation"
	labelBlend         = "Blend Factor"
)

// RenderParameterSliders draws the lens parameters into ui.
//
// Edits go through the validated setters: an edit that would produce an
// invalid parameter set is dropped and the widget shows the current value
// again on the next frame.
func (d *DepthOfField) RenderParameterSliders(ui ParameterUI) {
	if ui == nil || !ui.TreeNode(labelTree) {
		return
	}
	defer ui.TreePop()

	p := d.Params()
	if ui.InputFloat(labelFocus, &p.FocusDistance, 0.005) {
		d.logEdit(labelFocus, d.SetFocusDistance(p.FocusDistance))
	}
	if ui.InputFloat(labelImageDistance, &p.ImageDistance, 0.001) {
		d.logEdit(labelImageDistance, d.SetImageDistance(p.ImageDistance))
	}
	if ui.SliderFloat(labelFStops, &p.FStops, p.FStopsMin, p.FStopsMax) {
		d.logEdit(labelFStops, d.SetFStops(p.FStops))
	}
	if ui.InputFloat(labelFStopsMin, &p.FStopsMin, 0.1) {
		d.logEdit(labelFStopsMin, d.SetFStopRange(p.FStopsMin, p.FStopsMax))
	}
	if ui.InputFloat(labelFStopsMax, &p.FStopsMax, 0.1) {
		d.logEdit(labelFStopsMax, d.SetFStopRange(p.FStopsMin, p.FStopsMax))
	}
	if ui.InputInt(labelBokehShape, &p.BokehShape, 1) {
		d.logEdit(labelBokehShape, d.SetBokehShape(p.BokehShape))
	}
	if ui.SliderFloat(labelRotate, &p.RotateBokehMax, 0, 2*math.Pi) {
		d.logEdit(labelRotate, d.SetRotateBokehMax(p.RotateBokehMax))
	}
	if ui.SliderFloat(labelBlend, &p.BlendFactor, 0, 1) {
		d.logEdit(labelBlend, d.SetBlendFactor(p.BlendFactor))
	}
}

func (d *DepthOfField) logEdit(label string, err error) {
	if err != nil {
		d.log.Debug("dof: parameter edit rejected", "widget", label, "err", err)
	}
}
