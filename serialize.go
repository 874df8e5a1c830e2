// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package dof

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedVersion is returned when a parameter blob has an unknown version.
var ErrUnsupportedVersion = errors.New("dof: unsupported parameter version")

// Parameter blob versions. Version 1 predates the blend factor.
const (
	paramsVersion1 = 1
	paramsVersion  = 2
)

// paramsBlob is the serialized form of OpticalParams.
type paramsBlob struct {
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// SaveParameters writes the current parameters as a versioned JSON blob.
func (d *DepthOfField) SaveParameters(w io.Writer) error {
	return EncodeParams(w, d.Params())
}

// LoadParameters replaces the parameters with a blob written by
// SaveParameters. The parameters are validated and the bokeh table is
// recomputed on the next frame. On error the current parameters are kept.
func (d *DepthOfField) LoadParameters(r io.Reader) error {
	p, err := DecodeParams(r)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = p
	d.recalcBokeh = true
	return nil
}

// EncodeParams writes p as a versioned JSON blob.
func EncodeParams(w io.Writer, p OpticalParams) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("dof: encode parameters: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(paramsBlob{Version: paramsVersion, Params: raw}); err != nil {
		return fmt.Errorf("dof: write parameters: %w", err)
	}
	return nil
}

// DecodeParams reads and validates a versioned JSON parameter blob.
// Fields missing from the blob keep their default values; version 1
// blobs always load with BlendFactor 1.
func DecodeParams(r io.Reader) (OpticalParams, error) {
	var blob paramsBlob
	if err := json.NewDecoder(r).Decode(&blob); err != nil {
		return OpticalParams{}, fmt.Errorf("dof: read parameters: %w", err)
	}
	if blob.Version < paramsVersion1 || blob.Version > paramsVersion {
		return OpticalParams{}, fmt.Errorf("%w: %d (supported %d to %d)",
			ErrUnsupportedVersion, blob.Version, paramsVersion1, paramsVersion)
	}
	if len(blob.Params) == 0 {
		return OpticalParams{}, fmt.Errorf("%w: missing params", ErrInvalidParams)
	}

	p := DefaultOpticalParams()
	if err := json.Unmarshal(blob.Params, &p); err != nil {
		return OpticalParams{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if blob.Version == paramsVersion1 {
		p.BlendFactor = 1
	}
	if err := p.Validate(); err != nil {
		return OpticalParams{}, err
	}
	return p, nil
}
