// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package film provides the tone compression operators: filmic S-curve
// mapping from scene-referred to display-referred values, with optional
// highlight reconstruction, and mask visualization.
package film

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/hl"
	"github.com/mlnoga/filmic/internal/ops"
	"github.com/mlnoga/filmic/internal/pix"
)

// Compresses the dynamic range of a scene-referred image with a filmic
// S-curve, reconstructing clipped highlights first. Takes one input,
// produces one output
type OpFilmic struct {
	ops.OpUnaryBase
	filmic.Params
	ShowMask bool `json:"showMask"` // output the clipping mask instead of the image
	FastMode bool `json:"fastMode"` // skip highlight reconstruction
}

var _ ops.Operator = (*OpFilmic)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFilmicDefault() })} // register the operator for JSON decoding

func NewOpFilmicDefault() *OpFilmic { return NewOpFilmic(*filmic.NewParamsDefault(), true) }

func NewOpFilmic(params filmic.Params, active bool) *OpFilmic {
	op:=OpFilmic{
		OpUnaryBase : ops.OpUnaryBase{OpBase : ops.OpBase{Type: "filmic", Active: active}},
		Params      : params,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpFilmic) UnmarshalJSON(data []byte) error {
	type defaults OpFilmic
	def:=defaults( *NewOpFilmicDefault() )
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpFilmic(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpFilmic) Apply(f *pix.Image, c *ops.Context) (result *pix.Image, err error) {
	if !op.Active { return f, nil }
	if f.Colors!=3 {
		fmt.Fprintf(c.Log, "%d: Skipping tone mapping, need 3 color channels but input has %d\n", f.ID, f.Colors)
		return f, nil
	}

	d, err:=op.Params.Commit()
	if err!=nil { return nil, err }

	mask, worthIt:=hl.MaskClippedPixels(f, d.ReconstructThreshold, d.ReconstructFeather, c.MaxThreads)

	if op.ShowMask {
		fmt.Fprintf(c.Log, "%d: Showing clipping mask for threshold %.4g\n", f.ID, d.ReconstructThreshold)
		out:=pix.NewImageFromImage(f)
		hl.DisplayMask(mask, out, c.MaxThreads)
		return out, nil
	}

	in:=f
	if !op.FastMode && worthIt {
		fmt.Fprintf(c.Log, "%d: Reconstructing clipped highlights above %.4g with %d scales\n",
			f.ID, d.ReconstructThreshold, hl.NumScales(f.Width, f.Height, f.Scale, f.IScale))
		reconstructed, err:=hl.Recover(f, mask, d, c.WorkProfile, c.NoiseSeed, c.MemoryMB, c.MaxThreads)
		if err==nil {
			in=reconstructed
		} else if errors.Is(err, hl.ErrCannotAllocate) {
			fmt.Fprintf(c.Log, "%d: Highlight reconstruction skipped: %s\n", f.ID, err.Error())
		} else {
			return nil, err
		}
	}

	fmt.Fprintf(c.Log, "%d: Tone mapping %.1f EV of dynamic range with contrast %.2f and output power %.2f\n",
		f.ID, d.DynamicRange, d.Contrast, d.OutputPower)
	out:=pix.NewImageFromImage(f)
	d.ToneMap(in, out, c.WorkProfile, c.MaxThreads)
	out.CopyAlphaFrom(f)
	return out, nil
}


// Renders the clipping mask of its input as a false color heatmap for
// inspection. Takes one input, produces one output
type OpShowMask struct {
	ops.OpUnaryBase
	Threshold float32 `json:"threshold"` // clipping threshold in EV above white
	Feather   float32 `json:"feather"`   // transition softness in EV
}

var _ ops.Operator = (*OpShowMask)(nil) // this type is an Operator
func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpShowMaskDefault() })} // register the operator for JSON decoding

func NewOpShowMaskDefault() *OpShowMask { return NewOpShowMask(3.0, 3.0, false) }

func NewOpShowMask(threshold, feather float32, active bool) *OpShowMask {
	op:=OpShowMask{
		OpUnaryBase : ops.OpUnaryBase{OpBase : ops.OpBase{Type: "showMask", Active: active}},
		Threshold   : threshold,
		Feather     : feather,
	}
	op.OpUnaryBase.Apply=op.Apply // assign class method to superclass abstract method
	return &op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpShowMask) UnmarshalJSON(data []byte) error {
	type defaults OpShowMask
	def:=defaults( *NewOpShowMaskDefault() )
	err:=json.Unmarshal(data, &def)
	if err!=nil { return err }
	*op=OpShowMask(def)
	op.OpUnaryBase.Apply=op.Apply
	return nil
}

func (op *OpShowMask) Apply(f *pix.Image, c *ops.Context) (result *pix.Image, err error) {
	if !op.Active { return f, nil }
	if f.Colors!=3 {
		fmt.Fprintf(c.Log, "%d: Skipping mask display, need 3 color channels but input has %d\n", f.ID, f.Colors)
		return f, nil
	}

	p:=filmic.NewParamsDefault()
	p.ReconstructThreshold=op.Threshold
	p.ReconstructFeather=op.Feather
	d, err:=p.Commit()
	if err!=nil { return nil, err }

	mask, worthIt:=hl.MaskClippedPixels(f, d.ReconstructThreshold, d.ReconstructFeather, c.MaxThreads)
	fmt.Fprintf(c.Log, "%d: Clipping mask for threshold %.4g, reconstruction worth it: %v\n",
		f.ID, d.ReconstructThreshold, worthIt)

	out:=pix.NewHeatmapFromMask(mask, f.Width, f.Height)
	out.ID, out.FileName=f.ID, f.FileName
	return out, nil
}
