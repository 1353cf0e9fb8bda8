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


package film

import (
	"encoding/json"
	"io"
	"math"
	"testing"

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/ops"
	"github.com/mlnoga/filmic/internal/pix"
)

func testContext() *ops.Context {
	return &ops.Context{Log: io.Discard, MemoryMB: 512, MaxThreads: 2, NoiseSeed: 1}
}

func newUniformImage(width, height int32, v float32) *pix.Image {
	img:=pix.NewImage(width, height)
	for k:=0; k<len(img.Data); k+=pix.Channels {
		img.Data[k], img.Data[k+1], img.Data[k+2], img.Data[k+3]=v, v, v, 1
	}
	return img
}

func TestFilmicMapsMiddleGreyToTarget(t *testing.T) {
	op:=NewOpFilmicDefault()
	op.FastMode=true
	img:=newUniformImage(8, 8, 0.1845)

	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	for c:=0; c<3; c++ {
		if got:=out.Data[c]; math.Abs(float64(got-0.1845))>0.01 {
			t.Errorf("channel %d: middle grey maps to %f; want 0.1845", c, got)
		}
	}
	if out.Data[3]!=1 { t.Errorf("alpha=%f; want 1", out.Data[3]) }
}

func TestFilmicSplitChannels(t *testing.T) {
	op:=NewOpFilmicDefault()
	op.FastMode=true
	op.PreserveColor=pix.NormNone
	img:=newUniformImage(8, 8, 0.1845)

	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if got:=out.Data[0]; math.Abs(float64(got-0.1845))>0.01 {
		t.Errorf("middle grey maps to %f in split channel mode; want 0.1845", got)
	}
}

func TestFilmicReconstructsHighlights(t *testing.T) {
	op:=NewOpFilmicDefault()
	op.FastMode=false
	img:=newUniformImage(32, 32, 0.1845)
	for y:=12; y<20; y++ {
		for x:=12; x<20; x++ {
			k:=(y*32 + x)*pix.Channels
			img.Data[k], img.Data[k+1], img.Data[k+2]=64, 64, 64
		}
	}

	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	center:=(16*32 + 16)*pix.Channels
	for c:=0; c<3; c++ {
		v:=out.Data[center+c]
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("channel %d not finite after reconstruction: %f", c, v)
		}
		if v<0 || v>1.0001 {
			t.Errorf("channel %d=%f after tone mapping; want within [0,1]", c, v)
		}
	}
}

func TestFilmicSkipsNonRGB(t *testing.T) {
	op:=NewOpFilmicDefault()
	img:=newUniformImage(4, 4, 0.5)
	img.Colors=1
	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if out!=img { t.Errorf("single channel input not passed through unmodified") }
}

func TestFilmicInactivePassesThrough(t *testing.T) {
	op:=NewOpFilmicDefault()
	op.Active=false
	img:=newUniformImage(4, 4, 0.5)
	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if out!=img { t.Errorf("inactive operator did not pass through its input") }
}

func TestFilmicShowMask(t *testing.T) {
	op:=NewOpFilmicDefault()
	op.ShowMask=true
	img:=newUniformImage(8, 8, 0.1845)
	k:=(3*8 + 3)*pix.Channels
	img.Data[k], img.Data[k+1], img.Data[k+2]=100, 100, 100

	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if !pix.EqualShape(img, out) { t.Fatal("mask output has different shape") }
	if got:=out.Data[(3*8+3)*pix.Channels]; got<0.9 {
		t.Errorf("mask=%f on clipped pixel; want >0.9", got)
	}
	if got:=out.Data[0]; got>1e-3 {
		t.Errorf("mask=%g on valid pixel; want ~0", got)
	}
}

func TestFilmicUnmarshalFillsDefaults(t *testing.T) {
	data:=[]byte(`{"type":"filmic", "active":true, "contrast":1.2}`)
	op:=&OpFilmic{}
	if err:=json.Unmarshal(data, op); err!=nil { t.Fatal(err.Error()) }

	if op.Contrast!=1.2 {
		t.Errorf("contrast=%f; want given value 1.2", op.Contrast)
	}
	def:=filmic.NewParamsDefault()
	if op.Latitude!=def.Latitude {
		t.Errorf("latitude=%f; want default %f", op.Latitude, def.Latitude)
	}
	if op.PreserveColor!=def.PreserveColor {
		t.Errorf("preserveColor=%d; want default %d", op.PreserveColor, def.PreserveColor)
	}
	if op.OpUnaryBase.Apply==nil {
		t.Errorf("unmarshaled operator has no Apply method bound")
	}
}

func TestFilmicInSequenceJSON(t *testing.T) {
	data:=[]byte(`{"type":"seq", "active":true, "steps":[
		{"type":"filmic", "active":true, "blackPointSource":-10}
	]}`)
	seq:=&ops.OpSequence{}
	if err:=json.Unmarshal(data, seq); err!=nil { t.Fatal(err.Error()) }
	if len(seq.Steps)!=1 { t.Fatalf("sequence has %d steps; want 1", len(seq.Steps)) }

	op, ok:=seq.Steps[0].(*OpFilmic)
	if !ok { t.Fatalf("step has type %T; want *OpFilmic", seq.Steps[0]) }
	if op.BlackPointSource!=-10 {
		t.Errorf("blackPointSource=%f; want -10", op.BlackPointSource)
	}
	if op.WhitePointSource!=4 {
		t.Errorf("whitePointSource=%f; want default 4", op.WhitePointSource)
	}
}

func TestShowMaskOperator(t *testing.T) {
	op:=NewOpShowMask(3, 3, true)
	img:=newUniformImage(8, 8, 0.1845)
	k:=(2*8 + 5)*pix.Channels
	img.Data[k], img.Data[k+1], img.Data[k+2]=200, 200, 200

	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if out.Width!=img.Width || out.Height!=img.Height {
		t.Fatalf("heatmap is %s; want %s", out.DimensionsToString(), img.DimensionsToString())
	}
	if out.ID!=img.ID || out.FileName!=img.FileName {
		t.Errorf("heatmap did not inherit image identity")
	}

	clipped:=out.Data[(2*8+5)*pix.Channels : (2*8+5)*pix.Channels+3]
	valid:=out.Data[0:3]
	var clippedSum, validSum float32
	for c:=0; c<3; c++ { clippedSum+=clipped[c]; validSum+=valid[c] }
	if clippedSum<=validSum {
		t.Errorf("clipped pixel heat %f not above valid pixel heat %f", clippedSum, validSum)
	}
}

func TestShowMaskSkipsNonRGB(t *testing.T) {
	op:=NewOpShowMask(3, 3, true)
	img:=newUniformImage(4, 4, 0.5)
	img.Colors=1
	out, err:=op.Apply(img, testContext())
	if err!=nil { t.Fatal(err.Error()) }
	if out!=img { t.Errorf("single channel input not passed through unmodified") }
}
