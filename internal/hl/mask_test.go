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


package hl

import (
	"testing"

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/pix"
)

func commitDefaults(t *testing.T) *filmic.Data {
	t.Helper()
	d, err:=filmic.NewParamsDefault().Commit()
	if err!=nil { t.Fatal(err.Error()) }
	return d
}

func newUniformImage(width, height int32, v float32) *pix.Image {
	img:=pix.NewImage(width, height)
	for k:=0; k<len(img.Data); k+=pix.Channels {
		img.Data[k], img.Data[k+1], img.Data[k+2], img.Data[k+3]=v, v, v, 1
	}
	return img
}

func TestMaskMiddleGreyNotWorthIt(t *testing.T) {
	d:=commitDefaults(t)
	img:=newUniformImage(16, 16, 0.1845)

	mask, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 2)
	if worthIt {
		t.Errorf("recovery on middle grey reported worth it; want skip")
	}
	for i, w:=range mask {
		if w>1e-3 {
			t.Errorf("mask[%d]=%g on middle grey; want ~0", i, w)
		}
	}
}

func TestMaskClippedPatch(t *testing.T) {
	d:=commitDefaults(t)
	img:=newUniformImage(16, 16, 0.1845)

	// a 4x3 patch far above the clipping threshold
	for y:=4; y<7; y++ {
		for x:=4; x<8; x++ {
			k:=(y*16 + x)*pix.Channels
			img.Data[k], img.Data[k+1], img.Data[k+2]=100, 100, 100
		}
	}

	mask, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 2)
	if !worthIt {
		t.Errorf("12 clipped pixels reported not worth it; want recovery")
	}
	for y:=4; y<7; y++ {
		for x:=4; x<8; x++ {
			if w:=mask[y*16+x]; w<0.9 {
				t.Errorf("mask[%d,%d]=%f on clipped pixel; want >0.9", x, y, w)
			}
		}
	}
	if w:=mask[0]; w>1e-3 {
		t.Errorf("mask[0,0]=%g on valid pixel; want ~0", w)
	}
}

func TestMaskCensusThreshold(t *testing.T) {
	d:=commitDefaults(t)
	img:=newUniformImage(16, 16, 0.1845)

	// exactly 9 clipped pixels are not enough to pay for recovery
	for i:=0; i<9; i++ {
		k:=i*pix.Channels
		img.Data[k], img.Data[k+1], img.Data[k+2]=100, 100, 100
	}
	if _, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 1); worthIt {
		t.Errorf("9 clipped pixels reported worth it; want skip")
	}

	// the tenth tips the census
	k:=9*pix.Channels
	img.Data[k], img.Data[k+1], img.Data[k+2]=100, 100, 100
	if _, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 1); !worthIt {
		t.Errorf("10 clipped pixels reported not worth it; want recovery")
	}
}

func TestMaskWeightsInRange(t *testing.T) {
	d:=commitDefaults(t)
	img:=newUniformImage(8, 8, 0)
	for k:=0; k<len(img.Data); k+=pix.Channels {
		img.Data[k]=float32(k)*2 // ramp across and beyond the threshold
	}

	mask, _:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 2)
	for i, w:=range mask {
		if w<0 || w>1 {
			t.Errorf("mask[%d]=%f; want within [0,1]", i, w)
		}
	}
}
