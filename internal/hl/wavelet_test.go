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
	"math"
	"testing"

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/pix"
)

func TestNumScales(t *testing.T) {
	tests:=[]struct{ width, height int32; scale, iscale float32; want int }{
		{16, 16, 1, 1, 1},
		{64, 64, 1, 1, 2},
		{64, 32, 1, 1, 2},
		{4096, 4096, 1, 1, 8},
		{65536, 65536, 1, 1, MaxScales},
		{4096, 4096, 0.25, 1, 6}, // zoomed out processing needs fewer scales
	}
	for _, tt:=range tests {
		got:=NumScales(tt.width, tt.height, tt.scale, tt.iscale)
		if got!=tt.want {
			t.Errorf("NumScales(%d, %d, %g, %g)=%d; want %d", tt.width, tt.height, tt.scale, tt.iscale, got, tt.want)
		}
	}
}

func TestBlurBsplinePreservesConstant(t *testing.T) {
	width, height:=11, 7
	in:=make([]float32, width*height*pix.Channels)
	tmp:=make([]float32, width*height*pix.Channels)
	out:=make([]float32, width*height*pix.Channels)
	for k:=0; k<len(in); k+=pix.Channels {
		in[k], in[k+1], in[k+2]=0.75, 0.5, 0.25
	}

	for _, mult:=range []int{1, 2, 4} {
		blurBsplineAlongX(in, tmp, width, height, mult, 2)
		blurBsplineAlongY(tmp, out, width, height, mult, 2)
		for k:=0; k<len(out); k+=pix.Channels {
			for c, want:=range []float32{0.75, 0.5, 0.25} {
				if got:=out[k+c]; math.Abs(float64(got-want))>1e-5 {
					t.Fatalf("mult %d pixel %d channel %d: blurred constant is %f; want %f", mult, k/pix.Channels, c, got, want)
				}
			}
		}
	}
}

func TestBlurBsplineWeightsSumToOne(t *testing.T) {
	var sum float32
	for _, w:=range bspline { sum+=w }
	if math.Abs(float64(sum-1))>1e-6 {
		t.Errorf("B-spline filter weights sum to %f; want 1", sum)
	}
}

func TestWaveletDetailLevelTexture(t *testing.T) {
	width, height:=2, 1
	detail:=[]float32{0.7, -0.6, 0.1, 1, 0.3, 0.3, 0.3, 1}
	lf:=[]float32{0.2, 0.2, 0.2, 1, 0.3, 0.3, 0.3, 1}
	hf:=make([]float32, len(detail))
	texture:=make([]float32, width*height)

	// RGB texture keeps the strongest high frequency, signed
	waveletDetailLevel(detail, lf, hf, texture, width, height, 1, false)
	if got:=texture[0]; math.Abs(float64(got+0.8))>1e-6 {
		t.Errorf("RGB texture=%f; want -0.8", got)
	}
	if got:=texture[1]; got!=0 {
		t.Errorf("RGB texture on flat pixel=%f; want 0", got)
	}
	want:=[]float32{0.5, -0.8, -0.1}
	for c:=0; c<3; c++ {
		if math.Abs(float64(hf[c]-want[c]))>1e-6 {
			t.Errorf("hf[%d]=%f; want %f", c, hf[c], want[c])
		}
	}

	// ratio texture keeps the weakest
	waveletDetailLevel(detail, lf, hf, texture, width, height, 1, true)
	if got:=texture[0]; math.Abs(float64(got+0.1))>1e-6 {
		t.Errorf("ratio texture=%f; want -0.1", got)
	}
}

func TestInitReconstructBlendsByMask(t *testing.T) {
	width, height:=2, 1
	in:=[]float32{1, 2, 3, 4, 5, 6, 7, 8}
	mask:=[]float32{0.25, 1}
	out:=make([]float32, len(in))

	initReconstruct(in, mask, out, width, height, 1)
	want:=[]float32{0.75, 1.5, 2.25, 3, 0, 0, 0, 0}
	for i:=range want {
		if math.Abs(float64(out[i]-want[i]))>1e-6 {
			t.Errorf("out[%d]=%f; want %f", i, out[i], want[i])
		}
	}
}

func TestRecoverZeroMaskIsIdentity(t *testing.T) {
	d:=commitDefaults(t)
	img:=pix.NewImage(16, 12)
	for k:=0; k<len(img.Data); k+=pix.Channels {
		img.Data[k]=0.1 + float32(k)*1e-4
		img.Data[k+1]=0.2 + float32(k)*2e-4
		img.Data[k+2]=0.3 + float32(k)*0.5e-4
		img.Data[k+3]=1
	}
	mask:=make([]float32, 16*12)

	got, err:=Recover(img, mask, d, nil, 1, 64, 2)
	if err!=nil { t.Fatal(err.Error()) }
	for i:=range img.Data {
		if math.Abs(float64(got.Data[i]-img.Data[i]))>1e-5 {
			t.Errorf("data[%d]=%f after no-op recovery; want %f", i, got.Data[i], img.Data[i])
		}
	}
}

func TestRecoverSmoothsClippedPatch(t *testing.T) {
	d:=commitDefaults(t)
	width, height:=int32(32), int32(32)
	img:=newUniformImage(width, height, 0.5)
	for y:=12; y<20; y++ {
		for x:=12; x<20; x++ {
			k:=(y*32 + x)*pix.Channels
			img.Data[k], img.Data[k+1], img.Data[k+2]=64, 64, 64
		}
	}
	mask, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 2)
	if !worthIt { t.Fatal("expected clipped patch to trigger recovery") }

	got, err:=Recover(img, mask, d, nil, 1, 256, 2)
	if err!=nil { t.Fatal(err.Error()) }

	// valid pixels far from the patch stay put
	if v:=got.Data[0]; math.Abs(float64(v-0.5))>1e-3 {
		t.Errorf("corner pixel=%f after recovery; want 0.5", v)
	}
	// reconstructed pixels stay finite and the patch keeps highlight energy
	center:=(16*32 + 16)*pix.Channels
	for c:=0; c<3; c++ {
		v:=got.Data[center+c]
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("channel %d not finite after recovery: %f", c, v)
		}
		if v<=0.5 {
			t.Errorf("channel %d=%f in recovered patch; want above surround 0.5", c, v)
		}
	}
}

func TestRecoverFlatPatchWithoutNoise(t *testing.T) {
	p:=filmic.NewParamsDefault()
	p.NoiseLevel=0 // no inpainting noise, so the high frequencies vanish on flat regions
	d, err:=p.Commit()
	if err!=nil { t.Fatal(err.Error()) }

	img:=newUniformImage(48, 48, 0.1845)
	for y:=16; y<32; y++ {
		for x:=16; x<32; x++ {
			k:=(y*48 + x)*pix.Channels
			img.Data[k], img.Data[k+1], img.Data[k+2]=64, 64, 64
		}
	}
	mask, worthIt:=MaskClippedPixels(img, d.ReconstructThreshold, d.ReconstructFeather, 2)
	if !worthIt { t.Fatal("expected flat clipped patch to trigger recovery") }

	got, err:=Recover(img, mask, d, nil, 1, 256, 2)
	if err!=nil { t.Fatal(err.Error()) }
	for i, v:=range got.Data {
		if math.IsNaN(float64(v)) {
			t.Fatalf("data[%d] is NaN after recovery of a flat clipped patch", i)
		}
	}
}

func TestRecoverMemoryBudget(t *testing.T) {
	d:=commitDefaults(t)
	img:=newUniformImage(1024, 1024, 0.5)
	mask:=make([]float32, 1024*1024)

	// 1 MB cannot hold the wavelet scratch buffers for a megapixel image
	if _, err:=Recover(img, mask, d, nil, 1, 1, 2); err==nil {
		t.Errorf("recovery within 1MB budget succeeded; want ErrCannotAllocate")
	}
}
