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


package pix

import (
	"math"
	"testing"
)

type normTestCase struct {
	R, G, B float32
	Method  NormMethod
	Want    float32
}

func TestNorm(t *testing.T) {
	epsilon:=1e-5
	tcs:=[]normTestCase{
		{0.25, 0.50, 0.75, NormMaxRGB,    0.75},
		{0.75, 0.50, 0.25, NormMaxRGB,    0.75},
		{0.20, 0.20, 0.20, NormLuminance, 0.20},
		{1.00, 0.00, 0.00, NormLuminance, 0.2126},
		{0.00, 1.00, 0.00, NormLuminance, 0.7152},
		{0.00, 0.00, 1.00, NormLuminance, 0.0722},
		{0.50, 0.50, 0.50, NormPower,     0.50},
		{1.00, 0.00, 0.00, NormPower,     1.00},
		{1.00, 1.00, 1.00, NormEuclidean, float32(math.Sqrt(3))},
		{3.00, 4.00, 0.00, NormEuclidean, 5.00},
	}

	for _, tc:=range tcs {
		n:=Norm(tc.R, tc.G, tc.B, tc.Method, nil)
		if math.Abs(float64(n-tc.Want))>epsilon {
			t.Errorf("Norm(%f,%f,%f,%d)=%f; want %f", tc.R, tc.G, tc.B, tc.Method, n, tc.Want)
		}
	}
}

func TestNormNonNegative(t *testing.T) {
	values:=[]float32{-0.5, 0, 0.25, 1.5}
	methods:=[]NormMethod{NormMaxRGB, NormLuminance, NormPower, NormEuclidean}

	for _, m:=range methods {
		if m==NormMaxRGB || m==NormLuminance { continue } // these may go negative on negative inputs
		for _, r:=range values {
			for _, g:=range values {
				for _, b:=range values {
					if n:=Norm(r, g, b, m, nil); n<0 {
						t.Errorf("Norm(%f,%f,%f,%d)=%f; want >=0", r, g, b, m, n)
					}
				}
			}
		}
	}
}

func TestPowerNormDivisionByZero(t *testing.T) {
	n:=Norm(0, 0, 0, NormPower, nil)
	if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		t.Errorf("Norm(0,0,0,power)=%f; want finite", n)
	}
}

func TestComputeRestoreRatiosRoundtrip(t *testing.T) {
	width, height:=int32(8), int32(6)
	in:=NewImage(width, height)
	for i:=range in.Data {
		in.Data[i]=0.1 + 0.01*float32(i%87)
	}

	ratios:=NewImageFromImage(in)
	norms:=make([]float32, width*height)
	ComputeRatios(in, ratios, norms, NormEuclidean, nil, 2)
	RestoreRatios(ratios, norms, 2)

	epsilon:=1e-5
	for k:=0; k<len(in.Data); k+=Channels {
		for c:=0; c<3; c++ {
			if math.Abs(float64(ratios.Data[k+c]-in.Data[k+c]))>epsilon {
				t.Errorf("roundtrip[%d]=%f; want %f", k+c, ratios.Data[k+c], in.Data[k+c])
			}
		}
	}

	for i, n:=range norms {
		if n<NormMin {
			t.Errorf("norms[%d]=%f; want >=%f", i, n, float32(NormMin))
		}
	}
}
