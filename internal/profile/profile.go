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


package profile

// A working color profile, reduced to what tone mapping needs: the RGB to XYZ
// matrix of the working space, plus optional per-channel tone curves sampled
// into lookup tables. The profile is consumed as opaque data; building one
// from an ICC file is the caller's business.
type Profile struct {
	MatrixIn     [9]float32   `json:"matrixIn"`     // row-major 3x3 RGB to XYZ matrix
	LutIn        [3][]float32 `json:"lutIn"`        // per-channel tone curves over [0,1], nil=linear
	NonlinearLut bool         `json:"nonlinearLut"` // true if any LutIn channel is non-identity
}

// Rec 709 luma weights, used when no working profile is available
const (
	fallbackWeightR = 0.2126
	fallbackWeightG = 0.7152
	fallbackWeightB = 0.0722
)

// Returns the profile-weighted luminance Y of a linear RGB pixel: the second
// row of the RGB to XYZ matrix applied to the (optionally LUT-corrected)
// channel values. A nil profile falls back to fixed Rec 709 weights.
func (p *Profile) Luminance(r, g, b float32) float32 {
	if p==nil {
		return fallbackWeightR*r + fallbackWeightG*g + fallbackWeightB*b
	}
	if p.NonlinearLut {
		r=lookup(p.LutIn[0], r)
		g=lookup(p.LutIn[1], g)
		b=lookup(p.LutIn[2], b)
	}
	return p.MatrixIn[3]*r + p.MatrixIn[4]*g + p.MatrixIn[5]*b
}

// Evaluates a tone curve sampled over [0,1] with linear interpolation.
// Inputs below 0 clamp to the first entry; inputs above 1 extrapolate
// linearly from the last segment, so highlights stay unbounded.
func lookup(lut []float32, x float32) float32 {
	l:=len(lut)
	if l==0 { return x }
	if l==1 { return lut[0] }

	pos:=x*float32(l-1)
	if pos<=0 { return lut[0] }
	if pos>=float32(l-1) {
		// unbounded extrapolation from the slope of the last segment
		slope:=(lut[l-1]-lut[l-2])*float32(l-1)
		return lut[l-1] + slope*(x-1)
	}
	i:=int(pos)
	frac:=pos-float32(i)
	return lut[i]*(1-frac) + lut[i+1]*frac
}
