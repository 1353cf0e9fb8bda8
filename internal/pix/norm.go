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
	"github.com/mlnoga/filmic/internal/profile"
)

// Smallest usable pixel norm, 2^-16. Values below this are noise for sure,
// and letting them into a log encoding amplifies them into pepper noise.
const NormMin = 1.52587890625e-05

// Method for reducing a 3-channel pixel to a scalar brightness proxy
type NormMethod int32

const (
	NormNone      NormMethod = iota // no norm, channels are processed independently
	NormMaxRGB                      // max(R,G,B)
	NormLuminance                   // profile-weighted luminance Y
	NormPower                       // sum |c|^3 / sum c^2
	NormEuclidean                   // sqrt(R^2+G^2+B^2)
)

// Computes the scalar norm of a pixel under the given method.
// An unknown method falls back to luminance.
func Norm(r, g, b float32, method NormMethod, prof *profile.Profile) float32 {
	switch method {
	case NormMaxRGB:
		return Max3(r, g, b)

	case NormPower:
		return powerNorm(r, g, b)

	case NormEuclidean:
		return float32(math.Sqrt(float64(r*r + g*g + b*b)))

	default:
		return prof.Luminance(r, g, b)
	}
}

// Weird norm, sort of perceptual: (R^3+G^3+B^3)/(R^2+G^2+B^2).
// The denominator is floored to keep near-zero pixels from dividing by zero.
func powerNorm(r, g, b float32) float32 {
	numerator, denominator:=float32(0), float32(0)
	for _,c:=range [3]float32{r,g,b} {
		value:=float32(math.Abs(float64(c)))
		square:=value*value
		numerator  +=square*value
		denominator+=square
	}
	if denominator<1e-12 { denominator=1e-12 }
	return numerator/denominator
}

func Max3(a, b, c float32) float32 {
	if b>a { a=b }
	if c>a { a=c }
	return a
}

func Min3(a, b, c float32) float32 {
	if b<a { a=b }
	if c<a { a=c }
	return a
}

// Returns the argument with the larger absolute value
func MaxAbs(a, b float32) float32 {
	if math.Abs(float64(a))>math.Abs(float64(b)) { return a }
	return b
}

// Returns the argument with the smaller absolute value
func MinAbs(a, b float32) float32 {
	if math.Abs(float64(a))<math.Abs(float64(b)) { return a }
	return b
}
