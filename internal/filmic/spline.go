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


package filmic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Piecewise polynomial S-curve over log-encoded luminance in [0,1].
// Three segments share value and slope at the latitude bounds: a curved toe
// below LatitudeMin, the affine latitude up to LatitudeMax, and a curved
// shoulder above. Coefficient slot 0 is the toe, 1 the shoulder, 2 the
// latitude; Mn holds the factor of x^(n-1).
type Spline struct {
	X, Y                     [5]float32 // node coordinates: black, toe, grey, shoulder, white
	M1, M2, M3, M4, M5       [3]float32
	LatitudeMin, LatitudeMax float32
}

// Evaluates the curve at log-encoded luminance x via Horner's rule.
func (s *Spline) Value(x float32) float32 {
	var i int
	switch {
	case x<s.LatitudeMin:
		i=0
	case x>s.LatitudeMax:
		i=1
	default:
		i=2
	}
	return s.M1[i] + x*(s.M2[i]+x*(s.M3[i]+x*(s.M4[i]+x*s.M5[i])))
}

// Places the five curve nodes from the parameters and solves the toe and
// shoulder polynomials so they continue the latitude segment with matching
// value, slope and zero curvature at the junctions. Quartic segments
// additionally pin the slope to zero at the domain boundary.
func computeSpline(p *Params) (*Spline, error) {
	greyDisplay:=float32(math.Pow(0.1845, float64(1.0/p.OutputPower)))
	if p.CustomGrey {
		greyDisplay=float32(math.Pow(float64(clampf(p.GreyPointTarget, p.BlackPointTarget, p.WhitePointTarget)/100.0),
			float64(1.0/p.OutputPower)))
	}

	whiteSource:=p.WhitePointSource
	blackSource:=p.BlackPointSource
	dynamicRange:=whiteSource - blackSource

	// luminance after log encoding; black maps to 0 and white to 1 by construction
	blackLog:=float32(0.0)
	greyLog:=float32(math.Abs(float64(blackSource)))/dynamicRange
	whiteLog:=float32(1.0)

	blackDisplay:=clampf(p.BlackPointTarget, 0.0, p.GreyPointTarget)/100.0
	whiteDisplay:=clampf(p.WhitePointTarget, p.GreyPointTarget, 100.0)/100.0

	latitude:=clampf(p.Latitude, 0.0, 100.0)/100.0*dynamicRange
	balance:=clampf(p.Balance, -50.0, 50.0)/100.0
	contrast:=clampf(p.Contrast, 0.1, 2.0)

	toeLog:=greyLog - latitude/dynamicRange*float32(math.Abs(float64(blackSource/dynamicRange)))
	shoulderLog:=greyLog + latitude/dynamicRange*float32(math.Abs(float64(whiteSource/dynamicRange)))

	linearIntercept:=greyDisplay - contrast*greyLog
	toeDisplay:=toeLog*contrast + linearIntercept
	shoulderDisplay:=shoulderLog*contrast + linearIntercept

	// apply the shadows/highlights balance as a shift along the latitude slope
	norm:=float32(math.Sqrt(float64(contrast*contrast + 1.0)))
	coeff:=-(2.0*latitude/dynamicRange)*balance
	toeDisplay+=coeff*contrast/norm
	shoulderDisplay+=coeff*contrast/norm
	toeLog+=coeff/norm
	shoulderLog+=coeff/norm

	s:=&Spline{
		X: [5]float32{blackLog, toeLog, greyLog, shoulderLog, whiteLog},
		Y: [5]float32{blackDisplay, toeDisplay, greyDisplay, shoulderDisplay, whiteDisplay},
	}
	s.LatitudeMin=s.X[1]
	s.LatitudeMax=s.X[3]

	// the latitude is an affine function fixed by slope and the toe node
	s.M2[2]=contrast
	s.M1[2]=s.Y[1] - s.M2[2]*s.X[1]
	s.M3[2]=0
	s.M4[2]=0
	s.M5[2]=0

	tl:=float64(s.X[1])
	tl2:=tl*tl
	tl3:=tl2*tl
	tl4:=tl3*tl

	sl:=float64(s.X[3])
	sl2:=sl*sl
	sl3:=sl2*sl
	sl4:=sl3*sl

	// toe
	if p.Shadows==CurvePoly4 {
		a:=mat.NewDense(5, 5, []float64{
			0, 0, 0, 0, 1, // position at 0
			0, 0, 0, 1, 0, // first derivative at 0
			tl4, tl3, tl2, tl, 1, // position at the toe node
			4*tl3, 3*tl2, 2*tl, 1, 0, // first derivative at the toe node
			12*tl2, 6*tl, 2, 0, 0, // second derivative at the toe node
		})
		b:=mat.NewVecDense(5, []float64{float64(s.Y[0]), 0, float64(s.Y[1]), float64(s.M2[2]), 0})
		var x mat.VecDense
		if err:=x.SolveVec(a, b); err!=nil {
			return nil, fmt.Errorf("singular toe system: %w", err)
		}
		s.M5[0]=float32(x.AtVec(0))
		s.M4[0]=float32(x.AtVec(1))
		s.M3[0]=float32(x.AtVec(2))
		s.M2[0]=float32(x.AtVec(3))
		s.M1[0]=float32(x.AtVec(4))
	} else {
		a:=mat.NewDense(4, 4, []float64{
			0, 0, 0, 1, // position at 0
			tl3, tl2, tl, 1, // position at the toe node
			3*tl2, 2*tl, 1, 0, // first derivative at the toe node
			6*tl, 2, 0, 0, // second derivative at the toe node
		})
		b:=mat.NewVecDense(4, []float64{float64(s.Y[0]), float64(s.Y[1]), float64(s.M2[2]), 0})
		var x mat.VecDense
		if err:=x.SolveVec(a, b); err!=nil {
			return nil, fmt.Errorf("singular toe system: %w", err)
		}
		s.M5[0]=0
		s.M4[0]=float32(x.AtVec(0))
		s.M3[0]=float32(x.AtVec(1))
		s.M2[0]=float32(x.AtVec(2))
		s.M1[0]=float32(x.AtVec(3))
	}

	// shoulder
	if p.Highlights==CurvePoly3 {
		a:=mat.NewDense(4, 4, []float64{
			1, 1, 1, 1, // position at 1
			sl3, sl2, sl, 1, // position at the shoulder node
			3*sl2, 2*sl, 1, 0, // first derivative at the shoulder node
			6*sl, 2, 0, 0, // second derivative at the shoulder node
		})
		b:=mat.NewVecDense(4, []float64{float64(s.Y[4]), float64(s.Y[3]), float64(s.M2[2]), 0})
		var x mat.VecDense
		if err:=x.SolveVec(a, b); err!=nil {
			return nil, fmt.Errorf("singular shoulder system: %w", err)
		}
		s.M5[1]=0
		s.M4[1]=float32(x.AtVec(0))
		s.M3[1]=float32(x.AtVec(1))
		s.M2[1]=float32(x.AtVec(2))
		s.M1[1]=float32(x.AtVec(3))
	} else {
		a:=mat.NewDense(5, 5, []float64{
			1, 1, 1, 1, 1, // position at 1
			4, 3, 2, 1, 0, // first derivative at 1
			sl4, sl3, sl2, sl, 1, // position at the shoulder node
			4*sl3, 3*sl2, 2*sl, 1, 0, // first derivative at the shoulder node
			12*sl2, 6*sl, 2, 0, 0, // second derivative at the shoulder node
		})
		b:=mat.NewVecDense(5, []float64{float64(s.Y[4]), 0, float64(s.Y[3]), float64(s.M2[2]), 0})
		var x mat.VecDense
		if err:=x.SolveVec(a, b); err!=nil {
			return nil, fmt.Errorf("singular shoulder system: %w", err)
		}
		s.M5[1]=float32(x.AtVec(0))
		s.M4[1]=float32(x.AtVec(1))
		s.M3[1]=float32(x.AtVec(2))
		s.M2[1]=float32(x.AtVec(3))
		s.M1[1]=float32(x.AtVec(4))
	}

	return s, nil
}
