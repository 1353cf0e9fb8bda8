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
	"math"
	"testing"
)

// evaluates one polynomial segment of the spline: 0=toe, 1=shoulder, 2=latitude
func splineSegment(s *Spline, i int, x float32) float32 {
	return s.M1[i] + x*(s.M2[i]+x*(s.M3[i]+x*(s.M4[i]+x*s.M5[i])))
}

// evaluates the derivative of one polynomial segment
func splineSegmentSlope(s *Spline, i int, x float32) float32 {
	return s.M2[i] + x*(2*s.M3[i]+x*(3*s.M4[i]+x*4*s.M5[i]))
}

func TestSplineContinuity(t *testing.T) {
	epsilon:=1e-4
	curves:=[]CurveType{CurvePoly4, CurvePoly3}

	for _, shadows:=range curves {
		for _, highlights:=range curves {
			p:=NewParamsDefault()
			p.Shadows=shadows
			p.Highlights=highlights
			s, err:=computeSpline(p)
			if err!=nil { t.Fatalf("shadows=%d highlights=%d: %s", shadows, highlights, err.Error()) }

			// value and slope of toe and latitude must agree at the toe node
			tl:=s.LatitudeMin
			if d:=math.Abs(float64(splineSegment(s, 0, tl)-splineSegment(s, 2, tl))); d>epsilon {
				t.Errorf("shadows=%d: toe value gap %g at x=%f", shadows, d, tl)
			}
			if d:=math.Abs(float64(splineSegmentSlope(s, 0, tl)-splineSegmentSlope(s, 2, tl))); d>epsilon {
				t.Errorf("shadows=%d: toe slope gap %g at x=%f", shadows, d, tl)
			}

			// same for shoulder and latitude at the shoulder node
			sl:=s.LatitudeMax
			if d:=math.Abs(float64(splineSegment(s, 1, sl)-splineSegment(s, 2, sl))); d>epsilon {
				t.Errorf("highlights=%d: shoulder value gap %g at x=%f", highlights, d, sl)
			}
			if d:=math.Abs(float64(splineSegmentSlope(s, 1, sl)-splineSegmentSlope(s, 2, sl))); d>epsilon {
				t.Errorf("highlights=%d: shoulder slope gap %g at x=%f", highlights, d, sl)
			}
		}
	}
}

func TestSplineInterpolatesNodes(t *testing.T) {
	epsilon:=1e-4
	p:=NewParamsDefault()
	s, err:=computeSpline(p)
	if err!=nil { t.Fatal(err.Error()) }

	for i:=0; i<5; i++ {
		y:=s.Value(s.X[i])
		if math.Abs(float64(y-s.Y[i]))>epsilon {
			t.Errorf("Value(x[%d]=%f)=%f; want %f", i, s.X[i], y, s.Y[i])
		}
	}
}

func TestSplineMonotone(t *testing.T) {
	p:=NewParamsDefault()
	s, err:=computeSpline(p)
	if err!=nil { t.Fatal(err.Error()) }

	steps:=256
	prev:=s.Value(0)
	for i:=1; i<=steps; i++ {
		x:=float32(i)/float32(steps)
		y:=s.Value(x)
		if y<prev-1e-5 {
			t.Errorf("Value(%f)=%f < Value(%f)=%f; curve not monotone", x, y, float32(i-1)/float32(steps), prev)
		}
		prev=y
	}
}

func TestSplineLatitudeSlopeIsContrast(t *testing.T) {
	p:=NewParamsDefault()
	s, err:=computeSpline(p)
	if err!=nil { t.Fatal(err.Error()) }

	if math.Abs(float64(s.M2[2]-p.Contrast))>1e-6 {
		t.Errorf("latitude slope=%f; want %f", s.M2[2], p.Contrast)
	}
	if s.M3[2]!=0 || s.M4[2]!=0 || s.M5[2]!=0 {
		t.Errorf("latitude segment not affine: %f %f %f", s.M3[2], s.M4[2], s.M5[2])
	}
}
