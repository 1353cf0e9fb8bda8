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

	"github.com/mlnoga/filmic/internal/pix"
	"github.com/mlnoga/filmic/internal/profile"
)

// Log encoding relative to middle grey. The first generation floors the
// result at NormMin so fully black pixels keep a nonzero toe input.
func logTonemappingV1(x, grey, black, dynamicRange float32) float32 {
	temp:=(float32(math.Log2(float64(x/grey))) - black)/dynamicRange
	if temp>1.0 { temp=1.0 }
	if temp<pix.NormMin { temp=pix.NormMin }
	return temp
}

func logTonemappingV2(x, grey, black, dynamicRange float32) float32 {
	return clamp01((float32(math.Log2(float64(x/grey))) - black)/dynamicRange)
}

// Desaturation coefficient from two gaussian lobes centered on the curve
// extremities. V1 returns a multiplier in [0,1] applied via linearSaturation,
// V2 returns the saturation itself, faded near toe and shoulder.
func desaturateV1(x, sigmaToe, sigmaShoulder, saturation float32) float32 {
	radiusToe:=x
	radiusShoulder:=1.0 - x
	keyToe:=float32(math.Exp(float64(-0.5*radiusToe*radiusToe/sigmaToe)))
	keyShoulder:=float32(math.Exp(float64(-0.5*radiusShoulder*radiusShoulder/sigmaShoulder)))
	return 1.0 - clamp01((keyToe+keyShoulder)/saturation)
}

func desaturateV2(x, sigmaToe, sigmaShoulder, saturation float32) float32 {
	radiusToe:=x
	radiusShoulder:=1.0 - x
	sat2:=0.5/float32(math.Sqrt(float64(saturation)))
	keyToe:=float32(math.Exp(float64(-radiusToe*radiusToe/sigmaToe*sat2)))
	keyShoulder:=float32(math.Exp(float64(-radiusShoulder*radiusShoulder/sigmaShoulder*sat2)))
	return saturation - (keyToe+keyShoulder)*saturation
}

func linearSaturation(x, luminance, saturation float32) float32 {
	return luminance + saturation*(x-luminance)
}

// Applies the S-curve to in and stores the display-referred result in out,
// which may alias in. Dispatches on the committed chrominance preservation
// mode and color science. Alpha is left untouched.
func (d *Data) ToneMap(in, out *pix.Image, prof *profile.Profile, maxThreads int) {
	if d.PreserveColor==pix.NormNone {
		d.toneMapSplit(in, out, prof, maxThreads)
	} else {
		d.toneMapChroma(in, out, prof, maxThreads)
	}
}

// Tone maps each channel independently. Hue twists on saturated colors are
// the accepted tradeoff, brightness looks more film-like.
func (d *Data) toneMapSplit(in, out *pix.Image, prof *profile.Profile, maxThreads int) {
	width:=int(in.Width)
	pix.ParallelRows(int(in.Height), maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				var temp [3]float32
				for c:=0; c<3; c++ {
					v:=in.Data[k+c]
					if v<pix.NormMin { v=pix.NormMin }
					if d.Version==ColorScienceV1 {
						temp[c]=logTonemappingV1(v, d.GreySource, d.BlackSource, d.DynamicRange)
					} else {
						temp[c]=logTonemappingV2(v, d.GreySource, d.BlackSource, d.DynamicRange)
					}
				}

				lum:=prof.Luminance(temp[0], temp[1], temp[2])
				var desaturation float32
				if d.Version==ColorScienceV1 {
					desaturation=desaturateV1(lum, d.SigmaToe, d.SigmaShoulder, d.Saturation)
				} else {
					desaturation=desaturateV2(lum, d.SigmaToe, d.SigmaShoulder, d.Saturation)
				}

				// desaturate on the non-linear parts of the curve, then apply the
				// S-curve and the display transfer function
				for c:=0; c<3; c++ {
					v:=clamp01(d.Spline.Value(linearSaturation(temp[c], lum, desaturation)))
					out.Data[k+c]=float32(math.Pow(float64(v), float64(d.OutputPower)))
				}
			}
		}
	})
}

// Tone maps a single norm of the pixel and carries the chrominance across as
// RGB ratios, which preserves hue through the curve.
func (d *Data) toneMapChroma(in, out *pix.Image, prof *profile.Profile, maxThreads int) {
	width:=int(in.Width)
	pix.ParallelRows(int(in.Height), maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				r, g, b:=in.Data[k], in.Data[k+1], in.Data[k+2]

				norm:=pix.Norm(r, g, b, d.PreserveColor, prof)
				if norm<pix.NormMin { norm=pix.NormMin }

				ratios:=[3]float32{r/norm, g/norm, b/norm}

				// shift the ratios into the positive octant if any channel went negative
				minRatios:=pix.Min3(ratios[0], ratios[1], ratios[2])
				if minRatios<0 {
					for c:=0; c<3; c++ { ratios[c]-=minRatios }
				}

				if d.Version==ColorScienceV1 {
					norm=logTonemappingV1(norm, d.GreySource, d.BlackSource, d.DynamicRange)
					desaturation:=desaturateV1(norm, d.SigmaToe, d.SigmaShoulder, d.Saturation)

					// desaturation works on absolute values, scale up and back down
					for c:=0; c<3; c++ { ratios[c]*=norm }
					lum:=prof.Luminance(ratios[0], ratios[1], ratios[2])
					for c:=0; c<3; c++ {
						ratios[c]=linearSaturation(ratios[c], lum, desaturation)/norm
					}

					norm=float32(math.Pow(float64(clamp01(d.Spline.Value(norm))), float64(d.OutputPower)))
					for c:=0; c<3; c++ { out.Data[k+c]=ratios[c]*norm }
				} else {
					norm=logTonemappingV2(norm, d.GreySource, d.BlackSource, d.DynamicRange)
					desaturation:=desaturateV2(norm, d.SigmaToe, d.SigmaShoulder, d.Saturation)

					norm=float32(math.Pow(float64(clamp01(d.Spline.Value(norm))), float64(d.OutputPower)))

					for c:=0; c<3; c++ {
						ratios[c]=ratios[c] + (1.0-ratios[c])*(1.0-desaturation)
						if ratios[c]<0 { ratios[c]=0 }
						out.Data[k+c]=ratios[c]*norm
					}

					// gamut mapping: penalize the ratios by the amount of clipping
					maxPix:=pix.Max3(out.Data[k], out.Data[k+1], out.Data[k+2])
					if maxPix>1.0 {
						for c:=0; c<3; c++ {
							ratios[c]=ratios[c] + (1.0-maxPix)
							if ratios[c]<0 { ratios[c]=0 }
							out.Data[k+c]=clamp01(ratios[c]*norm)
						}
					}
				}
			}
		}
	})
}
