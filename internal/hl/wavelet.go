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

	"github.com/mlnoga/filmic/internal/pix"
)

// B-spline filter footprint per scale
const fsize = 5

// MaxScales caps the wavelet decomposition depth.
const MaxScales = 12

var bspline=[fsize]float32{1.0/16.0, 4.0/16.0, 6.0/16.0, 4.0/16.0, 1.0/16.0}

// NumScales returns the decomposition depth for an image processed at the
// given zoom, chosen so the coarsest filter always covers the same fraction
// of the full resolution image. scale is the region scale, iscale the full
// image scale; both are 1 for full resolution processing.
func NumScales(width, height int32, scale, iscale float32) int {
	zoom:=scale/iscale
	size:=float32(height)*iscale
	if w:=float32(width)*iscale; w>size {
		size=w
	}
	scales:=int(math.Floor(math.Log2(float64(2.0*size*zoom/((fsize-1)*fsize) - 1.0))))
	if scales<1 { return 1 }
	if scales>MaxScales { return MaxScales }
	return scales
}

// À-trous B-spline blur along x with taps spread by mult, edge clamped.
// Only RGB is convolved, alpha stays untouched in out.
func blurBsplineAlongX(in, out []float32, width, height, mult, maxThreads int) {
	bound:=width - 1
	pix.ParallelRows(height, maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			row:=y*width
			for x:=0; x<width; x++ {
				var acc [3]float32
				for t:=0; t<fsize; t++ {
					ix:=mult*(t-(fsize-1)/2) + x
					if ix<0 { ix=0 } else if ix>bound { ix=bound }
					k:=(row + ix)*pix.Channels
					w:=bspline[t]
					acc[0]+=w*in[k]
					acc[1]+=w*in[k+1]
					acc[2]+=w*in[k+2]
				}
				k:=(row + x)*pix.Channels
				out[k], out[k+1], out[k+2]=acc[0], acc[1], acc[2]
			}
		}
	})
}

// À-trous B-spline blur along y with taps spread by mult, edge clamped.
func blurBsplineAlongY(in, out []float32, width, height, mult, maxThreads int) {
	bound:=height - 1
	pix.ParallelRows(height, maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				var acc [3]float32
				for t:=0; t<fsize; t++ {
					iy:=mult*(t-(fsize-1)/2) + y
					if iy<0 { iy=0 } else if iy>bound { iy=bound }
					k:=(iy*width + x)*pix.Channels
					w:=bspline[t]
					acc[0]+=w*in[k]
					acc[1]+=w*in[k+1]
					acc[2]+=w*in[k+2]
				}
				k:=(y*width + x)*pix.Channels
				out[k], out[k+1], out[k+2]=acc[0], acc[1], acc[2]
			}
		}
	})
}

// Splits one wavelet level into high frequencies HF=detail-LF and a flat
// texture term per pixel. RGB variants keep the strongest channel texture to
// transfer sharpness onto clipped channels; ratio variants keep the weakest
// for smoother chromaticity.
func waveletDetailLevel(detail, lf, hf, texture []float32, width, height, maxThreads int, ratios bool) {
	pix.ParallelRows(height, maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				hf[k]=detail[k] - lf[k]
				hf[k+1]=detail[k+1] - lf[k+1]
				hf[k+2]=detail[k+2] - lf[k+2]
				if ratios {
					texture[y*width+x]=pix.MinAbs(pix.MinAbs(hf[k], hf[k+1]), hf[k+2])
				} else {
					texture[y*width+x]=pix.MaxAbs(pix.MaxAbs(hf[k], hf[k+1]), hf[k+2])
				}
			}
		}
	})
}

// Accumulates one wavelet level into the reconstructed buffer, weighted by
// the clipping mask. gamma blends inpainted structure against duplicated
// texture, beta colorful against achromatic terms, and delta bloom against
// details. The ratio variant flips the extrema so the smoother, more
// achromatic solution wins, which tames magenta highlights.
func waveletReconstruct(hf, lf, texture, mask, reconstructed []float32,
	width, height int, gamma, gammaComp, beta, betaComp, delta float32,
	scales int, ratios bool, maxThreads int) {
	pix.ParallelRows(height, maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				alpha:=mask[y*width+x]

				hfC:=[3]float32{hf[k], hf[k+1], hf[k+2]}
				lfC:=[3]float32{lf[k], lf[k+1], lf[k+2]}

				// flat texture term over all channels, transfers the valid texture
				// when only one or two channels are clipped
				greyTexture:=gamma*texture[y*width+x]

				// flat details term, smoother than the texture, fills holes in the
				// details layers when the texture vanishes
				greyDetails:=pix.MaxAbs(pix.MaxAbs(hfC[0], hfC[1]), hfC[2])

				greyHF:=betaComp*(gammaComp*greyDetails + greyTexture)

				var greyResidual, textureSign float32
				if ratios {
					greyResidual=betaComp*pix.Max3(lfC[0], lfC[1], lfC[2])
					textureSign=-0.5
				} else {
					greyResidual=betaComp*pix.Min3(lfC[0], lfC[1], lfC[2])
					textureSign=1.0
				}

				for c:=0; c<3; c++ {
					colorResidual:=lfC[c]*beta
					// on flat highlights all HF vanish and the ratio is 0/0,
					// which must resolve to 1; a plain >1 clamp lets NaN through
					ratio:=float32(math.Abs(float64(hfC[c]/greyDetails)))
					if !(ratio<1) { ratio=1 }
					colorDetails:=(hfC[c]*gammaComp + textureSign*ratio*greyTexture)*beta
					reconstructed[k+c]+=alpha*(delta*(greyHF+colorDetails) + (greyResidual+colorResidual)/float32(scales))
				}
			}
		}
	})
}

// Seeds the reconstruction with the valid parts of the image, a multiplied
// alpha blend where the clipping mask is the alpha weight.
func initReconstruct(in, mask, reconstructed []float32, width, height, maxThreads int) {
	pix.ParallelRows(height, maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				w:=1.0 - mask[y*width+x]
				for c:=0; c<pix.Channels; c++ {
					reconstructed[k+c]=in[k+c]*w
				}
			}
		}
	})
}
