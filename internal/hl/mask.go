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


// Package hl recovers clipped highlights before tone mapping: it masks
// pixels near the clipping threshold, inpaints noise into them and rebuilds
// plausible detail with a multi-scale wavelet decomposition.
package hl

import (
	"math"
	"sync/atomic"

	"github.com/mlnoga/filmic/internal/pix"
)

// Builds a soft mask of clipped pixels. Each weight in [0,1] comes from a
// sigmoid centered on the clipping threshold, so the transition into the
// reconstructed area is smooth and symmetrical. The returned flag reports
// whether enough pixels are close to clipping for recovery to pay off.
func MaskClippedPixels(in *pix.Image, threshold, feathering float32, maxThreads int) (mask []float32, worthIt bool) {
	width:=int(in.Width)
	mask=make([]float32, int(in.Pixels()))
	normalize:=feathering/threshold

	var clipped int64
	pix.ParallelRows(int(in.Height), maxThreads, func(yLo, yHi int) {
		var local int64
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				r, g, b:=in.Data[k], in.Data[k+1], in.Data[k+2]
				pixMax:=float32(math.Sqrt(float64(r*r + g*g + b*b)))
				argument:=-pixMax*normalize + feathering
				mask[y*width+x]=1.0/(1.0 + float32(math.Exp2(float64(argument))))

				// at argument=4 the sigmoid opacity drops to 5.882%, pixels beyond
				// that change the image too little to be worth computing
				if argument<4.0 {
					local++
				}
			}
		}
		atomic.AddInt64(&clipped, local)
	})

	// under 10 clipped pixels, recovery is not worth the computational cost
	return mask, clipped>9
}

// Writes the mask into out as an achromatic image for visual inspection.
func DisplayMask(mask []float32, out *pix.Image, maxThreads int) {
	width:=int(out.Width)
	pix.ParallelRows(int(out.Height), maxThreads, func(yLo, yHi int) {
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				w:=mask[y*width+x]
				k:=(y*width + x)*pix.Channels
				out.Data[k]=w
				out.Data[k+1]=w
				out.Data[k+2]=w
				out.Data[k+3]=w
			}
		}
	})
}
