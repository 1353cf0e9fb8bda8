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

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/pix"
	"github.com/valyala/fastrand"
)

func rand01(rng *fastrand.RNG) float32 {
	return float32(rng.Uint32())*(1.0/4294967296.0)
}

// Draws one sample centered on mu with spread sigma. The flip flag
// alternates between the two independent outputs of the Box-Muller pair so
// adjacent channels decorrelate without a second draw.
func noiseSample(dist filmic.NoiseDistribution, mu, sigma float32, flip bool, rng *fastrand.RNG) float32 {
	switch dist {
	case filmic.NoiseUniform:
		return mu + 2.0*sigma*(rand01(rng)-0.5)

	case filmic.NoiseGaussian:
		return mu + sigma*gaussianSample(flip, rng)

	case filmic.NoisePoissonian:
		// gaussian noise pushed through the reverse Anscombe transform,
		// approximates photon shot noise scaling with the signal
		noise:=gaussianSample(flip, rng)
		r:=noise*sigma + 2.0*float32(math.Sqrt(math.Max(float64(mu+3.0/8.0), 0.0)))
		return (r*r - sigma*sigma)/4.0 - 3.0/8.0

	default:
		return mu
	}
}

func gaussianSample(flip bool, rng *fastrand.RNG) float32 {
	u1:=rand01(rng)
	if u1<1e-12 { u1=1e-12 }
	u2:=rand01(rng)
	mag:=math.Sqrt(-2.0*math.Log(float64(u1)))
	if flip {
		return float32(mag*math.Cos(2.0*math.Pi*float64(u2)))
	}
	return float32(mag*math.Sin(2.0*math.Pi*float64(u2)))
}

// Blends statistical noise into masked highlights to seed texture there.
// The particles give the wavelet reconstruction gradients to diffuse, which
// reads as grain instead of flat digital clipping. Every call starts from
// the given seed, so results are reproducible for fixed inputs.
func InpaintNoise(in *pix.Image, mask []float32, out *pix.Image, noiseLevel, threshold float32,
	dist filmic.NoiseDistribution, seed uint32, maxThreads int) {
	width:=int(in.Width)
	pix.ParallelRows(int(in.Height), maxThreads, func(yLo, yHi int) {
		var rng fastrand.RNG
		s:=seed + uint32(yLo)*2654435761
		if s==0 { s=1 } // fastrand reseeds a zero state from the OS, losing reproducibility
		rng.Seed(s)
		for y:=yLo; y<yHi; y++ {
			for x:=0; x<width; x++ {
				k:=(y*width + x)*pix.Channels
				weight:=mask[y*width+x]
				for c:=0; c<3; c++ {
					input:=in.Data[k+c]
					noise:=noiseSample(dist, input, input*noiseLevel/threshold, c%2==0, &rng)
					out.Data[k+c]=input*(1.0-weight) + weight*noise
				}
				out.Data[k+3]=in.Data[k+3]
			}
		}
	})
}
