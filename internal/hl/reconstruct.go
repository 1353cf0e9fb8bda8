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
	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/pix"
	"github.com/mlnoga/filmic/internal/profile"
)

// Which domain a wavelet pass rebuilds: raw RGB favors recovered high
// frequencies, RGB ratios favor smooth achromatic chromaticity.
type variant int

const (
	reconstructRGB variant = iota
	reconstructRatios
)

// One multi-scale wavelet pass: decomposes in into scales levels with the
// à-trous scheme, inpaints each high-frequency level by blurring it, and
// accumulates the reconstruction into the masked parts of reconstructed.
// The unmasked parts must already carry the valid pixels.
func reconstruct(in []float32, mask []float32, reconstructed []float32, v variant,
	width, height int, d *filmic.Data, scales, memoryMB, maxThreads int) error {
	a, err:=newArena(width, height, memoryMB)
	if err!=nil {
		return err
	}

	gamma:=d.StructureVsTexture
	gammaComp:=1.0 - gamma
	beta:=d.GreyVsColor
	betaComp:=1.0 - beta
	delta:=d.BloomVsDetails

	for s:=0; s<scales; s++ {
		// ping-pong so two LF buffers suffice, previous scale and current
		var detail, lf []float32
		switch {
		case s==0:
			detail, lf=in, a.lfOdd
		case s%2!=0:
			detail, lf=a.lfOdd, a.lfEven
		default:
			detail, lf=a.lfEven, a.lfOdd
		}

		mult:=1<<uint(s)

		// separable B-spline blur gives the next low-frequency scale
		blurBsplineAlongX(detail, a.temp, width, height, mult, maxThreads)
		blurBsplineAlongY(a.temp, lf, width, height, mult, maxThreads)

		waveletDetailLevel(detail, lf, a.hfRGB, a.hfGrey, width, height, maxThreads, v==reconstructRatios)

		// blurring the high frequencies interpolates across the holes
		blurBsplineAlongX(a.hfRGB, a.temp, width, height, mult, maxThreads)
		blurBsplineAlongY(a.temp, a.hfRGB, width, height, mult, maxThreads)

		waveletReconstruct(a.hfRGB, lf, a.hfGrey, mask, reconstructed,
			width, height, gamma, gammaComp, beta, betaComp, delta,
			scales, v==reconstructRatios, maxThreads)
	}
	return nil
}

// Recover rebuilds clipped highlights of in and returns a new image to feed
// the tone mapper. The first pass reconstructs RGB directly; each high
// quality iteration then refines chromaticity by reconstructing euclidean
// RGB ratios and restoring the norms. A noise seed of zero keeps results
// deterministic. Returns ErrCannotAllocate untouched when the scratch
// buffers exceed the memory budget.
func Recover(in *pix.Image, mask []float32, d *filmic.Data, prof *profile.Profile,
	noiseSeed uint32, memoryMB, maxThreads int) (*pix.Image, error) {
	width, height:=int(in.Width), int(in.Height)

	// noise must not amplify when processing at reduced size
	sizeScale:=in.IScale/in.Scale
	if sizeScale<1.0 { sizeScale=1.0 }

	scales:=NumScales(in.Width, in.Height, in.Scale, in.IScale)

	inpainted:=pix.NewImageFromImage(in)
	InpaintNoise(in, mask, inpainted, d.NoiseLevel/sizeScale, d.ReconstructThreshold,
		d.NoiseDistribution, noiseSeed, maxThreads)

	reconstructed:=pix.NewImageFromImage(in)
	initReconstruct(inpainted.Data, mask, reconstructed.Data, width, height, maxThreads)

	if err:=reconstruct(inpainted.Data, mask, reconstructed.Data, reconstructRGB,
		width, height, d, scales, memoryMB, maxThreads); err!=nil {
		return nil, err
	}

	if d.HighQualityReconstruction>0 {
		norms:=make([]float32, int(in.Pixels()))
		ratios:=pix.NewImageFromImage(in)
		for i:=0; i<d.HighQualityReconstruction; i++ {
			pix.ComputeRatios(reconstructed, ratios, norms, pix.NormEuclidean, prof, maxThreads)
			initReconstruct(ratios.Data, mask, reconstructed.Data, width, height, maxThreads)
			if err:=reconstruct(ratios.Data, mask, reconstructed.Data, reconstructRatios,
				width, height, d, scales, memoryMB, maxThreads); err!=nil {
				return nil, err
			}
			pix.RestoreRatios(reconstructed, norms, maxThreads)
		}
	}
	return reconstructed, nil
}
