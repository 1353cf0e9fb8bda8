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
	"github.com/mlnoga/filmic/internal/profile"
)

// Splits an image into per-pixel scalar norms and per-channel chromaticity
// ratios = channel/norm, so that RestoreRatios(ratios, norms) reproduces the
// input. norms holds one scalar per pixel, ratios has the geometry of in.
// in, norms and ratios must not alias.
func ComputeRatios(in, ratios *Image, norms []float32, method NormMethod, prof *profile.Profile, maxThreads int) {
	width:=int(in.Width)
	ParallelRows(int(in.Height), maxThreads, func(yLo, yHi int) {
		for k:=yLo*width*Channels; k<yHi*width*Channels; k+=Channels {
			r, g, b:=in.Data[k], in.Data[k+1], in.Data[k+2]
			norm:=Norm(r, g, b, method, prof)
			if norm<NormMin { norm=NormMin }
			norms[k/Channels]=norm
			for c:=0; c<3; c++ {
				ratios.Data[k+c]=in.Data[k+c]/norm
			}
		}
	})
}

// Multiplies chromaticity ratios back by their stored per-pixel norms,
// in place. Inverse of ComputeRatios.
func RestoreRatios(ratios *Image, norms []float32, maxThreads int) {
	width:=int(ratios.Width)
	ParallelRows(int(ratios.Height), maxThreads, func(yLo, yHi int) {
		for k:=yLo*width*Channels; k<yHi*width*Channels; k+=Channels {
			for c:=0; c<3; c++ {
				ratios.Data[k+c]*=norms[k/Channels]
			}
		}
	})
}
