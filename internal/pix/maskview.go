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
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Renders mask weights as a false-color heat map, blue for untouched pixels
// through yellow to red for fully clipped ones. Helpful when a greyscale
// broadcast is too subtle to judge feathering.
func NewHeatmapFromMask(mask []float32, width, height int32) *Image {
	res:=NewImage(width, height)
	for i,w:=range mask {
		if w<0 { w=0 }
		if w>1 { w=1 }
		hue:=240.0*(1.0-float64(w)) // 240=blue, 0=red
		col:=colorful.Hsv(hue, 1.0, float64(w)*0.8+0.2)
		k:=i*Channels
		res.Data[k  ]=float32(col.R)
		res.Data[k+1]=float32(col.G)
		res.Data[k+2]=float32(col.B)
		res.Data[k+3]=1
	}
	return res
}
