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
	"fmt"
)

// Scalars per pixel: three color channels plus one passthrough alpha
const Channels = 4

// A scene-referred RGB image region. Pixels are stored row-major and
// interleaved, Channels scalars per pixel, so Data[(y*Width+x)*Channels+c]
// is channel c of pixel (x,y). The alpha channel rides along untouched.
type Image struct {
	ID       int      // Sequential ID number, for log output
	FileName string   // Original file name, if any, for log output

	Width    int32    // Region width in pixels
	Height   int32    // Region height in pixels
	Colors   int32    // Number of usable color channels, must be 3 for processing

	Scale    float32  // Relative zoom scale of this region, 1=full resolution
	IScale   float32  // Source-to-current scale ratio, 1=unscaled source

	Data     []float32 // The interleaved pixel data, len=Width*Height*Channels
}

// Creates an image of the given dimensions with zeroed pixel data
func NewImage(width, height int32) *Image {
	return &Image{
		Width : width,
		Height: height,
		Colors: 3,
		Scale : 1,
		IScale: 1,
		Data  : make([]float32, int(width)*int(height)*Channels),
	}
}

// Creates an image with the same geometry and metadata as the given one,
// with freshly allocated zeroed pixel data
func NewImageFromImage(img *Image) *Image {
	return &Image{
		ID      : img.ID,
		FileName: img.FileName,
		Width   : img.Width,
		Height  : img.Height,
		Colors  : img.Colors,
		Scale   : img.Scale,
		IScale  : img.IScale,
		Data    : make([]float32, len(img.Data)),
	}
}

// Number of pixels in the image
func (f *Image) Pixels() int32 {
	return f.Width*f.Height
}

func (f *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Copies the alpha channel of the source image into this one.
// Both images must have the same dimensions, or undefined results occur.
func (f *Image) CopyAlphaFrom(src *Image) {
	for k:=Channels-1; k<len(f.Data); k+=Channels {
		f.Data[k]=src.Data[k]
	}
}

// Tells whether two images have identical geometry
func EqualShape(a, b *Image) bool {
	return a.Width==b.Width && a.Height==b.Height && a.Colors==b.Colors
}
