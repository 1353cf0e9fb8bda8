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
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"
)

// Write an image to 8-bit JPEG, clipping values to [0,1].
func (f *Image) WriteJPGToFile(fileName string, quality int) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return f.WriteJPG(writer, quality)
}

// Write an image to 8-bit JPEG, clipping values to [0,1].
func (f *Image) WriteJPG(writer io.Writer, quality int) error {
	width, height := int(f.Width), int(f.Height)
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := (y*width + x) * Channels
			r := sanitize(f.Data[k])
			g := sanitize(f.Data[k+1])
			b := sanitize(f.Data[k+2])
			img.Set(x, y, color.RGBA{uint8(r*255 + 0.5), uint8(g*255 + 0.5), uint8(b*255 + 0.5), 255})
		}
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}

// replace NaNs with zeros and clip to [0,1] for export, else encoders break
func sanitize(v float32) float32 {
	if math.IsNaN(float64(v)) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
