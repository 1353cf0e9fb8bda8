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
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// Write an image to 16-bit TIFF, clipping values to [0,1].
func (f *Image) WriteTIFF16ToFile(fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	return f.WriteTIFF16(writer)
}

// Write an image to 16-bit TIFF, clipping values to [0,1].
func (f *Image) WriteTIFF16(writer io.Writer) error {
	width, height := int(f.Width), int(f.Height)
	img := image.NewRGBA64(image.Rectangle{image.Point{0, 0}, image.Point{width, height}})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := (y*width + x) * Channels
			r := sanitize(f.Data[k])
			g := sanitize(f.Data[k+1])
			b := sanitize(f.Data[k+2])
			img.Set(x, y, color.RGBA64{uint16(r*65535 + 0.5), uint16(g*65535 + 0.5), uint16(b*65535 + 0.5), 65535})
		}
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}
