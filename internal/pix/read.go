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
	"io"
	"math"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// Load an image from a JPEG, PNG or TIFF file into a float32 pixel buffer.
// Values are scaled to [0,1] and optionally linearized with the given display
// gamma (1=keep encoded values). The alpha channel is carried through.
func NewImageFromFile(fileName string, id int, gamma float32) (*Image, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := NewImageFromReader(bufio.NewReader(file), gamma)
	if err != nil {
		return nil, err
	}
	f.ID = id
	f.FileName = fileName
	return f, nil
}

// Load an image from a JPEG, PNG or TIFF stream into a float32 pixel buffer.
func NewImageFromReader(reader io.Reader, gamma float32) (*Image, error) {
	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := int32(bounds.Dx()), int32(bounds.Dy())
	f := NewImage(width, height)

	gammaF := float64(gamma)
	k := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			f.Data[k] = decode(r, gammaF)
			f.Data[k+1] = decode(g, gammaF)
			f.Data[k+2] = decode(b, gammaF)
			f.Data[k+3] = float32(a) / 65535.0
			k += Channels
		}
	}
	return f, nil
}

func decode(v uint32, gamma float64) float32 {
	value := float64(v) / 65535.0
	if gamma != 1.0 {
		value = math.Pow(value, gamma)
	}
	return float32(value)
}
