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
	"errors"

	"github.com/mlnoga/filmic/internal/pix"
	"github.com/pbnjay/memory"
)

// ErrCannotAllocate signals that the wavelet buffers would not fit into the
// memory budget. Callers fall back to tone mapping the unreconstructed image.
var ErrCannotAllocate=errors.New("highlight reconstruction buffers exceed memory budget")

// Scratch buffers for one wavelet decomposition: two ping-pong low frequency
// buffers, the high frequencies, a flat texture plane and a blur intermediate.
type arena struct {
	lfEven, lfOdd, hfRGB, temp []float32 // RGBA planes
	hfGrey                     []float32 // single channel
}

// Admits the five scratch buffers against the given budget in MB before
// touching the allocator. A budget of zero or less means currently free
// physical memory.
func newArena(width, height, memoryMB int) (*arena, error) {
	pixels:=width*height
	need:=uint64(pixels)*uint64(4*pix.Channels+1)*4 // bytes

	budget:=uint64(memoryMB)*1024*1024
	if memoryMB<=0 {
		budget=memory.FreeMemory()
	}
	if need>budget {
		return nil, ErrCannotAllocate
	}

	return &arena{
		lfEven: make([]float32, pixels*pix.Channels),
		lfOdd:  make([]float32, pixels*pix.Channels),
		hfRGB:  make([]float32, pixels*pix.Channels),
		temp:   make([]float32, pixels*pix.Channels),
		hfGrey: make([]float32, pixels),
	}, nil
}
