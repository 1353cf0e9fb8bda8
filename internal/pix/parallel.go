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

// Applies fn to contiguous row ranges [yLo, yHi) covering [0, height),
// running up to maxThreads goroutines at once. The ranges are disjoint, so
// fn may write to per-row output locations without synchronization.
// Blocks until all ranges are done.
func ParallelRows(height, maxThreads int, fn func(yLo, yHi int)) {
	if maxThreads<1 { maxThreads=1 }
	if maxThreads>height { maxThreads=height }
	if maxThreads<=1 {
		fn(0, height)
		return
	}

	limiter:=make(chan bool, maxThreads)
	chunk:=(height+maxThreads-1)/maxThreads
	for yLo:=0; yLo<height; yLo+=chunk {
		yHi:=yLo+chunk
		if yHi>height { yHi=height }
		limiter <- true
		go func(yLo, yHi int) {
			defer func() { <-limiter }()
			fn(yLo, yHi)
		}(yLo, yHi)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
}
