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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/ops"
	"github.com/mlnoga/filmic/internal/ops/film"
	"github.com/mlnoga/filmic/internal/pix"
	"github.com/mlnoga/filmic/internal/rest"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out      = flag.String("out", "out%d.jpg", "save output to `file`, %d is replaced with the image id")
var inGamma  = flag.Float64("inGamma", 1, "decoding gamma for the input files, e.g. 2.2 to linearize display-referred sources, 1=linear data")

var grey     = flag.Float64("grey", 18.45, "middle grey luminance of the scene in percent")
var black    = flag.Float64("black", -8.0, "black relative exposure in EV below middle grey, must be negative")
var white    = flag.Float64("white", 4.0, "white relative exposure in EV above middle grey, must be positive")
var security = flag.Float64("security", 0, "dynamic range scaling safety margin in percent")

var contrast = flag.Float64("contrast", 1.5, "slope of the latitude segment of the tone curve")
var latitude = flag.Float64("latitude", 33.0, "width of the linear segment in percent of the dynamic range")
var balance  = flag.Float64("balance", 0, "shadows/highlights balance in percent, shifts the latitude along the slope")
var saturation=flag.Float64("saturation", 10.0, "extreme luminance saturation in percent")

var greyTarget  = flag.Float64("greyTarget", 18.45, "target middle grey luminance in percent")
var blackTarget = flag.Float64("blackTarget", 0, "target black luminance in percent")
var whiteTarget = flag.Float64("whiteTarget", 100, "target white luminance in percent")
var power       = flag.Float64("power", 4.0, "hardness of the display transfer function")
var autoHardness= flag.Bool("autoHardness", true, "derive the transfer function hardness from the exposure points")
var customGrey  = flag.Bool("customGrey", false, "use the custom grey values instead of the 18.45% convention")

var preserveColor = flag.Int64("preserveColor", int64(pix.NormPower), "chrominance preservation: 0=none (split channels), 1=max RGB, 2=luminance, 3=power norm, 4=euclidean norm")
var colorScience  = flag.Int64("colorScience", int64(filmic.ColorScienceV2), "color science generation: 0=v1, 1=v2")
var shadows    = flag.Int64("shadows", int64(filmic.CurvePoly4), "toe hardness: 0=hard quartic, 1=soft cubic")
var highlights = flag.Int64("highlights", int64(filmic.CurvePoly4), "shoulder hardness: 0=hard quartic, 1=soft cubic")

var threshold = flag.Float64("threshold", 3.0, "highlight clipping threshold in EV above white")
var feather   = flag.Float64("feather", 3.0, "highlight transition softness in EV")
var bloom     = flag.Float64("bloom", 100.0, "bloom versus details balance in [-100,100]")
var greyColor = flag.Float64("greyColor", 100.0, "grey versus color reconstruction balance in [-100,100]")
var structure = flag.Float64("structure", 0.0, "structure versus texture reconstruction balance in [-100,100]")
var noise     = flag.Float64("noise", 0.1, "inpainting noise amplitude")
var noiseDist = flag.Int64("noiseDist", int64(filmic.NoisePoissonian), "inpainting noise distribution: 0=uniform, 1=gaussian, 2=poissonian")
var hqIter    = flag.Int64("hqIter", 1, "iterations of high quality chromaticity reconstruction")
var fast      = flag.Bool("fast", false, "skip highlight reconstruction entirely")

var chroot = flag.String("chroot", "", "for serve mode: change filesystem root to `dir` (requires root)")
var setuid = flag.Int64("setuid", -1, "for serve mode: drop privileges to this user id, -1=keep")

func main() {
	logWriter:=os.Stdout
	start:=time.Now()
	flag.Usage=func(){
 	    fmt.Fprintf(logWriter, `Filmic Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (process|mask|curve|serve|legal|version) (img0.jpg ... imgn.tif)

Commands:
  process Tone map input images from scene-referred to display-referred
  mask    Show the highlight clipping mask for the input images
  curve   Print the committed tone curve as JSON
  serve   Start the REST API server on port 8080
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
	    flag.PrintDefaults()
	}
	flag.Parse()

	// Enable CPU profiling if flagged
    if *cpuprofile != "" {
        f, err := os.Create(*cpuprofile)
        if err != nil {
            fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err.Error())
            os.Exit(-1)
        }
        defer f.Close()
        if err := pprof.StartCPUProfile(f); err != nil {
            fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err.Error())
            os.Exit(-1)
        }
        defer pprof.StopCPUProfile()
    }

    args:=flag.Args()
    if len(args)<1 {
    	flag.Usage()
    	return
    }

	params:=paramsFromFlags()
	var err error

    switch args[0] {
    case "serve":
    	if err=rest.MakeSandbox(logWriter, *chroot, int(*setuid)); err==nil {
	    	rest.Serve()
	    }

    case "process":
    	opFilmic:=film.NewOpFilmic(*params, true)
    	opFilmic.FastMode=*fast
    	err=runPipeline(args[1:], opFilmic)

    case "mask":
    	opMask:=film.NewOpShowMask(float32(*threshold), float32(*feather), true)
    	err=runPipeline(args[1:], opMask)

    case "curve":
    	var d *filmic.Data
    	d, err=params.Commit()
    	if err==nil {
	    	var m []byte
			m, err=json.MarshalIndent(d.Spline, "", "  ")
			if err==nil {
				fmt.Fprintf(logWriter, "%s\n", string(m))
			}
    	}

    case "legal":
    	fmt.Fprintf(logWriter, "%s\n", legal)

    case "version":
    	fmt.Fprintf(logWriter, "Version %s\n", version)

    case "help", "?":
    	flag.Usage()

    default:
    	fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
    	flag.Usage()
    	return
    }

	now:=time.Now()
	elapsed:=now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
    if *memprofile != "" {
        f, err := os.Create(*memprofile)
        if err != nil {
            fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err.Error())
            os.Exit(-1)
        }
        defer f.Close()
        runtime.GC() // get up-to-date statistics
        if err := pprof.Lookup("allocs").WriteTo(f,0); err != nil {
            fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err.Error())
            os.Exit(-1)
        }
    }

    if err!=nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
}

// Collects the tone mapping flags into a parameter object
func paramsFromFlags() *filmic.Params {
	p:=filmic.NewParamsDefault()
	p.GreyPointSource=float32(*grey)
	p.BlackPointSource=float32(*black)
	p.WhitePointSource=float32(*white)
	p.SecurityFactor=float32(*security)
	p.Contrast=float32(*contrast)
	p.Latitude=float32(*latitude)
	p.Balance=float32(*balance)
	p.Saturation=float32(*saturation)
	p.GreyPointTarget=float32(*greyTarget)
	p.BlackPointTarget=float32(*blackTarget)
	p.WhitePointTarget=float32(*whiteTarget)
	p.OutputPower=float32(*power)
	p.AutoHardness=*autoHardness
	p.CustomGrey=*customGrey
	p.PreserveColor=pix.NormMethod(*preserveColor)
	p.Version=filmic.ColorScience(*colorScience)
	p.Shadows=filmic.CurveType(*shadows)
	p.Highlights=filmic.CurveType(*highlights)
	p.ReconstructThreshold=float32(*threshold)
	p.ReconstructFeather=float32(*feather)
	p.ReconstructBloomVsDetails=float32(*bloom)
	p.ReconstructGreyVsColor=float32(*greyColor)
	p.ReconstructStructureVsTexture=float32(*structure)
	p.NoiseLevel=float32(*noise)
	p.NoiseDistribution=filmic.NoiseDistribution(*noiseDist)
	p.HighQualityReconstruction=int(*hqIter)
	return p
}

// Loads the given files, applies the operator to each and saves the results
func runPipeline(fileArgs []string, op ops.Operator) error {
	ctx:=ops.NewContext(os.Stdout)
	fmt.Fprintf(ctx.Log, "Processing with %d threads and %d MiB of memory\n", ctx.MaxThreads, ctx.MemoryMB)

	seq:=ops.NewOpSequence(
		ops.NewOpLoadMany(fileArgs, float32(*inGamma)),
		op,
		ops.NewOpSave(*out),
	)
	promises, err:=seq.MakePromises(nil, ctx)
	if err!=nil { return err }
	_, err=ops.MaterializeAll(promises, ctx.MaxThreads, true)
	return err
}
