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


package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/filmic/internal/filmic"
	"github.com/mlnoga/filmic/internal/ops"
	"github.com/mlnoga/filmic/internal/ops/film"
)


func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET ("/ping",    getPing)
			v1.POST("/curve",   postCurve)
			v1.POST("/mask",    postMask)
			v1.POST("/process", postProcess)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m,err:=json.MarshalIndent(args, "", "  ")
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Commits the posted tone mapping parameters and returns the resulting
// S-curve nodes and polynomial coefficients, e.g. for plotting
func postCurve(c *gin.Context) {
	params:=filmic.NewParamsDefault()
	if err:=c.ShouldBind(params); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}

	d, err:=params.Commit()
	if err!=nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error() } )
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"x"            : d.Spline.X,
		"y"            : d.Spline.Y,
		"m1"           : d.Spline.M1,
		"m2"           : d.Spline.M2,
		"m3"           : d.Spline.M3,
		"m4"           : d.Spline.M4,
		"m5"           : d.Spline.M5,
		"latitudeMin"  : d.Spline.LatitudeMin,
		"latitudeMax"  : d.Spline.LatitudeMax,
		"dynamicRange" : d.DynamicRange,
		"contrast"     : d.Contrast,
		"outputPower"  : d.OutputPower,
	})
}


type postMaskArgs struct {
	FilePatterns []string          `json:"filePatterns"`
	Gamma         float32          `json:"gamma"`
	ShowMask     *film.OpShowMask  `json:"showMask"`
	Save         *ops.OpSave       `json:"save"`
}

// Renders clipping mask heatmaps for the given files
func postMask(c *gin.Context) {
	logWriter := c.Writer
	var args postMaskArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.ShowMask==nil { args.ShowMask=film.NewOpShowMaskDefault() }
	args.ShowMask.Active=true

	operators:=[]ops.Operator{args.ShowMask}
	if args.Save!=nil { operators=append(operators, args.Save) }
	runPipeline(logWriter, args, args.FilePatterns, args.Gamma, operators...)
}


type postProcessArgs struct {
	FilePatterns []string        `json:"filePatterns"`
	Gamma         float32        `json:"gamma"`
	Filmic       *film.OpFilmic  `json:"filmic"`
	Save         *ops.OpSave     `json:"save"`
}

// Tone maps the given files and saves the results
func postProcess(c *gin.Context) {
	logWriter := c.Writer
	var args postProcessArgs
	if err:=c.ShouldBind(&args); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error() } )
		return
	}
	if args.Filmic==nil { args.Filmic=film.NewOpFilmicDefault() }

	operators:=[]ops.Operator{args.Filmic}
	if args.Save!=nil { operators=append(operators, args.Save) }
	runPipeline(logWriter, args, args.FilePatterns, args.Gamma, operators...)
}

// Globs the file patterns, chains the given operators behind the loads and
// materializes everything, streaming the log to the response writer
func runPipeline(logWriter http.ResponseWriter, args interface{}, filePatterns []string, gamma float32, operators ...ops.Operator) {
	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err:=printArgs(logWriter, "Arguments:\n", "\n", args); err!=nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	ctx:=ops.NewContext(logWriter)

	seq:=ops.NewOpSequence(ops.NewOpLoadMany(filePatterns, gamma))
	seq.Append(operators...)

	promises, err:=seq.MakePromises(nil, ctx)
	if err!=nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
		logWriter.(http.Flusher).Flush()
		return
	}
	_, err=ops.MaterializeAll(promises, ctx.MaxThreads, true)
	if(err!=nil) {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.(http.Flusher).Flush()
}
