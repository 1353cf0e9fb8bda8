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


package filmic

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlnoga/filmic/internal/pix"
)

// Hardness of a curve segment: a quartic clings harder to the latitude slope,
// a cubic releases contrast earlier
type CurveType int32

const (
	CurvePoly4 CurveType = iota // hard
	CurvePoly3                  // soft
)

// Color science generation. V1 clamps the log encoding to [NormMin,1] and
// desaturates multiplicatively; V2 clamps to [0,1] and adds a gamut penalty
// in ratio-preserving mode
type ColorScience int32

const (
	ColorScienceV1 ColorScience = iota
	ColorScienceV2
)

// Statistical distribution for highlight inpainting noise
type NoiseDistribution int32

const (
	NoiseUniform NoiseDistribution = iota
	NoiseGaussian
	NoisePoissonian
)

// Current version of the persisted parameter schema. Upgrading older records
// is the concern of whoever persists them; the UnmarshalJSON defaulting below
// fills absent fields with the values of NewParamsDefault, which make newer
// features no-ops on legacy data.
const ParamsVersion = 3

// User-facing tone mapping and reconstruction parameters. Exposures are in
// stops (EV) relative to middle grey, display targets in percent.
type Params struct {
	GreyPointSource  float32 `json:"greyPointSource"`  // middle grey luminance in %, typically 18.45
	BlackPointSource float32 `json:"blackPointSource"` // black relative exposure in EV, <0
	WhitePointSource float32 `json:"whitePointSource"` // white relative exposure in EV, >0

	ReconstructThreshold          float32 `json:"reconstructThreshold"`          // clipping threshold in EV above white
	ReconstructFeather            float32 `json:"reconstructFeather"`            // transition softness in EV
	ReconstructBloomVsDetails     float32 `json:"reconstructBloomVsDetails"`     // in [-100,100]
	ReconstructGreyVsColor        float32 `json:"reconstructGreyVsColor"`        // in [-100,100]
	ReconstructStructureVsTexture float32 `json:"reconstructStructureVsTexture"` // in [-100,100]

	SecurityFactor   float32 `json:"securityFactor"`   // dynamic range scaling in %
	GreyPointTarget  float32 `json:"greyPointTarget"`  // target middle grey in %
	BlackPointTarget float32 `json:"blackPointTarget"` // target black luminance in %
	WhitePointTarget float32 `json:"whitePointTarget"` // target white luminance in %

	OutputPower float32 `json:"outputPower"` // display transfer function hardness
	Latitude    float32 `json:"latitude"`    // linear segment width in % of dynamic range
	Contrast    float32 `json:"contrast"`    // slope of the linear segment
	Saturation  float32 `json:"saturation"`  // extreme luminance saturation in %
	Balance     float32 `json:"balance"`     // shadows/highlights balance in %
	NoiseLevel  float32 `json:"noiseLevel"`  // inpainting noise amplitude

	PreserveColor pix.NormMethod `json:"preserveColor"` // chrominance preservation norm, NormNone=split channels
	Version       ColorScience   `json:"colorScience"`  // color science generation

	AutoHardness bool `json:"autoHardness"` // derive output power from the source exposure points
	CustomGrey   bool `json:"customGrey"`   // use custom middle grey values instead of 18.45%

	HighQualityReconstruction int               `json:"highQualityReconstruction"` // iterations of ratio-space refinement
	NoiseDistribution         NoiseDistribution `json:"noiseDistribution"`
	Shadows                   CurveType         `json:"shadows"`    // toe segment hardness
	Highlights                CurveType         `json:"highlights"` // shoulder segment hardness
}

// Returns parameters with the stock defaults: scene at 18.45% grey between
// -8 and +4 EV, contrast 1.5 over a 33% latitude, power norm chrominance
// preservation, and one high quality reconstruction iteration.
func NewParamsDefault() *Params {
	return &Params{
		GreyPointSource:  18.45,
		BlackPointSource: -8.0,
		WhitePointSource: 4.0,

		ReconstructThreshold:          3.0,
		ReconstructFeather:            3.0,
		ReconstructBloomVsDetails:     100.0,
		ReconstructGreyVsColor:        100.0,
		ReconstructStructureVsTexture: 0.0,

		SecurityFactor:   0,
		GreyPointTarget:  18.45,
		BlackPointTarget: 0,
		WhitePointTarget: 100,

		OutputPower: 4.0,
		Latitude:    33.0,
		Contrast:    1.5,
		Saturation:  10.0,
		Balance:     0.0,
		NoiseLevel:  0.1,

		PreserveColor: pix.NormPower,
		Version:       ColorScienceV2,

		AutoHardness: true,
		CustomGrey:   false,

		HighQualityReconstruction: 1,
		NoiseDistribution:         NoisePoissonian,
		Shadows:                   CurvePoly4,
		Highlights:                CurvePoly4,
	}
}

// Committed processing data derived from Params: all clamps and unit
// conversions applied once, plus the spline, so the per-pixel code touches
// plain floats only. Immutable once built.
type Data struct {
	WhiteSource  float32
	GreySource   float32
	BlackSource  float32
	DynamicRange float32

	ReconstructThreshold float32 // in linear units, 2^(white+threshold)*grey
	ReconstructFeather   float32 // sigmoid exponent scale, 2^(12/feather)

	BloomVsDetails     float32 // all three balances normalized to [0,1]
	GreyVsColor        float32
	StructureVsTexture float32

	Saturation    float32
	OutputPower   float32
	Contrast      float32
	SigmaToe      float32
	SigmaShoulder float32
	NoiseLevel    float32

	PreserveColor pix.NormMethod
	Version       ColorScience

	HighQualityReconstruction int
	NoiseDistribution         NoiseDistribution

	Spline Spline
}

// Derives committed processing data from the parameters: applies the security
// factor to the source exposure points, resolves grey conventions and auto
// hardness, clamps contrast so the curve's intercept at the grey node cannot
// invert sign, builds the spline and precomputes the desaturation sigmas.
func (p *Params) Commit() (*Data, error) {
	q:=*p // work on a copy, node placement below reads the adjusted fields

	// dynamic range scaling
	q.BlackPointSource*=1.0 + q.SecurityFactor/100.0
	q.WhitePointSource*=1.0 + q.SecurityFactor/100.0

	dynamicRange:=q.WhitePointSource - q.BlackPointSource
	if !(dynamicRange>0) {
		return nil, fmt.Errorf("invalid exposure points: white %.2f EV - black %.2f EV leaves no dynamic range",
			q.WhitePointSource, q.BlackPointSource)
	}
	if q.BlackPointSource>=0 {
		return nil, errors.New("black relative exposure must be negative")
	}

	greySource:=float32(0.1845)
	if q.CustomGrey {
		greySource=q.GreyPointSource/100.0
	}
	if greySource<=0 {
		return nil, errors.New("middle grey luminance must be positive")
	}

	if q.AutoHardness {
		q.OutputPower=float32(math.Log(float64(q.GreyPointTarget/100.0)) /
			math.Log(float64(-q.BlackPointSource/dynamicRange)))
	}

	greyDisplay:=float32(math.Pow(0.1845, float64(1.0/q.OutputPower)))
	if q.CustomGrey {
		greyDisplay=float32(math.Pow(float64(q.GreyPointTarget/100.0), float64(1.0/q.OutputPower)))
	}

	greyLog:=float32(math.Abs(float64(q.BlackPointSource)))/dynamicRange

	// keep greyDisplay - contrast*greyLog <= 0, else the grey node ends up
	// below the linear segment and the toe solve degenerates
	contrast:=q.Contrast
	if contrast<greyDisplay/greyLog {
		contrast=1.0001*greyDisplay/greyLog
	}

	spline, err:=computeSpline(&q)
	if err!=nil {
		return nil, err
	}

	d:=&Data{
		WhiteSource:  q.WhitePointSource,
		GreySource:   greySource,
		BlackSource:  q.BlackPointSource,
		DynamicRange: dynamicRange,

		ReconstructThreshold: float32(math.Pow(2, float64(q.WhitePointSource+q.ReconstructThreshold)))*greySource,
		ReconstructFeather:   float32(math.Pow(2, float64(12.0/q.ReconstructFeather))),

		// offset and rescale user params to alpha blending so -100 -> 0%, 0 -> 50% and 100 -> 100%
		BloomVsDetails:     (q.ReconstructBloomVsDetails/100.0 + 1.0)/2.0,
		GreyVsColor:        (q.ReconstructGreyVsColor/100.0 + 1.0)/2.0,
		StructureVsTexture: (q.ReconstructStructureVsTexture/100.0 + 1.0)/2.0,

		Saturation:  2.0*q.Saturation/100.0 + 1.0,
		OutputPower: q.OutputPower,
		Contrast:    contrast,
		NoiseLevel:  q.NoiseLevel,

		PreserveColor: q.PreserveColor,
		Version:       q.Version,

		HighQualityReconstruction: q.HighQualityReconstruction,
		NoiseDistribution:         q.NoiseDistribution,

		Spline: *spline,
	}

	d.SigmaToe=sqf(d.Spline.LatitudeMin/3.0)
	d.SigmaShoulder=sqf((1.0-d.Spline.LatitudeMax)/3.0)
	return d, nil
}

func sqf(x float32) float32 { return x*x }

func clampf(x, lo, hi float32) float32 {
	if x<lo { return lo }
	if x>hi { return hi }
	return x
}

func clamp01(x float32) float32 {
	return clampf(x, 0, 1)
}
