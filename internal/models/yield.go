package models

import (
	"fmt"
	"strings"
)

// Crop names a crop in the yield tables
type Crop string

const (
	CropWheat     Crop = "Wheat"
	CropRice      Crop = "Rice"
	CropCorn      Crop = "Corn"
	CropSoybeans  Crop = "Soybeans"
	CropBarley    Crop = "Barley"
	CropCotton    Crop = "Cotton"
	CropSugarcane Crop = "Sugarcane"
	CropPotatoes  Crop = "Potatoes"
)

// Crops lists the crops offered by the prediction form, in display order
var Crops = []Crop{
	CropWheat, CropRice, CropCorn, CropSoybeans,
	CropBarley, CropCotton, CropSugarcane, CropPotatoes,
}

// Season names a growing season
type Season string

const (
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonFall   Season = "Fall"
	SeasonWinter Season = "Winter"
)

// Seasons lists the growing seasons in calendar order
var Seasons = []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}

// SoilType names a soil class. The empty value means "not provided".
type SoilType string

const (
	SoilClay   SoilType = "Clay"
	SoilSandy  SoilType = "Sandy"
	SoilLoam   SoilType = "Loam"
	SoilSilt   SoilType = "Silt"
	SoilPeat   SoilType = "Peat"
	SoilChalky SoilType = "Chalky"
)

// SoilTypes lists the soil classes offered by the prediction form
var SoilTypes = []SoilType{SoilClay, SoilSandy, SoilLoam, SoilSilt, SoilPeat, SoilChalky}

// YieldQuery is the input of a yield estimate.
// RainfallMm and TemperatureC are nil when the caller did not provide them.
type YieldQuery struct {
	Crop         Crop     `json:"crop"`
	Location     string   `json:"location,omitempty"`
	Season       Season   `json:"season"`
	SoilType     SoilType `json:"soil_type,omitempty"`
	RainfallMm   *float64 `json:"rainfall_mm,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
}

// Validate checks the fields a prediction request must carry.
// Unknown crop, season or soil names are accepted; the estimator falls back to neutral values for them.
func (q *YieldQuery) Validate() error {
	if strings.TrimSpace(string(q.Crop)) == "" {
		return &ValidationError{Field: "crop", Message: "crop is required"}
	}
	if strings.TrimSpace(string(q.Season)) == "" {
		return &ValidationError{Field: "season", Message: "season is required"}
	}
	if q.RainfallMm != nil {
		if !IsFinite(*q.RainfallMm) {
			return &ValidationError{
				Field:   "rainfall_mm",
				Value:   fmt.Sprintf("%g", *q.RainfallMm),
				Message: "rainfall must be a finite number",
			}
		}
		if *q.RainfallMm < 0 {
			return &ValidationError{
				Field:   "rainfall_mm",
				Value:   fmt.Sprintf("%g", *q.RainfallMm),
				Message: "rainfall must not be negative",
			}
		}
	}
	if q.TemperatureC != nil && !IsFinite(*q.TemperatureC) {
		return &ValidationError{
			Field:   "temperature_c",
			Value:   fmt.Sprintf("%g", *q.TemperatureC),
			Message: "temperature must be a finite number",
		}
	}
	return nil
}

// YieldFactors is the breakdown of a yield estimate
type YieldFactors struct {
	BaseYield         float64 `json:"base_yield"`
	SeasonMultiplier  float64 `json:"season_multiplier"`
	SoilMultiplier    float64 `json:"soil_multiplier"`
	WeatherMultiplier float64 `json:"weather_multiplier"`
	RandomFactor      float64 `json:"random_factor"`
}

// Deterministic returns the estimate without the random factor
func (f YieldFactors) Deterministic() float64 {
	return f.BaseYield * f.SeasonMultiplier * f.SoilMultiplier * f.WeatherMultiplier
}

// YieldPrediction is a yield estimate in tons per hectare together with the factors that produced it
type YieldPrediction struct {
	Query          YieldQuery   `json:"query"`
	YieldTonsPerHa float64      `json:"yield_tons_per_ha"`
	Factors        YieldFactors `json:"factors"`
}
