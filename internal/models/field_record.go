package models

import "strings"

// MissingValue marks an absent numeric value in batch ingestion files
const MissingValue = -9999

// RawFieldRecord represents a single line from a field batch file.
// Format: CROP\tSEASON\tSOIL\tRAINFALL_MM\tTEMPERATURE_C, SOIL may be "-" and numerics may be -9999.
type RawFieldRecord struct {
	Crop         string
	Season       string
	Soil         string
	RainfallMm   float64
	TemperatureC float64
}

// ToYieldQuery converts the record to a query for the given location.
// Sentinel values become nil pointers so the estimator treats them as not provided.
func (r *RawFieldRecord) ToYieldQuery(location string) (*YieldQuery, error) {
	q := &YieldQuery{
		Crop:     Crop(strings.TrimSpace(r.Crop)),
		Location: location,
		Season:   Season(strings.TrimSpace(r.Season)),
	}

	if soil := strings.TrimSpace(r.Soil); soil != "" && soil != "-" {
		q.SoilType = SoilType(soil)
	}

	if r.RainfallMm != MissingValue {
		rainfall := r.RainfallMm
		q.RainfallMm = &rainfall
	}

	if r.TemperatureC != MissingValue {
		temp := r.TemperatureC
		q.TemperatureC = &temp
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	return q, nil
}
