package estimator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCoefficients_Valid(t *testing.T) {
	require.NoError(t, DefaultCoefficients().Validate())
}

func TestParseCoefficients_OverlaysDefaults(t *testing.T) {
	data := []byte(`
yield:
  base_yields:
    Quinoa: 3.1
    Corn: 9.0
  random_min: 1.0
  random_max: 1.0
energy:
  fuel_kwh_per_liter: 9.8
  emission_factors:
    grid: 0.42
`)

	coeffs, err := ParseCoefficients(data)
	require.NoError(t, err)

	assert.Equal(t, 3.1, coeffs.Yield.BaseYields["Quinoa"])
	assert.Equal(t, 9.0, coeffs.Yield.BaseYields["Corn"])
	assert.Equal(t, 4.5, coeffs.Yield.BaseYields["Wheat"], "untouched entries keep their defaults")
	assert.Equal(t, 1.1, coeffs.Yield.SeasonMultipliers["Summer"])
	assert.Equal(t, 9.8, coeffs.Energy.FuelKwhPerLiter)
	assert.Equal(t, 0.42, coeffs.Energy.EmissionFactors["grid"])
	assert.Equal(t, 0.8, coeffs.Energy.EmissionFactors["diesel"])
	assert.Equal(t, 0.03, coeffs.Energy.FertilizerKwhPerKg)
}

func TestParseCoefficients_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed yaml":          "yield: [",
		"inverted random band":    "yield:\n  random_min: 1.2\n  random_max: 1.0\n",
		"non-positive base":       "yield:\n  base_yields:\n    Corn: 0\n",
		"inverted rating bound":   "energy:\n  rating:\n    min: 8\n    max: 2\n",
		"rating floor below 1":    "energy:\n  rating:\n    min: 0\n",
		"rating ceiling above 10": "energy:\n  rating:\n    max: 12\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCoefficients([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadCoefficients(t *testing.T) {
	coeffs, err := LoadCoefficients("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCoefficients(), coeffs)

	path := filepath.Join(t.TempDir(), "coefficients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("energy:\n  default_equipment_power_kw: 12\n"), 0o600))

	coeffs, err = LoadCoefficients(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, coeffs.Energy.DefaultEquipmentPowerKw)

	_, err = LoadCoefficients(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
