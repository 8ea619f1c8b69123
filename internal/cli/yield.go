package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agri-insights/internal/estimator"
	"agri-insights/internal/models"
)

type yieldOptions struct {
	crop         string
	season       string
	soil         string
	location     string
	rainfallMm   float64
	temperatureC float64
	seed         uint64
}

func newYieldCmd(root *rootOptions) *cobra.Command {
	opts := &yieldOptions{}

	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Predict crop yield in tons per hectare",
		Example: `  # Corn in summer on loam with weather data
  agrocalc yield --crop Corn --season Summer --soil Loam --rainfall 800 --temperature 24

  # Reproducible output
  agrocalc yield --crop Wheat --season Spring --seed 42 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runYield(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.crop, "crop", "", "crop name, e.g. Wheat, Corn, Rice")
	cmd.Flags().StringVar(&opts.season, "season", "", "growing season: Spring, Summer, Fall or Winter")
	cmd.Flags().StringVar(&opts.soil, "soil", "", "soil type: Clay, Sandy, Loam, Silt, Peat or Chalky")
	cmd.Flags().StringVar(&opts.location, "location", "", "field location label")
	cmd.Flags().Float64Var(&opts.rainfallMm, "rainfall", 0, "seasonal rainfall in mm")
	cmd.Flags().Float64Var(&opts.temperatureC, "temperature", 0, "average temperature in °C")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for the random factor; 0 draws a fresh value")
	_ = cmd.MarkFlagRequired("crop")
	_ = cmd.MarkFlagRequired("season")

	return cmd
}

func runYield(cmd *cobra.Command, root *rootOptions, opts *yieldOptions) error {
	coeffs, err := root.loadCoefficients()
	if err != nil {
		return err
	}

	query := models.YieldQuery{
		Crop:     models.Crop(opts.crop),
		Season:   models.Season(opts.season),
		SoilType: models.SoilType(opts.soil),
		Location: opts.location,
	}
	if cmd.Flags().Changed("rainfall") {
		query.RainfallMm = &opts.rainfallMm
	}
	if cmd.Flags().Changed("temperature") {
		query.TemperatureC = &opts.temperatureC
	}

	if err := query.Validate(); err != nil {
		return err
	}

	var rng estimator.RandomSource
	if opts.seed != 0 {
		rng = estimator.NewSeededSource(opts.seed)
	}

	prediction := estimator.NewYieldEstimator(coeffs.Yield, rng).Predict(query)

	if root.output == OutputJSON {
		return writeJSON(cmd.OutOrStdout(), prediction)
	}

	f := prediction.Factors
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Predicted yield: %.2f t/ha\n", prediction.YieldTonsPerHa)
	fmt.Fprintf(out, "  base yield         %.2f\n", f.BaseYield)
	fmt.Fprintf(out, "  season multiplier  %.2f\n", f.SeasonMultiplier)
	fmt.Fprintf(out, "  soil multiplier    %.2f\n", f.SoilMultiplier)
	fmt.Fprintf(out, "  weather multiplier %.3f\n", f.WeatherMultiplier)
	fmt.Fprintf(out, "  random factor      %.3f\n", f.RandomFactor)
	return nil
}
