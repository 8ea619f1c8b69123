package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"agri-insights/internal/estimator"
	"agri-insights/internal/models"
	"agri-insights/internal/services"
)

func newEnergyCmd(root *rootOptions) *cobra.Command {
	var q models.EnergyQuery
	var energyType string

	cmd := &cobra.Command{
		Use:   "energy",
		Short: "Calculate farm energy efficiency and sustainability",
		Example: `  # Diesel pumps running 120 hours at 15 kW
  agrocalc energy --irrigation-hours 120 --power-kw 15 --fertilizer-kg 200 --fuel-l 50 --energy-type diesel`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.EnergyType = models.EnergyType(energyType).Normalize()
			return runEnergy(cmd, root, q)
		},
	}

	cmd.Flags().Float64Var(&q.IrrigationHours, "irrigation-hours", 0, "irrigation hours per season")
	cmd.Flags().Float64Var(&q.FertilizerUsageKg, "fertilizer-kg", 0, "fertilizer applied in kg")
	cmd.Flags().StringVar(&energyType, "energy-type", string(models.EnergyGrid), "energy source: grid, solar, wind, diesel or hybrid")
	cmd.Flags().Float64Var(&q.EquipmentPowerKw, "power-kw", 0, "irrigation equipment power in kW (0 uses the default)")
	cmd.Flags().Float64Var(&q.FuelConsumptionL, "fuel-l", 0, "fuel consumed in litres")
	cmd.Flags().Float64Var(&q.ElectricityCostPerKwh, "price-per-kwh", 0, "electricity price per kWh (0 uses the default)")
	cmd.Flags().Float64Var(&q.CurrentYieldTonsPerHa, "yield", services.FallbackYieldTonsPerHa, "crop yield in tons per hectare")

	return cmd
}

func runEnergy(cmd *cobra.Command, root *rootOptions, q models.EnergyQuery) error {
	if err := q.Validate(); err != nil {
		return err
	}

	coeffs, err := root.loadCoefficients()
	if err != nil {
		return err
	}

	result := estimator.NewEnergyEstimator(coeffs.Energy).Estimate(q)

	if root.output == OutputJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Efficiency:            %.2f kg/kWh\n", result.EfficiencyScoreKgPerKwh)
	fmt.Fprintf(out, "Total energy:          %.2f kWh\n", result.TotalEnergyKwh)
	fmt.Fprintf(out, "Energy cost:           %.2f\n", result.EnergyCost)
	fmt.Fprintf(out, "CO2 emissions:         %.2f kg\n", result.CO2EmissionsKg)
	fmt.Fprintf(out, "Sustainability rating: %d/10\n", result.SustainabilityRating)
	fmt.Fprintln(out, "Recommendations:")
	for _, rec := range result.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}
	return nil
}
