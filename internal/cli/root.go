package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"agri-insights/internal/estimator"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

type rootOptions struct {
	coefficientsPath string
	output           string
}

// loadCoefficients reads the tables named by --coefficients, or the built-in ones
func (o *rootOptions) loadCoefficients() (estimator.Coefficients, error) {
	return estimator.LoadCoefficients(o.coefficientsPath)
}

// NewRootCmd creates the root command of the agrocalc CLI
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "agrocalc",
		Short:         "Crop yield and farm energy efficiency calculator",
		Long:          "agrocalc runs the yield and energy efficiency estimators locally, without the API server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case OutputText, OutputJSON:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (use %s or %s)", opts.output, OutputText, OutputJSON)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.coefficientsPath, "coefficients", "", "YAML file overriding the built-in coefficient tables")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputText, "output format: text or json")

	cmd.AddCommand(newYieldCmd(opts))
	cmd.AddCommand(newEnergyCmd(opts))

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
