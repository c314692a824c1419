package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/jpk-mapper/internal/xmlwriter"
)

var schemaOutput string

// schemaCmd prints the XSD of the documents written for a subtype.
var schemaCmd = &cobra.Command{
	Use:   "schema SUBTYPE",
	Short: "Print the XSD of the documents written for a subtype",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(true)
		if err != nil {
			return err
		}

		cat, ok := env.catalogs.Get(args[0])
		if !ok {
			return fmt.Errorf("no catalog for document subtype %q", args[0])
		}

		xsd, err := xmlwriter.GenerateXSD(cat, xmlwriter.DefaultGenerateOptions())
		if err != nil {
			return err
		}

		if schemaOutput == "" {
			_, err = cmd.OutOrStdout().Write(xsd)
			return err
		}
		if err := os.WriteFile(schemaOutput, xsd, 0644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the schema to this file instead of stdout")
}
