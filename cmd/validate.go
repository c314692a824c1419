// =============================================================================
// Accounting Export Mapper - Validate Config Command
// =============================================================================
//
// This file defines the 'validate-config' command, which loads every
// configuration file and reports problems without converting anything.
//
// CHECKS:
//   - The main configuration parses and its values are valid
//   - Every source file parses and has patterns and a subtype
//   - Every source subtype has a catalog
//   - Catalogs have unique, named fields with compilable patterns
//   - Profiles target existing fields and do not share a lookup key
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check configuration, sources, catalogs and profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(false)
		if err != nil {
			return err
		}

		var problems []string
		for _, source := range env.sources {
			if _, ok := env.catalogs.Get(source.DocumentSubtype); !ok {
				problems = append(problems, fmt.Sprintf("source %s: no catalog for document subtype %q",
					source.Name, source.DocumentSubtype))
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration: %s\n", cfgFile)
		fmt.Fprintf(out, "Sources:       %d\n", len(env.sources))
		for _, source := range env.sources {
			fmt.Fprintf(out, "  - %s (%s, %s): %s\n", source.Name, source.System, source.DocumentSubtype,
				strings.Join(source.FileMatchingPatterns, ", "))
		}
		fmt.Fprintf(out, "Catalogs:      %s\n", strings.Join(env.catalogs.Subtypes(), ", "))
		fmt.Fprintf(out, "Profiles:      %d\n", env.profiles.Len())
		for _, name := range env.profiles.Names() {
			fmt.Fprintf(out, "  - %s\n", name)
		}

		if len(env.sources) == 0 {
			fmt.Fprintf(out, "\nWarning: no source configurations in %s, no file will match.\n", env.config.SourcesDir)
		}

		if len(problems) > 0 {
			return fmt.Errorf("configuration has %d problem(s):\n  %s", len(problems), strings.Join(problems, "\n  "))
		}

		fmt.Fprintln(out, "\nConfiguration is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}
