// =============================================================================
// Accounting Export Mapper - Map Command
// =============================================================================
//
// This file defines the 'map' command, which shows how a file would be mapped
// without writing anything.
//
// COMMAND USAGE:
//   jpk-mapper map FILE [flags]
//
// FLAGS:
//   --subtype      : Catalog to map against when no source matches the file
//   --delimiter    : CSV delimiter when no source matches (default "auto")
//   --header-rows  : Header rows when no source matches (default 1)
//   --encoding     : CSV encoding when no source matches (default "UTF-8")
//   --profile      : Print the mapping as a YAML profile entry
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/jpk-mapper/internal/config"
	"github.com/ginjaninja78/jpk-mapper/internal/converter"
	"github.com/ginjaninja78/jpk-mapper/internal/pipeline"
	"github.com/ginjaninja78/jpk-mapper/internal/profile"
	"github.com/ginjaninja78/jpk-mapper/internal/types"
	"github.com/ginjaninja78/jpk-mapper/internal/validation"
)

// maxHeaderWidth is the display width headers are truncated to.
const maxHeaderWidth = 32

var (
	mapSubtype    string
	mapDelimiter  string
	mapHeaderRows int
	mapEncoding   string
	mapProfile    bool
)

var mapCmd = &cobra.Command{
	Use:   "map FILE",
	Short: "Show the column mapping of an export",
	Long: `The map command reads one export, selects its column mapping exactly like
convert does (profile first, then automatic mapping) and prints the result
together with the issue counts of a dry run.

With --profile the mapping is printed as a profiles file entry, ready to be
pinned in profiles_file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMap(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringVarP(&mapSubtype, "subtype", "s", "", "Catalog to map against when no source matches the file")
	mapCmd.Flags().StringVar(&mapDelimiter, "delimiter", "auto", "CSV delimiter when no source matches the file")
	mapCmd.Flags().IntVar(&mapHeaderRows, "header-rows", 1, "Header rows when no source matches the file")
	mapCmd.Flags().StringVar(&mapEncoding, "encoding", "UTF-8", "CSV encoding when no source matches the file")
	mapCmd.Flags().BoolVar(&mapProfile, "profile", false, "Print the mapping as a YAML profile entry")
}

func runMap(out io.Writer, filePath string) error {
	env, err := loadEnvironment(true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	source, ok := config.FindSource(env.sources, filePath)
	if !ok {
		if mapSubtype == "" {
			return fmt.Errorf("no source configuration matches %s, use --subtype", filepath.Base(filePath))
		}
		source = &config.SourceConfig{
			Name:            "command line",
			DocumentSubtype: mapSubtype,
			CSVSettings: config.CSVSettings{
				Delimiter:  mapDelimiter,
				HeaderRows: mapHeaderRows,
				NoHeader:   mapHeaderRows == 0,
				Encoding:   mapEncoding,
			},
		}
	} else if mapSubtype != "" {
		copied := *source
		copied.DocumentSubtype = mapSubtype
		source = &copied
	}

	cat, ok := env.catalogs.Get(source.DocumentSubtype)
	if !ok {
		return fmt.Errorf("no catalog for document subtype %q (known: %s)",
			source.DocumentSubtype, strings.Join(env.catalogs.Subtypes(), ", "))
	}

	sheet, err := converter.ReadSheet(filePath, source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	result := pipeline.New(env.profiles).Run(sheet, cat, pipeline.Options{
		SkipValidation: env.config.SkipValidation,
	})

	if mapProfile {
		return printProfile(out, filePath, source, result.Mapping)
	}

	printMapping(out, source, result)
	return nil
}

// printMapping writes the mapping table, the unmapped sets and the issues.
func printMapping(out io.Writer, source *config.SourceConfig, result *types.Result) {
	fmt.Fprintf(out, "Source:  %s\n", source.Name)
	fmt.Fprintf(out, "Catalog: %s\n", result.Catalog.Subtype)
	switch result.MappingSource {
	case types.SourceProfile:
		fmt.Fprintf(out, "Mapping: profile %s\n\n", result.ProfileName)
	default:
		fmt.Fprintf(out, "Mapping: %s\n\n", result.MappingSource)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tHEADER\tFIELD\tCONFIDENCE\tMETHOD")
	for col := 0; col < result.Mapping.ColumnCount; col++ {
		header := runewidth.Truncate(result.Sheet.Header(col), maxHeaderWidth, "…")
		m, ok := result.Mapping.ForColumn(col)
		if !ok {
			fmt.Fprintf(w, "%d\t%s\t-\t\t\n", col, header)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n", col, header, m.TargetField, m.Confidence, m.Method)
	}
	w.Flush()

	if len(result.Mapping.UnmappedColumns) > 0 {
		cols := make([]string, len(result.Mapping.UnmappedColumns))
		for i, c := range result.Mapping.UnmappedColumns {
			cols[i] = fmt.Sprintf("%d (%s)", c, runewidth.Truncate(result.Sheet.Header(c), maxHeaderWidth, "…"))
		}
		fmt.Fprintf(out, "\nUnmapped columns: %s\n", strings.Join(cols, ", "))
	}
	if len(result.Mapping.UnmappedFields) > 0 {
		fmt.Fprintf(out, "Unmapped fields:  %s\n", strings.Join(result.Mapping.UnmappedFields, ", "))
	}

	fmt.Fprintf(out, "\nDry run: %d row(s), %d error(s), %d warning(s)\n",
		len(result.Rows), result.Count(types.SeverityError), result.Count(types.SeverityWarning))
	if verbose {
		fmt.Fprintln(out)
		fmt.Fprint(out, validation.FormatIssues(result.Issues))
	}
}

// printProfile writes the mapping as one entry of a profiles file.
func printProfile(out io.Writer, filePath string, source *config.SourceConfig, mapping types.MappingResult) error {
	if mapping.Empty() {
		return fmt.Errorf("nothing was mapped, no profile to print")
	}

	columns := make(map[int]string, len(mapping.Mappings))
	for _, m := range mapping.Mappings {
		columns[m.SourceColumn] = m.TargetField
	}

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if source.System != "" {
		name = source.System + "-" + source.DocumentSubtype
	}

	entry := struct {
		Profiles []profile.Profile `yaml:"profiles"`
	}{
		Profiles: []profile.Profile{{
			Name:            name,
			System:          source.System,
			DocumentType:    source.DocumentType,
			DocumentSubtype: source.DocumentSubtype,
			Columns:         columns,
		}},
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return enc.Close()
}
