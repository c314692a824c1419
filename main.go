// =============================================================================
// Accounting Export Mapper - Main Entry Point
// =============================================================================
//
// USAGE:
//   jpk-mapper convert          - Convert all exports in the input directory
//   jpk-mapper map FILE         - Show how one export would be mapped
//   jpk-mapper schema SUBTYPE   - Print the XSD of a subtype's documents
//   jpk-mapper validate-config  - Validate configuration files
//   jpk-mapper version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Mapping engine, readers, writer and configuration
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/jpk-mapper/cmd"
)

func main() {
	cmd.Execute()
}
