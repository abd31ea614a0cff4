// =============================================================================
// SPED Toolkit - Main Entry Point
// =============================================================================
//
// USAGE:
//   sped view FILE       - Show raw lines
//   sped types FILE      - Count record types
//   sped layout [TYPE]   - Show the layout descriptor
//   sped filter FILE     - Find records by field values
//   sped edit FILE       - Bulk-edit a field
//   sped summary FILE    - ICMS summary by CFOP and direction
//   sped export FILE     - Excel or semicolon separated export
//   sped version         - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Layout, document, records, summary, export, session
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sped-toolkit/cmd"
)

func main() {
	cmd.Execute()
}
