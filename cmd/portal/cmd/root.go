package cmd

import (
	"fmt"
	"os"

	"github.com/portal-lang/portal/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Portal language compiler and interpreter",
	Long: `portal is the reference toolchain for the Portal scripting language.

Portal is a small, statically-typed, indentation-sensitive scripting
language with two execution backends: a tree-walking interpreter and
a WebAssembly code generator.

Project layout is driven by a portal.json manifest (see "portal init").`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("module", config.DefaultFile, "path to the project manifest")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
