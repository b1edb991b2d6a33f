package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var (
	buildRelease     bool
	buildListExports bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Lower the manifest's main module to a WASM binary",
	Long: `Load the project named by the manifest (--module, default
./portal.json), lower its main module to a WASM module, and write the
bytes to build_path.

--release currently only affects diagnostic output; the lowering pass
itself has no debug/release distinction.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildRelease, "release", false, "suppress verbose diagnostics even if --verbose is set")
	buildCmd.Flags().BoolVar(&buildListExports, "list-exports", false, "print the module's exported function names and exit")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	verbose = verbose && !buildRelease

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng, uid, err := loadMainModule(cfg)
	if err != nil {
		return reportPipelineError(err)
	}

	if buildListExports {
		names := eng.ExportedFunctionNames(uid)
		for _, name := range exportNames(names) {
			fmt.Println(name)
		}
		return nil
	}

	out, err := eng.BuildModuleSource(uid)
	if err != nil {
		return reportPipelineError(err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.BuildPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(cfg.BuildPath), err)
	}
	if err := os.WriteFile(cfg.BuildPath, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.BuildPath, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(out), cfg.BuildPath)
		pretty.Fprintf(os.Stderr, "module: %# v\n", eng.ModuleSummary(uid))
	}
	fmt.Printf("built %s -> %s (%d bytes)\n", cfg.Main, cfg.BuildPath, len(out))
	return nil
}
