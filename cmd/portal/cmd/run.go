package cmd

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var runFunc string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the manifest's main module and evaluate a function",
	Long: `Load the project named by the manifest (--module, default
./portal.json) and run a zero-argument top-level function from its
main module with the tree-walking evaluator, printing the result.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFunc, "func", "main", "zero-argument function to evaluate")
}

func runRun(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng, uid, err := loadMainModule(cfg)
	if err != nil {
		return reportPipelineError(err)
	}

	if verbose {
		pretty.Fprintf(os.Stderr, "loaded module %q, exports: %# v\n", cfg.Main, eng.ExportedFunctionNames(uid))
	}

	call, ok := eng.GetFunction(uid, runFunc)
	if !ok {
		return fmt.Errorf("%s has no zero-argument function %q", cfg.Main, runFunc)
	}

	result, err := call()
	if err != nil {
		return reportPipelineError(err)
	}

	fmt.Println(result.String())
	return nil
}
