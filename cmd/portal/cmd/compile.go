package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/config"
	perrors "github.com/portal-lang/portal/internal/errors"
	"github.com/portal-lang/portal/pkg/engine"
	"github.com/portal-lang/portal/pkg/importer"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"
)

// loadConfig resolves the --module flag (falling back to
// config.DefaultFile) and parses the manifest it names.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("module")
	if path == "" {
		path = config.DefaultFile
	}
	return config.Load(path)
}

// reportPipelineError renders a load/parse/runtime failure the way
// every CompilerError-shaped error family does, falling
// back to a bare message for anything that doesn't carry a position.
func reportPipelineError(err error) error {
	if pos, ok := err.(perrors.Positioned); ok {
		ce := perrors.New(pos, "", "")
		fmt.Fprintln(os.Stderr, ce.Format(true))
		return fmt.Errorf("compilation failed")
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return fmt.Errorf("compilation failed")
}

// loadMainModule wires up the filesystem importer against the
// manifest's src_dir and loads its main module through the engine.
func loadMainModule(cfg *config.Config) (*engine.Engine, ast.UID, error) {
	eng := engine.New()
	imp := importer.New(cfg.SrcDir)
	uid, err := eng.LoadModule(cfg.Main, imp)
	if err != nil {
		return nil, 0, err
	}
	return eng, uid, nil
}

// exportNames returns a copy of names in natural sort order, for the
// `--list-exports` diagnostic.
func exportNames(names []string) []string {
	sorted := append([]string(nil), names...)
	sort.Sort(natural.StringSlice(sorted))
	return sorted
}
