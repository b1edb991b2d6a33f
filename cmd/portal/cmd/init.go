package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/portal-lang/portal/internal/config"
	"github.com/spf13/cobra"
)

var (
	initSrcDir    string
	initMain      string
	initBuildPath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new portal.json manifest",
	Long: `Write a fresh portal.json manifest in the current directory
(or at the path given by --module), along with an empty entry-point
source file under src_dir.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initSrcDir, "src-dir", "./src", "directory holding .portal source files")
	initCmd.Flags().StringVar(&initMain, "main", "main", "entry-point module identifier")
	initCmd.Flags().StringVar(&initBuildPath, "build-path", "./build/out.wasm", "output path for `portal build`")
}

func runInit(cmd *cobra.Command, _ []string) error {
	modulePath, _ := cmd.Flags().GetString("module")
	if modulePath == "" {
		modulePath = config.DefaultFile
	}

	if err := config.Scaffold(modulePath, initSrcDir, initMain, initBuildPath); err != nil {
		return err
	}

	entryFile := filepath.Join(initSrcDir, filepath.FromSlash(initMain)+".portal")
	if _, err := os.Stat(entryFile); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(entryFile), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(entryFile), err)
		}
		stub := "func main(): int\n    return 0\n"
		if err := os.WriteFile(entryFile, []byte(stub), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", entryFile, err)
		}
		fmt.Printf("wrote %s\n", entryFile)
	}

	fmt.Printf("wrote %s\n", modulePath)
	return nil
}
