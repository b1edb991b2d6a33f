// Package config reads and scaffolds the project's portal.json
// manifest ({src_dir, main, build_path}). It leans on the tidwall
// JSON toolkit for path-based field access and rewriting rather than
// a hand-rolled encoding/json struct walk.
package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultFile is the manifest name the CLI looks for unless --module
// names another path.
const DefaultFile = "portal.json"

// Config is the parsed form of the manifest.
type Config struct {
	SrcDir    string
	Main      string
	BuildPath string
}

// Load reads and parses the manifest at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	root := gjson.ParseBytes(data)
	c := &Config{
		SrcDir:    root.Get("src_dir").String(),
		Main:      root.Get("main").String(),
		BuildPath: root.Get("build_path").String(),
	}
	if c.SrcDir == "" {
		return nil, fmt.Errorf("%s: missing required field %q", path, "src_dir")
	}
	if c.Main == "" {
		return nil, fmt.Errorf("%s: missing required field %q", path, "main")
	}
	return c, nil
}

// Scaffold writes a fresh manifest at path with the given defaults,
// used by `portal init`. It builds the JSON incrementally with sjson
// rather than marshaling a struct, so field order matches what a
// human hand-editing the file would produce.
func Scaffold(path, srcDir, main, buildPath string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	doc := "{}"
	var err error
	if doc, err = sjson.Set(doc, "src_dir", srcDir); err != nil {
		return err
	}
	if doc, err = sjson.Set(doc, "main", main); err != nil {
		return err
	}
	if doc, err = sjson.Set(doc, "build_path", buildPath); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc+"\n"), 0o644)
}
