// Package importer is the reference host-side collaborator of the
// core pipeline: a filesystem-backed module.Importer resolving an
// identifier like "a/b" to the source file <src_dir>/a/b.portal.
package importer

import (
	"os"
	"path/filepath"

	"github.com/portal-lang/portal/internal/module"
)

// FS resolves module identifiers against files rooted at Dir.
type FS struct {
	Dir string
}

func New(dir string) *FS { return &FS{Dir: dir} }

func (f *FS) path(identifier string) string {
	return filepath.Join(f.Dir, filepath.FromSlash(identifier)+".portal")
}

// GetUniqueIdentifier derives identifier's UID from the identifier
// string itself; ok is false if no matching file exists.
func (f *FS) GetUniqueIdentifier(identifier string) (module.UID, bool) {
	if _, err := os.Stat(f.path(identifier)); err != nil {
		return 0, false
	}
	return module.DeriveUID(identifier), true
}

// LoadModule reads the source file backing identifier.
func (f *FS) LoadModule(identifier string) (string, bool) {
	data, err := os.ReadFile(f.path(identifier))
	if err != nil {
		return "", false
	}
	return string(data), true
}
