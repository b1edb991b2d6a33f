package errors

import (
	"strings"
	"testing"

	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/token"
)

func TestCompilerError_Format(t *testing.T) {
	src := "var x = 1\nvar y = nope\n"
	err := &module.Error{Kind: module.ErrModuleNotFound, Identifier: "std/nope", Pos: token.Position{Line: 2, Column: 9}}

	ce := New(err, src, "main.portal")
	out := ce.Format(false)

	if !strings.Contains(out, "main.portal:2:9") {
		t.Errorf("expected position header, got %q", out)
	}
	if !strings.Contains(out, "var y = nope") {
		t.Errorf("expected source line, got %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("expected caret, got %q", out)
	}
	if !strings.Contains(out, `module not found: "std/nope"`) {
		t.Errorf("expected message, got %q", out)
	}
}

func TestCompilerError_FormatColor(t *testing.T) {
	err := &module.Error{Kind: module.ErrCircularImport, Identifier: "a", Pos: token.Position{Line: 1, Column: 1}}
	ce := New(err, "import \"a\"\n", "")
	out := ce.Format(true)
	if !strings.Contains(out, "\033[1;31m") {
		t.Errorf("expected ANSI color codes when color=true, got %q", out)
	}
}

func TestFormatErrors_Multiple(t *testing.T) {
	e1 := New(&module.Error{Kind: module.ErrModuleNotFound, Identifier: "a", Pos: token.Position{Line: 1, Column: 1}}, "", "")
	e2 := New(&module.Error{Kind: module.ErrModuleNotFound, Identifier: "b", Pos: token.Position{Line: 2, Column: 1}}, "", "")

	out := FormatErrors([]*CompilerError{e1, e2}, false)
	if !strings.Contains(out, "2 error(s)") {
		t.Errorf("expected error count header, got %q", out)
	}
	if !strings.Contains(out, "[Error 1 of 2]") || !strings.Contains(out, "[Error 2 of 2]") {
		t.Errorf("expected numbered error sections, got %q", out)
	}
}

func TestFormatErrors_Empty(t *testing.T) {
	if out := FormatErrors(nil, false); out != "" {
		t.Errorf("expected empty string for no errors, got %q", out)
	}
}
