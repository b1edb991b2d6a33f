// Package errors provides shared diagnostic formatting for every
// error family in the pipeline (Tokenizer, Parser, Load, Runtime):
// a source snippet with a caret pointing at the offending position,
// in plain or ANSI-colored form.
package errors

import (
	"fmt"
	"strings"

	"github.com/portal-lang/portal/internal/token"
)

// Positioned is implemented by every error family's concrete error
// type (lexer.Error, module.Error, module.PreParseError, parser.Error,
// eval.Error) so the CLI can render any of them the same way.
type Positioned interface {
	error
	Position() token.Position
}

// CompilerError pairs a Positioned failure with the source text and
// file name needed to render it.
type CompilerError struct {
	Err    Positioned
	Source string
	File   string
}

// New wraps err with the source text and file name it was read from.
func New(err Positioned, source, file string) *CompilerError {
	return &CompilerError{Err: err, Source: source, File: file}
}

func (e *CompilerError) Error() string { return e.Format(false) }

// Format renders the error with a 4-digit line-number gutter and a
// caret under the offending column. If color is true, the caret and
// message are wrapped in ANSI bold/red codes.
func (e *CompilerError) Format(color bool) string {
	pos := e.Err.Position()
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(fmt.Sprintf("Error in %s:%d:%d\n", e.File, pos.Line, pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("Error at line %d:%d\n", pos.Line, pos.Column))
	}

	if line := e.sourceLine(pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+max(pos.Column-1, 0)))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Err.Error())
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (e *CompilerError) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors renders a batch of CompilerErrors, one after another,
// with a count header when there is more than one.
func FormatErrors(errs []*CompilerError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Compilation failed with %d error(s):\n\n", len(errs)))
	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("[Error %d of %d]\n", i+1, len(errs)))
		sb.WriteString(err.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
