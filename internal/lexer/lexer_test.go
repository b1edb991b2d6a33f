package lexer

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/portal-lang/portal/internal/token"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_IndentDedentBalance(t *testing.T) {
	// For every input, sum(Indent) - sum(Dedent) must equal the final
	// indentation depth, which is 0 once the trailing dedents flush.
	src := "func f(): int\n    if true\n        return 1\n    return 0\n"
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	indents, dedents := 0, 0
	for _, tk := range toks {
		switch tk.Kind {
		case token.Indent:
			indents++
		case token.Dedent:
			dedents++
		}
	}
	if indents != dedents {
		t.Fatalf("expected balanced Indent/Dedent at EOF, got %d indents and %d dedents", indents, dedents)
	}
}

func TestTokenize_NoTrailingNewline(t *testing.T) {
	// A single-line file without a trailing newline must still close
	// all open resolvers.
	src := "var x = 1"
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	last := toks[len(toks)-1]
	if last.Kind != token.NewLine {
		t.Fatalf("expected the implicit final newline to flush a NewLine token, got %s", last.Kind)
	}
}

func TestTokenize_MixedTabsAndSpacesRejected(t *testing.T) {
	src := "func f(): int\n\t    return 1\n"
	if _, err := Tokenize(src); err == nil {
		t.Fatal("expected an error for a leading run mixing tabs and spaces")
	}
}

func TestTokenize_DedentWithoutMatchingLevel(t *testing.T) {
	src := "func f(): int\n    if true\n        return 1\n      return 0\n"
	_, err := Tokenize(src)
	if err == nil {
		t.Fatal("expected InvalidIndent for a dedent landing between two known levels")
	}
	lexErr, ok := err.(*Error)
	if !ok || lexErr.Kind != ErrInvalidIndent {
		t.Fatalf("expected ErrInvalidIndent, got %#v", err)
	}
}

func TestTokenize_OperatorMaximalMunch(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"==", token.BoolOperator},
		{"!=", token.BoolOperator},
		{">=", token.BoolOperator},
		{"<=", token.BoolOperator},
		{"..", token.Operator},
		{"+", token.MathOperator},
		{"-", token.MathOperator},
		{"^", token.MathOperator},
	}
	for _, c := range cases {
		toks, err := Tokenize(c.src + "\n")
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", c.src, err)
		}
		if toks[0].Kind != c.kind || toks[0].Literal != c.src {
			t.Fatalf("Tokenize(%q): got %s %q", c.src, toks[0].Kind, toks[0].Literal)
		}
	}
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, err := Tokenize(`var x = "unterminated` + "\n")
	if err == nil {
		t.Fatal("expected UnterminatedString error")
	}
	lexErr, ok := err.(*Error)
	if !ok || lexErr.Kind != ErrUnterminatedString {
		t.Fatalf("expected ErrUnterminatedString, got %#v", err)
	}
}

func TestTokenize_StringEscapes(t *testing.T) {
	toks, err := Tokenize(`var x = "a\"b\\c"` + "\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var str token.Token
	for _, tk := range toks {
		if tk.Kind == token.LiteralString {
			str = tk
		}
	}
	if str.Literal != `a"b\c` {
		t.Fatalf("expected unescaped literal %q, got %q", `a"b\c`, str.Literal)
	}
}

func TestTokenize_IntVsFloat(t *testing.T) {
	toks, err := Tokenize("1\n1.5\n")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var lits []token.Token
	for _, tk := range toks {
		if tk.Kind == token.LiteralInt || tk.Kind == token.LiteralFloat {
			lits = append(lits, tk)
		}
	}
	if len(lits) != 2 || lits[0].Kind != token.LiteralInt || lits[1].Kind != token.LiteralFloat {
		t.Fatalf("expected [INT FLOAT], got %v", kinds(lits))
	}
}

// TestTokenize_Snapshot pins the full token-kind stream of a
// representative program: imports, typed declarations, control flow,
// indentation, string/int/float literals, and plain and boolean
// operators.
func TestTokenize_Snapshot(t *testing.T) {
	src := `import "std/math"
var pi: float = 3.14
func classify(n: int): string
    if n < 0
        return "negative"
    else if n == 0
        return "zero"
    else
        return "positive"
func main(): int
    for i in 0..3
        var v = [1, 2, 3]
        while v[0] != 0
            break
    return 0
`
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var sb strings.Builder
	for _, tk := range toks {
		fmt.Fprintf(&sb, "%s %q\n", tk.Kind, tk.Literal)
	}
	snaps.MatchSnapshot(t, sb.String())
}
