package token

// Kind identifies the syntactic category of a Token.
//
// The groupings below: keywords, identifiers/symbols, literals,
// operators (split by family: plain, math, boolean),
// parentheses/brackets/braces, structural whitespace tokens
// (Indent/Dedent/NewLine), primitive type names, and attributes.
type Kind int

const (
	Illegal Kind = iota
	EOF

	// Structural
	Indent
	Dedent
	NewLine

	// Identifiers
	Symbol
	Attribute // @name

	// Literals
	LiteralInt
	LiteralFloat
	LiteralString
	LiteralBool // true / false
	LiteralNothing

	// Operators
	Operator     // = .. , . : @
	MathOperator // + - * / % ^
	BoolOperator // == != > < >= <=

	// Parentheses / brackets / braces
	ParenOpen
	ParenClose
	BracketOpen
	BracketClose
	BraceOpen
	BraceClose

	// Type name, e.g. "int", "float", "string", "bool", "nothing"
	TypeName

	// Keywords
	KwImport
	KwVariable
	KwFunction
	KwClass
	KwEnum
	KwIf
	KwElse
	KwFor
	KwWhile
	KwReturn
	KwBreak
	KwIn
)

var kindNames = map[Kind]string{
	Illegal:         "ILLEGAL",
	EOF:             "EOF",
	Indent:          "INDENT",
	Dedent:          "DEDENT",
	NewLine:         "NEWLINE",
	Symbol:          "SYMBOL",
	Attribute:       "ATTRIBUTE",
	LiteralInt:      "INT",
	LiteralFloat:    "FLOAT",
	LiteralString:   "STRING",
	LiteralBool:     "BOOL",
	LiteralNothing:  "NOTHING",
	Operator:        "OPERATOR",
	MathOperator:    "MATH_OPERATOR",
	BoolOperator:    "BOOL_OPERATOR",
	ParenOpen:       "(",
	ParenClose:      ")",
	BracketOpen:     "[",
	BracketClose:    "]",
	BraceOpen:       "{",
	BraceClose:      "}",
	TypeName:        "TYPE",
	KwImport:        "import",
	KwVariable:      "var",
	KwFunction:      "func",
	KwClass:         "class",
	KwEnum:          "enum",
	KwIf:            "if",
	KwElse:          "else",
	KwFor:           "for",
	KwWhile:         "while",
	KwReturn:        "return",
	KwBreak:         "break",
	KwIn:            "in",
}

// String implements fmt.Stringer for diagnostics and snapshot tests.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Keywords maps source spellings to their keyword Kind. Anything not
// in this table that looks like an identifier lexes as Symbol.
var Keywords = map[string]Kind{
	"import":   KwImport,
	"var":      KwVariable,
	"func":     KwFunction,
	"class":    KwClass,
	"enum":     KwEnum,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"while":    KwWhile,
	"return":   KwReturn,
	"break":    KwBreak,
	"in":       KwIn,
	"true":     LiteralBool,
	"false":    LiteralBool,
	"nothing":  LiteralNothing,
	"int":      TypeName,
	"float":    TypeName,
	"string":   TypeName,
	"bool":     TypeName,
}

// Token is one lexeme: its Kind, literal text, and source span.
type Token struct {
	Kind    Kind
	Literal string
	Span    Span
}

// Pos returns the token's starting position, used throughout the
// parser/checker/evaluator for diagnostics.
func (t Token) Pos() Position { return t.Span.Pos }
