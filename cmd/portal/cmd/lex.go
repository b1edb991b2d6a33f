package cmd

import (
	"fmt"
	"io"
	"os"

	perrors "github.com/portal-lang/portal/internal/errors"
	"github.com/portal-lang/portal/internal/lexer"
	"github.com/portal-lang/portal/internal/token"
	"github.com/spf13/cobra"
)

var (
	lexEval    string
	lexShowPos bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a portal source file or inline snippet",
	Long: `Tokenize a portal program and print the resulting token stream,
including the Indent/Dedent tokens derived from leading whitespace.

This command is useful for debugging the lexer and understanding how
source code is tokenized.

If no file is provided, reads from stdin.

Examples:
  # Tokenize a source file
  portal lex src/main.portal

  # Tokenize an inline snippet
  portal lex -e "var x = 1 + 2"

  # Show token positions
  portal lex --show-pos src/main.portal`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&lexEval, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&lexShowPos, "show-pos", false, "show token positions (line:column)")
}

func runLex(cmd *cobra.Command, args []string) error {
	input, filename, err := readSource(lexEval, args)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		fmt.Printf("Tokenizing: %s\n", filename)
		fmt.Printf("Input length: %d bytes\n", len(input))
		fmt.Println("---")
	}

	tokens, lexErr := lexer.Tokenize(input)
	for _, tok := range tokens {
		printToken(tok)
	}
	if lexErr != nil {
		if pos, ok := lexErr.(perrors.Positioned); ok {
			fmt.Fprintln(os.Stderr, perrors.New(pos, input, filename).Format(true))
			return fmt.Errorf("tokenizing failed")
		}
		return lexErr
	}

	if verbose {
		fmt.Println("---")
		fmt.Printf("Total tokens: %d\n", len(tokens))
	}
	return nil
}

// readSource resolves the input for the lex/parse diagnostics: an
// inline -e snippet, a file argument, or stdin.
func readSource(inline string, args []string) (input, filename string, err error) {
	if inline != "" {
		return inline, "<eval>", nil
	}
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(data), args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("error reading stdin: %w", err)
	}
	return string(data), "<stdin>", nil
}

func printToken(tok token.Token) {
	output := fmt.Sprintf("[%-13s]", tok.Kind)

	switch tok.Kind {
	case token.Indent, token.Dedent:
		// structural, no literal
	case token.NewLine:
		output += ` "\n"`
	default:
		output += fmt.Sprintf(" %q", tok.Literal)
	}

	if lexShowPos {
		output += fmt.Sprintf(" @%d:%d", tok.Span.Pos.Line, tok.Span.Pos.Column)
	}

	fmt.Println(output)
}
