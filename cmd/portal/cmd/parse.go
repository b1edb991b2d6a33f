package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/portal-lang/portal/internal/ast"
	perrors "github.com/portal-lang/portal/internal/errors"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/parser"
	"github.com/spf13/cobra"
)

var (
	parseEval    string
	parseDumpAST bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse portal source code and display the typed AST",
	Long: `Parse (and type-check) a single portal module and display its
typed declarations.

If no file is provided, reads from stdin.
Use -e to parse an inline snippet from the command line.
Use --dump-ast to show the full node tree of every body.

The module is parsed standalone: import statements are not resolved
here, use "portal build" or "portal run" for whole-project loading.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseEval, "eval", "e", "", "parse inline code instead of reading from file")
	parseCmd.Flags().BoolVar(&parseDumpAST, "dump-ast", false, "dump the full AST structure")
}

// standaloneImporter resolves exactly one identifier to an in-memory
// source, so `portal parse` can push a lone module through the
// loader without touching the filesystem.
type standaloneImporter struct {
	identifier string
	source     string
}

func (s *standaloneImporter) GetUniqueIdentifier(identifier string) (module.UID, bool) {
	if identifier != s.identifier {
		return 0, false
	}
	return module.DeriveUID(identifier), true
}

func (s *standaloneImporter) LoadModule(identifier string) (string, bool) {
	if identifier != s.identifier {
		return "", false
	}
	return s.source, true
}

func runParse(cmd *cobra.Command, args []string) error {
	input, filename, err := readSource(parseEval, args)
	if err != nil {
		return err
	}

	imp := &standaloneImporter{identifier: filename, source: input}
	mod, _, err := parser.NewLoader().Load(filename, imp)
	if err != nil {
		if pos, ok := err.(perrors.Positioned); ok {
			fmt.Fprintln(os.Stderr, perrors.New(pos, input, filename).Format(true))
			return fmt.Errorf("parsing failed")
		}
		return err
	}

	fmt.Printf("Module %q (%d variables, %d functions)\n", mod.Identifier, len(mod.Variables), len(mod.Functions))
	for _, v := range mod.Variables {
		fmt.Printf("  var %s: %s\n", v.Name, v.EvalType())
		if parseDumpAST {
			dumpNode(v.Value, 2)
		}
	}
	for _, fn := range mod.Functions {
		fmt.Printf("  func %s(%s): %s\n", fn.Name, strings.Join(fn.Params, ", "), fn.Sig.Ret)
		if parseDumpAST {
			for _, stmt := range fn.Body {
				dumpNode(stmt, 2)
			}
		}
	}
	return nil
}

func dumpNode(node ast.Node, indent int) {
	pad := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Literal:
		fmt.Printf("%sLiteral %s: %v\n", pad, n.EvalType(), n.Value)
	case *ast.VariableRef:
		fmt.Printf("%sVariableRef %s: %s\n", pad, n.Name, n.EvalType())
	case *ast.VariableDecl:
		fmt.Printf("%sVariableDecl %s: %s\n", pad, n.Name, n.EvalType())
		dumpNode(n.Value, indent+1)
	case *ast.VariableAsgn:
		fmt.Printf("%sVariableAsgn %s\n", pad, n.Name)
		dumpNode(n.Value, indent+1)
	case *ast.Paren:
		fmt.Printf("%sParen\n", pad)
		dumpNode(n.Inner, indent+1)
	case *ast.VectorLiteral:
		fmt.Printf("%sVectorLiteral (%d elements): %s\n", pad, len(n.Elems), n.EvalType())
		for _, e := range n.Elems {
			dumpNode(e, indent+1)
		}
	case *ast.ObjectLiteral:
		fmt.Printf("%sObjectLiteral (%d fields)\n", pad, len(n.Keys))
		for i, key := range n.Keys {
			fmt.Printf("%s  %s:\n", pad, key)
			dumpNode(n.Values[i], indent+2)
		}
	case *ast.FunctionLiteral:
		fmt.Printf("%sFunctionLiteral (%s): %s\n", pad, strings.Join(n.Params, ", "), n.EvalType())
		for _, stmt := range n.Body {
			dumpNode(stmt, indent+1)
		}
	case *ast.MathOperation:
		fmt.Printf("%sMathOperation (%s): %s\n", pad, n.Lit, n.EvalType())
		dumpNode(n.Left, indent+1)
		dumpNode(n.Right, indent+1)
	case *ast.BoolOperation:
		fmt.Printf("%sBoolOperation (%s)\n", pad, n.Lit)
		dumpNode(n.Left, indent+1)
		dumpNode(n.Right, indent+1)
	case *ast.VectorIndex:
		fmt.Printf("%sVectorIndex: %s\n", pad, n.EvalType())
		dumpNode(n.Vector, indent+1)
		dumpNode(n.Index, indent+1)
	case *ast.FunctionInvok:
		fmt.Printf("%sFunctionInvok (%d args): %s\n", pad, len(n.Args), n.EvalType())
		dumpNode(n.Callee, indent+1)
		for _, a := range n.Args {
			dumpNode(a, indent+1)
		}
	case *ast.FieldAccess:
		fmt.Printf("%sFieldAccess .%s: %s\n", pad, n.Field, n.EvalType())
		dumpNode(n.Object, indent+1)
	case *ast.FieldAsgn:
		fmt.Printf("%sFieldAsgn .%s\n", pad, n.Field)
		dumpNode(n.Object, indent+1)
		dumpNode(n.Value, indent+1)
	case *ast.ValueFieldAccess:
		fmt.Printf("%sValueFieldAccess\n", pad)
		dumpNode(n.Object, indent+1)
		dumpNode(n.Index, indent+1)
	case *ast.ValueFieldAssign:
		fmt.Printf("%sValueFieldAssign\n", pad)
		dumpNode(n.Object, indent+1)
		dumpNode(n.Index, indent+1)
		dumpNode(n.Value, indent+1)
	case *ast.ConstructClass:
		fmt.Printf("%sConstructClass %s (%d args)\n", pad, n.ClassName, len(n.Args))
		for _, a := range n.Args {
			dumpNode(a, indent+1)
		}
	case *ast.ConstructEnumVariant:
		fmt.Printf("%sConstructEnumVariant %s.%s\n", pad, n.EnumName, n.Variant)
		if n.Value != nil {
			dumpNode(n.Value, indent+1)
		}
	case *ast.ReturnStatement:
		kind := "return"
		if n.Kind == ast.JumpBreak {
			kind = "break"
		}
		fmt.Printf("%sReturnStatement (%s)\n", pad, kind)
		if n.Value != nil {
			dumpNode(n.Value, indent+1)
		}
	case *ast.IfStatement:
		fmt.Printf("%sIfStatement\n", pad)
		fmt.Printf("%s  Cond:\n", pad)
		dumpNode(n.Cond, indent+2)
		fmt.Printf("%s  Then:\n", pad)
		for _, stmt := range n.Then {
			dumpNode(stmt, indent+2)
		}
		if n.ElseIf != nil {
			fmt.Printf("%s  ElseIf:\n", pad)
			dumpNode(n.ElseIf, indent+2)
		}
		if n.ElseBody != nil {
			fmt.Printf("%s  Else:\n", pad)
			for _, stmt := range n.ElseBody {
				dumpNode(stmt, indent+2)
			}
		}
	case *ast.ForStatement:
		fmt.Printf("%sForStatement %s\n", pad, n.IterName)
		dumpNode(n.Min, indent+1)
		dumpNode(n.Max, indent+1)
		for _, stmt := range n.Body {
			dumpNode(stmt, indent+1)
		}
	case *ast.WhileStatement:
		fmt.Printf("%sWhileStatement\n", pad)
		dumpNode(n.Cond, indent+1)
		for _, stmt := range n.Body {
			dumpNode(stmt, indent+1)
		}
	default:
		fmt.Printf("%s%T\n", pad, node)
	}
}
