package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/ternarybob/docugen/internal/pipeline"
)

// extractGo parses Go source with go/parser (stdlib: no third-party Go AST
// parser appears anywhere in the corpus, so this one function is the
// documented stdlib exception — see DESIGN.md). A parse failure is tolerant:
// the file is reported with ParseErr set rather than aborting the stage.
func extractGo(path string, src []byte) pipeline.FileAnalysis {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return pipeline.FileAnalysis{Path: path, ParseErr: err.Error()}
	}

	analysis := pipeline.FileAnalysis{Path: path}

	for _, imp := range file.Imports {
		analysis.Imports = append(analysis.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	methodsByReceiver := map[string][]string{}
	var topLevelFuncs []*ast.FuncDecl

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Recv == nil || len(fn.Recv.List) == 0 {
			topLevelFuncs = append(topLevelFuncs, fn)
			continue
		}
		recvName := receiverTypeName(fn.Recv.List[0].Type)
		methodsByReceiver[recvName] = append(methodsByReceiver[recvName], fn.Name.Name)
	}

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, ok := ts.Type.(*ast.StructType); !ok {
				if _, ok := ts.Type.(*ast.InterfaceType); !ok {
					continue
				}
			}
			analysis.Classes = append(analysis.Classes, pipeline.ClassInfo{
				Name:      ts.Name.Name,
				Docstring: docText(gen.Doc),
				Methods:   methodsByReceiver[ts.Name.Name],
				Line:      fset.Position(ts.Pos()).Line,
			})
		}
	}

	for _, fn := range topLevelFuncs {
		analysis.Functions = append(analysis.Functions, pipeline.FuncInfo{
			Name:   fn.Name.Name,
			Params: paramNames(fn.Type),
			Line:   fset.Position(fn.Pos()).Line,
		})
	}

	return analysis
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

func paramNames(ft *ast.FuncType) []string {
	if ft.Params == nil {
		return nil
	}
	var names []string
	for _, field := range ft.Params.List {
		typeName := exprString(field.Type)
		if len(field.Names) == 0 {
			names = append(names, typeName)
			continue
		}
		for _, n := range field.Names {
			names = append(names, fmt.Sprintf("%s %s", n.Name, typeName))
		}
	}
	return names
}

func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	default:
		return "?"
	}
}
