package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/Azure/coverlens/pkg/coverage"
)

// File holds the coverable extents of a Go source file.
type File struct {
	Name  string
	Funcs []*FuncExtent
	Stmts []*StmtExtent
}

// FuncExtent describes a function's extent in the source.
type FuncExtent struct {
	Name  string
	Range coverage.Range
	// Body spans the braces of the function body.
	Body coverage.Range
}

// StmtExtent describes a statement's extent in the source.
type StmtExtent struct {
	Range    coverage.Range
	Branches []*BranchExtent
}

// BranchExtent is one way out of an if or switch statement.
type BranchExtent struct {
	Label string
	// Location is nil for the implicit else of an if and the implicit
	// default of a switch.
	Location *coverage.Range
	// Probe bounds the start of the profile block counting the branch.
	Probe coverage.Range
}

// Implicit reports whether the branch has no source of its own.
func (b *BranchExtent) Implicit() bool { return b.Location == nil }

// ParseFile parses the named file. src is read from disk when nil.
func ParseFile(name string, src []byte) (*File, error) {
	if src == nil {
		var err error
		src, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}

	fset := token.NewFileSet()
	parsedFile, err := parser.ParseFile(fset, name, src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	visitor := &FuncVisitor{fset: fset, src: src, file: &File{Name: name}}
	ast.Walk(visitor, parsedFile)
	return visitor.file, nil
}

// FuncVisitor implements the visitor that builds the function position list for a file.
type FuncVisitor struct {
	fset *token.FileSet
	src  []byte
	file *File
}

func functionName(f *ast.FuncDecl) string {
	name := f.Name.Name
	if f.Recv == nil || len(f.Recv.List) == 0 {
		return name
	}
	// Function name is prepended with "T." if there is a receiver, where
	// T is the type of the receiver, dereferenced if it is a pointer.
	return exprName(f.Recv.List[0].Type) + "." + name
}

func exprName(x ast.Expr) string {
	switch y := x.(type) {
	case *ast.StarExpr:
		return exprName(y.X)
	case *ast.IndexExpr:
		return fmt.Sprintf("%s[%s]", exprName(y.X), exprName(y.Index))
	case *ast.IndexListExpr:
		params := make([]string, 0, len(y.Indices))
		for _, index := range y.Indices {
			params = append(params, exprName(index))
		}
		return fmt.Sprintf("%s[%s]", exprName(y.X), strings.Join(params, ","))
	case *ast.Ident:
		return y.Name
	default:
		return ""
	}
}

// Visit implements the ast.Visitor interface.
func (v *FuncVisitor) Visit(node ast.Node) ast.Visitor {
	var body *ast.BlockStmt
	var name string
	switch n := node.(type) {
	case *ast.FuncLit:
		body = n.Body
	case *ast.FuncDecl:
		body = n.Body
		name = functionName(n)
	}
	if body == nil {
		return v
	}

	r := v.rangeOf(node.Pos(), node.End())
	if name == "" {
		name = fmt.Sprintf("@%d:%d", r.Start.Line, r.Start.Column)
	}
	v.file.Funcs = append(v.file.Funcs, &FuncExtent{
		Name:  name,
		Range: r,
		Body:  v.rangeOf(body.Lbrace, body.End()),
	})
	sv := StmtVisitor{fset: v.fset, src: v.src, file: v.file}
	sv.VisitStmt(body)
	return v
}

func (v *FuncVisitor) rangeOf(from, to token.Pos) coverage.Range {
	return rangeOf(v.fset, from, to)
}

func rangeOf(fset *token.FileSet, from, to token.Pos) coverage.Range {
	start, end := fset.Position(from), fset.Position(to)
	return coverage.NewRange(start.Line, start.Column, end.Line, end.Column)
}

// StmtVisitor records the statements of a function body.
type StmtVisitor struct {
	fset *token.FileSet
	src  []byte
	file *File
}

func (v *StmtVisitor) VisitStmt(s ast.Stmt) {
	var statements *[]ast.Stmt
	switch s := s.(type) {
	case *ast.BlockStmt:
		statements = &s.List
	case *ast.CaseClause:
		statements = &s.Body
	case *ast.CommClause:
		statements = &s.Body
	case *ast.ForStmt:
		if s.Init != nil {
			v.VisitStmt(s.Init)
		}
		if s.Post != nil {
			v.VisitStmt(s.Post)
		}
		v.VisitStmt(s.Body)
	case *ast.IfStmt:
		if s.Init != nil {
			v.VisitStmt(s.Init)
		}
		v.VisitStmt(s.Body)
		if s.Else != nil {
			// "else if" is visited as a block holding the inner if
			switch stmt := s.Else.(type) {
			case *ast.IfStmt:
				v.VisitStmt(&ast.BlockStmt{Lbrace: stmt.If, List: []ast.Stmt{stmt}, Rbrace: stmt.End()})
			case *ast.BlockStmt:
				v.VisitStmt(stmt)
			}
		}
	case *ast.LabeledStmt:
		v.VisitStmt(s.Stmt)
	case *ast.RangeStmt:
		v.VisitStmt(s.Body)
	case *ast.SelectStmt:
		v.VisitStmt(s.Body)
	case *ast.SwitchStmt:
		if s.Init != nil {
			v.VisitStmt(s.Init)
		}
		v.VisitStmt(s.Body)
	case *ast.TypeSwitchStmt:
		if s.Init != nil {
			v.VisitStmt(s.Init)
		}
		v.VisitStmt(s.Assign)
		v.VisitStmt(s.Body)
	}
	if statements == nil {
		return
	}
	for _, s := range *statements {
		switch s.(type) {
		case *ast.CaseClause, *ast.CommClause, *ast.BlockStmt:
		default:
			v.file.Stmts = append(v.file.Stmts, &StmtExtent{
				Range:    rangeOf(v.fset, s.Pos(), s.End()),
				Branches: v.branches(s),
			})
		}
		v.VisitStmt(s)
	}
}

// branches lists the ways out of an if or switch statement.
func (v *StmtVisitor) branches(s ast.Stmt) []*BranchExtent {
	switch s := s.(type) {
	case *ast.IfStmt:
		then := rangeOf(v.fset, s.Body.Lbrace, s.Body.End())
		result := []*BranchExtent{{
			Label:    "then",
			Location: &then,
			Probe:    coverage.Range{Start: then.Start, End: v.position(s.Body.Rbrace)},
		}}
		if s.Else == nil {
			return append(result, &BranchExtent{Label: "else"})
		}
		otherwise := rangeOf(v.fset, s.Else.Pos(), s.Else.End())
		return append(result, &BranchExtent{
			Label:    "else",
			Location: &otherwise,
			Probe:    coverage.Range{Start: then.End, End: otherwise.End},
		})
	case *ast.SwitchStmt:
		return v.clauses(s.Body)
	case *ast.TypeSwitchStmt:
		return v.clauses(s.Body)
	}
	return nil
}

func (v *StmtVisitor) clauses(body *ast.BlockStmt) []*BranchExtent {
	var result []*BranchExtent
	hasDefault := false
	for _, stmt := range body.List {
		clause, ok := stmt.(*ast.CaseClause)
		if !ok {
			continue
		}
		label := "default"
		if clause.List == nil {
			hasDefault = true
		} else {
			label = "case " + v.text(clause.List[0].Pos(), clause.List[len(clause.List)-1].End())
		}
		location := rangeOf(v.fset, clause.Pos(), clause.End())
		result = append(result, &BranchExtent{
			Label:    label,
			Location: &location,
			Probe:    coverage.Range{Start: v.position(clause.Colon + 1), End: location.End},
		})
	}
	if !hasDefault {
		result = append(result, &BranchExtent{Label: "default"})
	}
	return result
}

func (v *StmtVisitor) position(p token.Pos) coverage.Position {
	pos := v.fset.Position(p)
	return coverage.Position{Line: pos.Line, Column: pos.Column}
}

func (v *StmtVisitor) text(from, to token.Pos) string {
	start, end := v.fset.Position(from).Offset, v.fset.Position(to).Offset
	if start < 0 || end > len(v.src) || start > end {
		return ""
	}
	return string(v.src[start:end])
}
