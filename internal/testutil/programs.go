package testutil

import "martianoff/sharplua/internal/lowering/resolved"

var (
	objectType = &resolved.Type{Name: "Object", FullName: "System.Object", Namespace: "System", Special: resolved.SpecialObject}
	voidType   = &resolved.Type{Name: "Void", FullName: "System.Void", Namespace: "System", Special: resolved.SpecialVoid}
	intType    = &resolved.Type{Name: "Int32", FullName: "System.Int32", Namespace: "System", Kind: resolved.KindStruct, Special: resolved.SpecialInt32}
)

// Sample is a small resolved program with handles on the symbols tests
// assert against.
type Sample struct {
	Program *resolved.Program
	Color   *resolved.Type
	Counter *resolved.Type
	Count   *resolved.Symbol
	Main    *resolved.Symbol
}

// SampleProgram builds two units:
//
//	// Program.cs
//	namespace App {
//	    enum Color { Red, Green }
//	    partial class Counter { int count; }
//	    class Program { static void Main() { } }
//	}
//
//	// Counter.cs
//	namespace App {
//	    partial class Counter { void Inc() { count = count + 1; } }
//	}
func SampleProgram() *Sample {
	class := func(name string) *resolved.Type {
		return &resolved.Type{Name: name, FullName: "App." + name, Namespace: "App", Kind: resolved.KindClass, FromSource: true, Base: objectType}
	}
	s := &Sample{
		Color:   &resolved.Type{Name: "Color", FullName: "App.Color", Namespace: "App", Kind: resolved.KindEnum, FromSource: true},
		Counter: class("Counter"),
	}
	s.Counter.Fragments = 2
	program := class("Program")

	s.Count = &resolved.Symbol{Kind: resolved.SymField, Name: "count", Type: intType, FromSource: true, ContainingType: s.Counter}
	s.Main = &resolved.Symbol{Kind: resolved.SymMethod, Name: "Main", IsStatic: true, ReturnsVoid: true, Type: voidType, FromSource: true, ContainingType: program}
	inc := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Inc", ReturnsVoid: true, Type: voidType, FromSource: true, ContainingType: s.Counter}

	count := func(line, col int) *resolved.Identifier {
		return &resolved.Identifier{ExprBase: resolved.ExprBase{Pos: resolved.Pos{Line: line, Column: col}, Type: intType}, Name: "count", Symbol: s.Count}
	}
	one := &resolved.Literal{ExprBase: resolved.ExprBase{Type: intType, Const: &resolved.Constant{Value: int64(1)}}, Text: "1"}
	incBody := &resolved.Block{Stmts: []resolved.Stmt{&resolved.ExprStmt{
		StmtBase: resolved.StmtBase{Pos: resolved.Pos{Line: 3, Column: 42}},
		X: &resolved.Assignment{
			ExprBase: resolved.ExprBase{Type: intType},
			Op:       "=",
			Left:     count(3, 42),
			Right:    &resolved.Binary{ExprBase: resolved.ExprBase{Type: intType}, Op: "+", Left: count(3, 50), Right: one},
		},
	}}}

	s.Program = &resolved.Program{Units: []*resolved.CompilationUnit{
		{Path: "Program.cs", Members: []resolved.Decl{&resolved.NamespaceDecl{Name: "App", Members: []resolved.Decl{
			&resolved.EnumDecl{Symbol: s.Color, Members: []*resolved.EnumMember{
				{Name: "Red", Value: &resolved.Constant{Value: int64(0)}},
				{Name: "Green", Value: &resolved.Constant{Value: int64(1)}},
			}},
			&resolved.TypeDecl{Symbol: s.Counter, IsPartial: true, Members: []resolved.Member{
				&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: s.Count}}},
			}},
			&resolved.TypeDecl{Symbol: program, Members: []resolved.Member{
				&resolved.MethodDecl{Symbol: s.Main, Body: &resolved.Block{}},
			}},
		}}}},
		{Path: "Counter.cs", Members: []resolved.Decl{&resolved.NamespaceDecl{Name: "App", Members: []resolved.Decl{
			&resolved.TypeDecl{Symbol: s.Counter, IsPartial: true, Members: []resolved.Member{
				&resolved.MethodDecl{Symbol: inc, Body: incBody},
			}},
		}}}},
	}}
	return s
}

// MergedCounter is the lowered form of the Counter type of SampleProgram.
const MergedCounter = `class Counter
  field count = 0
  method Inc = function (this)
    this.count = this.count + 1
  end
end`
