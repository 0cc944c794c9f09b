package transformer_test

import (
	"strconv"
	"strings"
	"testing"

	"martianoff/sharplua/internal/lowering/config"
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/template"
	"martianoff/sharplua/internal/lowering/transformer"

	"github.com/stretchr/testify/require"
)

func prim(name string, s resolved.SpecialType) *resolved.Type {
	return &resolved.Type{Name: name, FullName: "System." + name, Namespace: "System", Kind: resolved.KindStruct, Special: s}
}

var (
	tObject = &resolved.Type{Name: "Object", FullName: "System.Object", Namespace: "System", Special: resolved.SpecialObject}
	tString = &resolved.Type{Name: "String", FullName: "System.String", Namespace: "System", Special: resolved.SpecialString}
	tVoid   = &resolved.Type{Name: "Void", FullName: "System.Void", Namespace: "System", Special: resolved.SpecialVoid}
	tBool   = prim("Boolean", resolved.SpecialBoolean)
	tChar   = prim("Char", resolved.SpecialChar)
	tInt    = prim("Int32", resolved.SpecialInt32)
	tLong   = prim("Int64", resolved.SpecialInt64)
	tDouble = prim("Double", resolved.SpecialDouble)
	tAction = &resolved.Type{Name: "Action", FullName: "System.Action", Namespace: "System", Kind: resolved.KindDelegate}
)

func classType(name string) *resolved.Type {
	return &resolved.Type{Name: name, FullName: "N." + name, Namespace: "N", Kind: resolved.KindClass, FromSource: true, Base: tObject}
}

func interfaceType(name string) *resolved.Type {
	return &resolved.Type{Name: name, FullName: "N." + name, Namespace: "N", Kind: resolved.KindInterface, FromSource: true}
}

func arrayOf(elem *resolved.Type) *resolved.Type {
	return &resolved.Type{Name: elem.Name + "[]", Kind: resolved.KindArray, Elem: elem}
}

// fixture lowers members into a class N.C.
type fixture struct {
	env *transformer.Env
	cls *resolved.Type
}

func newFixture(newest bool) *fixture {
	s := config.Default()
	s.Newest = newest
	return &fixture{env: transformer.NewEnv(s, nil), cls: classType("C")}
}

func newFixtureWith(s *config.Settings, templates template.Provider) *fixture {
	return &fixture{env: transformer.NewEnv(s, templates), cls: classType("C")}
}

func (fx *fixture) unit(members ...resolved.Member) *resolved.CompilationUnit {
	return &resolved.CompilationUnit{
		Path:    "C.cs",
		Members: []resolved.Decl{&resolved.TypeDecl{Symbol: fx.cls, Members: members}},
	}
}

// lowerType lowers members into N.C and returns the declaration.
func (fx *fixture) lowerType(t *testing.T, members ...resolved.Member) *luaast.TypeDeclaration {
	t.Helper()
	out, err := transformer.New(fx.env).LowerUnit(fx.unit(members...), 0)
	require.NoError(t, err)
	require.Len(t, out.Members, 1)
	decl, ok := out.Members[0].(*luaast.TypeDeclaration)
	require.True(t, ok)
	return decl
}

func (fx *fixture) lowerErr(t *testing.T, members ...resolved.Member) error {
	t.Helper()
	_, err := transformer.New(fx.env).LowerUnit(fx.unit(members...), 0)
	require.Error(t, err)
	return err
}

// method builds an instance method symbol of N.C.
func (fx *fixture) method(name string, ret *resolved.Type, params ...*resolved.Parameter) *resolved.Symbol {
	return &resolved.Symbol{
		Kind:           resolved.SymMethod,
		Name:           name,
		FromSource:     true,
		ReturnsVoid:    ret == tVoid,
		Type:           ret,
		Parameters:     params,
		ContainingType: fx.cls,
	}
}

func (fx *fixture) staticMethod(name string, ret *resolved.Type, params ...*resolved.Parameter) *resolved.Symbol {
	m := fx.method(name, ret, params...)
	m.IsStatic = true
	return m
}

func (fx *fixture) field(name string, typ *resolved.Type) *resolved.Symbol {
	return &resolved.Symbol{Kind: resolved.SymField, Name: name, Type: typ, FromSource: true, ContainingType: fx.cls}
}

// body lowers stmts as the body of the instance method C.M and returns the
// rendered statements.
func (fx *fixture) body(t *testing.T, stmts ...resolved.Stmt) string {
	t.Helper()
	m := fx.method("M", tVoid)
	decl := fx.lowerType(t, &resolved.MethodDecl{Symbol: m, Body: block(stmts...)})
	return dumpBody(t, findMethod(t, decl, "M"))
}

// expr lowers `var r = e;` and returns the rendered body.
func (fx *fixture) expr(t *testing.T, e resolved.Expr) string {
	t.Helper()
	return fx.body(t, declare(local("r", e.StaticType()), e))
}

func findMethod(t *testing.T, decl *luaast.TypeDeclaration, name string) *luaast.Method {
	t.Helper()
	for _, m := range decl.Members {
		if method, ok := m.(*luaast.Method); ok && method.Name.Name == name {
			return method
		}
	}
	require.Failf(t, "method not found", "%s has no method %s", decl.Name.Name, name)
	return nil
}

func dumpBody(t *testing.T, m *luaast.Method) string {
	t.Helper()
	require.NotNil(t, m.Fn)
	return dedent(luaast.DumpBlock(m.Fn.Body))
}

// dedent removes the block indentation DumpBlock adds.
func dedent(s string) string {
	ls := strings.Split(s, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimPrefix(l, "  ")
	}
	return strings.Join(ls, "\n")
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

// --- resolved node builders ---

func at(line, col int) resolved.Pos {
	return resolved.Pos{Line: line, Column: col}
}

func local(name string, typ *resolved.Type) *resolved.Symbol {
	return &resolved.Symbol{Kind: resolved.SymLocal, Name: name, Type: typ}
}

func param(name string, typ *resolved.Type) *resolved.Parameter {
	return &resolved.Parameter{Name: name, Type: typ}
}

func id(sym *resolved.Symbol) *resolved.Identifier {
	return &resolved.Identifier{ExprBase: resolved.ExprBase{Type: sym.Type}, Name: sym.Name, Symbol: sym}
}

func this(typ *resolved.Type) *resolved.This {
	return &resolved.This{ExprBase: resolved.ExprBase{Type: typ}}
}

func member(target resolved.Expr, sym *resolved.Symbol) *resolved.MemberAccess {
	return &resolved.MemberAccess{ExprBase: resolved.ExprBase{Type: sym.Type}, Target: target, Name: sym.Name, Symbol: sym}
}

func typeName(typ *resolved.Type) *resolved.TypeName {
	return &resolved.TypeName{ExprBase: resolved.ExprBase{Type: typ}, Target: typ}
}

func num(n int64) *resolved.Literal {
	return &resolved.Literal{ExprBase: resolved.ExprBase{Type: tInt, Const: &resolved.Constant{Value: n}}, Text: strconv.FormatInt(n, 10)}
}

func str(s string) *resolved.Literal {
	return &resolved.Literal{ExprBase: resolved.ExprBase{Type: tString, Const: &resolved.Constant{Value: s}}, Value: s}
}

func boolean(b bool) *resolved.Literal {
	return &resolved.Literal{ExprBase: resolved.ExprBase{Type: tBool, Const: &resolved.Constant{Value: b}}, Value: b}
}

func null() *resolved.Literal {
	return &resolved.Literal{Text: "null"}
}

func bin(op string, typ *resolved.Type, l, r resolved.Expr) *resolved.Binary {
	return &resolved.Binary{ExprBase: resolved.ExprBase{Type: typ}, Op: op, Left: l, Right: r}
}

func unary(op string, operand resolved.Expr) *resolved.Unary {
	return &resolved.Unary{ExprBase: resolved.ExprBase{Type: operand.StaticType()}, Op: op, Operand: operand}
}

func postfix(op string, operand resolved.Expr) *resolved.Unary {
	u := unary(op, operand)
	u.Postfix = true
	return u
}

func assign(op string, l, r resolved.Expr) *resolved.Assignment {
	return &resolved.Assignment{ExprBase: resolved.ExprBase{Type: l.StaticType()}, Op: op, Left: l, Right: r}
}

func call(target resolved.Expr, m *resolved.Symbol, args ...*resolved.Argument) *resolved.Invocation {
	return &resolved.Invocation{ExprBase: resolved.ExprBase{Type: m.Type}, Target: target, Method: m, Args: args}
}

func arg(e resolved.Expr) *resolved.Argument {
	return &resolved.Argument{Value: e}
}

func named(name string, e resolved.Expr) *resolved.Argument {
	return &resolved.Argument{Name: name, Value: e}
}

func refArg(e resolved.Expr) *resolved.Argument {
	return &resolved.Argument{RefKind: resolved.RefRef, Value: e}
}

func outArg(e resolved.Expr) *resolved.Argument {
	return &resolved.Argument{RefKind: resolved.RefOut, Value: e}
}

func block(stmts ...resolved.Stmt) *resolved.Block {
	return &resolved.Block{Stmts: stmts}
}

func exprStmt(e resolved.Expr) *resolved.ExprStmt {
	return &resolved.ExprStmt{X: e}
}

func declare(sym *resolved.Symbol, init resolved.Expr) *resolved.LocalDecl {
	return &resolved.LocalDecl{Vars: []*resolved.VarDeclarator{{Symbol: sym, Init: init}}}
}

func ret(e resolved.Expr) *resolved.Return {
	return &resolved.Return{Value: e}
}
