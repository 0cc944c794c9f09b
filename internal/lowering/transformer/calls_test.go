package transformer_test

import (
	"testing"

	"martianoff/sharplua/internal/lowering/config"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallForms(t *testing.T) {
	fx := newFixture(false)
	b := classType("B")
	d := classType("D")
	ext := classType("Extensions")
	fx.cls.Base = b

	static := fx.staticMethod("S", tVoid, param("n", tInt))
	private := fx.staticMethod("P", tVoid)
	private.IsPrivate = true
	run := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Run", ReturnsVoid: true, Type: tVoid, ContainingType: d}
	baseRun := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Run", ReturnsVoid: true, Type: tVoid, IsVirtual: true, ContainingType: b}
	own := fx.method("Own", tVoid)
	overload := fx.method("Own", tVoid, param("n", tInt))
	overload.OverloadIndex = 1
	extDef := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Twice", IsStatic: true, IsExtension: true, ReturnsVoid: true, Type: tVoid, ContainingType: ext,
		Parameters: []*resolved.Parameter{param("d", d), param("n", tInt)}}
	extCall := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Twice", ReturnsVoid: true, Type: tVoid, ContainingType: ext, ReducedFrom: extDef,
		Parameters: []*resolved.Parameter{param("n", tInt)}}
	generic := fx.staticMethod("G", tVoid, param("x", tInt))
	generic.TypeArgs = []*resolved.Type{tInt}
	o := local("o", d)
	base := &resolved.Base{ExprBase: resolved.ExprBase{Type: b}}

	got := fx.body(t,
		exprStmt(call(id(static), static, arg(num(1)))),
		exprStmt(call(id(private), private)),
		exprStmt(call(member(id(o), run), run)),
		exprStmt(call(member(base, baseRun), baseRun)),
		exprStmt(call(id(own), own)),
		exprStmt(call(member(this(fx.cls), overload), overload, arg(num(2)))),
		exprStmt(call(member(id(o), extCall), extCall, arg(num(3)))),
		exprStmt(call(id(generic), generic, arg(num(4)))),
	)
	assert.Equal(t, lines(
		"N.C.S(1)",
		"P()",
		"o:Run()",
		"N.B.Run(this)",
		"this:Own()",
		"this:Own1(2)",
		"N.Extensions.Twice(o, 3)",
		"N.C.G(4, System.Int32)",
	), got)
}

func TestDelegateAndDynamicCalls(t *testing.T) {
	fx := newFixture(false)
	h := local("h", tAction)
	invoke := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Invoke", ReturnsVoid: true, Type: tVoid, ContainingType: tAction}
	dyn := local("dyn", tObject)

	got := fx.body(t,
		exprStmt(call(id(h), invoke)),
		exprStmt(call(member(id(h), invoke), invoke)),
		exprStmt(&resolved.Invocation{Target: &resolved.MemberAccess{Target: id(dyn), Name: "go"}, Args: []*resolved.Argument{arg(num(1))}}),
	)
	assert.Equal(t, lines(
		"h()",
		"h()",
		"dyn.go(1)",
	), got)
}

func TestArgumentBinding(t *testing.T) {
	arr := arrayOf(tInt)
	xs := local("xs", arr)

	optional := func(name string, typ *resolved.Type, value any) *resolved.Parameter {
		p := param(name, typ)
		p.HasDefault = true
		if value != nil {
			p.Default = &resolved.Constant{Value: value}
		}
		return p
	}
	params := param("rest", arr)
	params.IsParams = true

	tests := []struct {
		name     string
		params   []*resolved.Parameter
		args     []*resolved.Argument
		expected string
	}{
		{
			name:     "named argument moves to its slot",
			params:   []*resolved.Parameter{param("x", tInt), optional("y", tInt, int64(2)), optional("z", tInt, int64(3))},
			args:     []*resolved.Argument{arg(num(1)), named("z", num(9))},
			expected: "N.C.F(1, 2, 9)",
		},
		{
			name:     "trailing nil defaults are trimmed",
			params:   []*resolved.Parameter{param("x", tInt), optional("s", tString, nil)},
			args:     []*resolved.Argument{arg(num(1))},
			expected: "N.C.F(1)",
		},
		{
			name:     "value type default without constant",
			params:   []*resolved.Parameter{optional("x", tInt, nil), param("y", tInt)},
			args:     []*resolved.Argument{named("y", num(1))},
			expected: "N.C.F(0, 1)",
		},
		{
			name:     "params are packed",
			params:   []*resolved.Parameter{param("x", tInt), params},
			args:     []*resolved.Argument{arg(num(1)), arg(num(2)), arg(num(3))},
			expected: "N.C.F(1, System.Array(System.Int32)(2, 3))",
		},
		{
			name:     "array passed as params",
			params:   []*resolved.Parameter{params},
			args:     []*resolved.Argument{arg(id(xs))},
			expected: "N.C.F(xs)",
		},
		{
			name:     "empty params",
			params:   []*resolved.Parameter{params},
			expected: "N.C.F(System.Array(System.Int32)())",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(false)
			f := fx.staticMethod("F", tVoid, tt.params...)
			assert.Equal(t, tt.expected, fx.body(t, exprStmt(call(id(f), f, tt.args...))))
		})
	}
}

func byRef(p *resolved.Parameter, kind resolved.RefKind) *resolved.Parameter {
	p.RefKind = kind
	return p
}

func TestRefAndOutArguments(t *testing.T) {
	fx := newFixture(false)
	x, y, v := local("x", tInt), local("y", tInt), local("v", tInt)
	ok := local("ok", tBool)
	swap := fx.staticMethod("Swap", tVoid, byRef(param("a", tInt), resolved.RefRef), byRef(param("b", tInt), resolved.RefRef))
	tryGet := fx.staticMethod("TryGet", tBool, param("k", tInt), byRef(param("v", tInt), resolved.RefOut))
	prop := &resolved.Symbol{Kind: resolved.SymProperty, Name: "P", Type: tInt, FromSource: true, HasAccessorBodies: true, HasSetter: true, ContainingType: fx.cls}

	got := fx.body(t,
		exprStmt(call(id(swap), swap, refArg(id(x)), refArg(id(y)))),
		declare(ok, call(id(tryGet), tryGet, arg(num(1)), outArg(id(v)))),
		exprStmt(assign("=", id(ok), call(id(tryGet), tryGet, arg(num(2)), outArg(id(v))))),
		exprStmt(call(id(tryGet), tryGet, arg(num(3)), outArg(member(this(fx.cls), prop)))),
	)
	assert.Equal(t, lines(
		"x, y = N.C.Swap(x, y)",
		"local ok",
		"ok, v = N.C.TryGet(1)",
		"ok, v = N.C.TryGet(2)",
		"local _",
		"local default",
		"_, default = N.C.TryGet(3)",
		"this:setP(default)",
	), got)
}

func TestUnusedRefCallResultTakesNoTemporary(t *testing.T) {
	fx := limited(1)
	x, v, r := local("x", tInt), local("v", tInt), local("r", tInt)
	tryGet := fx.staticMethod("TryGet", tBool, param("k", tInt), byRef(param("v", tInt), resolved.RefOut))

	got := fx.body(t,
		exprStmt(call(id(tryGet), tryGet, arg(num(1)), outArg(id(v)))),
		exprStmt(call(id(tryGet), tryGet, arg(num(2)), outArg(id(v)))),
		declare(r, postfix("++", id(x))),
	)
	assert.Equal(t, lines(
		"local _",
		"_, v = N.C.TryGet(1)",
		"local _",
		"_, v = N.C.TryGet(2)",
		"local default = x",
		"x = default + 1",
		"local r = default",
	), got)
}

func TestRefCallAsValue(t *testing.T) {
	fx := newFixture(false)
	v := local("v", tInt)
	tryGet := fx.staticMethod("TryGet", tBool, byRef(param("v", tInt), resolved.RefOut))
	r := local("r", tBool)

	got := fx.body(t, declare(r, bin("&&", tBool, boolean(true), call(id(tryGet), tryGet, outArg(id(v))))))
	assert.Equal(t, lines(
		"local extern = true",
		"if extern then",
		"  local default",
		"  default, v = N.C.TryGet()",
		"  extern = default",
		"end",
		"local r = extern",
	), got)
}

func TestByReferenceParametersAreReturned(t *testing.T) {
	fx := newFixture(false)
	n, k, v := param("n", tInt), param("k", tInt), param("v", tInt)
	inc := fx.staticMethod("Inc", tVoid, byRef(n, resolved.RefRef))
	tryGet := fx.staticMethod("TryGet", tBool, k, byRef(v, resolved.RefOut))
	nSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "n", Type: tInt}
	kSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "k", Type: tInt}
	vSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "v", Type: tInt}

	decl := fx.lowerType(t,
		&resolved.MethodDecl{Symbol: inc, Body: block(exprStmt(postfix("++", id(nSym))))},
		&resolved.MethodDecl{Symbol: tryGet, Body: block(
			&resolved.If{Cond: bin("<", tBool, id(kSym), num(0)), Then: ret(boolean(false))},
			exprStmt(assign("=", id(vSym), id(kSym))),
			ret(boolean(true)),
		)},
	)

	assert.Equal(t, lines(
		"n = n + 1",
		"return n",
	), dumpBody(t, findMethod(t, decl, "Inc")))
	assert.Equal(t, lines(
		"if k < 0 then",
		"  return false, v",
		"end",
		"v = k",
		"return true, v",
	), dumpBody(t, findMethod(t, decl, "TryGet")))
}

func TestTemplates(t *testing.T) {
	table := template.NewTable()
	require.NoError(t, table.AddMethod("N.Console.WriteLine", "print({0})"))
	require.NoError(t, table.AddMethod("N.Console.Pair#2", "pair({1}, {0})"))
	require.NoError(t, table.AddField("N.Math.PI", "math.pi"))
	require.NoError(t, table.AddMethod("N.List.Add", "table.insert({this}, {0})"))
	require.NoError(t, table.AddMethod("N.Console.Bad", "{this}.bad()"))

	console := &resolved.Type{Name: "Console", FullName: "N.Console", Namespace: "N"}
	mathType := &resolved.Type{Name: "Math", FullName: "N.Math", Namespace: "N"}
	list := &resolved.Type{Name: "List", FullName: "N.List", Namespace: "N"}
	writeLine := &resolved.Symbol{Kind: resolved.SymMethod, Name: "WriteLine", IsStatic: true, ReturnsVoid: true, Type: tVoid, ContainingType: console,
		Parameters: []*resolved.Parameter{param("s", tString)}}
	pair := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Pair", IsStatic: true, ReturnsVoid: true, Type: tVoid, ContainingType: console,
		Parameters: []*resolved.Parameter{param("a", tInt), param("b", tInt)}}
	pi := &resolved.Symbol{Kind: resolved.SymField, Name: "PI", IsStatic: true, IsConst: true, Type: tDouble, ContainingType: mathType}
	add := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Add", ReturnsVoid: true, Type: tVoid, ContainingType: list,
		Parameters: []*resolved.Parameter{param("x", tInt)}}
	bad := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Bad", IsStatic: true, ReturnsVoid: true, Type: tVoid, ContainingType: console}
	s, l, r := local("s", tString), local("l", list), local("r", tDouble)

	fx := newFixtureWith(config.Default(), table)
	got := fx.body(t,
		exprStmt(call(member(typeName(console), writeLine), writeLine, arg(id(s)))),
		exprStmt(call(member(typeName(console), pair), pair, arg(num(1)), arg(num(2)))),
		declare(r, member(typeName(mathType), pi)),
		exprStmt(call(member(id(l), add), add, arg(num(3)))),
	)
	assert.Equal(t, lines(
		"print(s)",
		"pair(2, 1)",
		"local r = math.pi",
		"table.insert(l, 3)",
	), got)

	broken := newFixtureWith(config.Default(), table)
	err := broken.lowerErr(t, &resolved.MethodDecl{
		Symbol: broken.method("M", tVoid),
		Body:   block(exprStmt(call(member(typeName(console), bad), bad))),
	})
	assert.Contains(t, err.Error(), "{this}")
}
