package transformer_test

import (
	"testing"

	"martianoff/sharplua/internal/lowering/resolved"

	"github.com/stretchr/testify/assert"
)

func TestBinaryOperatorsByDialect(t *testing.T) {
	a, b := local("a", tInt), local("b", tInt)
	x, y := local("x", tDouble), local("y", tDouble)
	p, q := local("p", tBool), local("q", tBool)

	tests := []struct {
		name   string
		expr   resolved.Expr
		legacy string
		newest string
	}{
		{"integer division", bin("/", tInt, id(a), id(b)), "System.div(a, b)", "a // b"},
		{"real division", bin("/", tDouble, id(x), id(y)), "x / y", "x / y"},
		{"integer modulo", bin("%", tInt, id(a), id(b)), "System.mod(a, b)", "a % b"},
		{"real modulo", bin("%", tDouble, id(x), id(y)), "System.mod(x, y)", "System.mod(x, y)"},
		{"bitwise and", bin("&", tInt, id(a), id(b)), "System.band(a, b)", "a & b"},
		{"bitwise or", bin("|", tInt, id(a), id(b)), "System.bor(a, b)", "a | b"},
		{"bitwise xor", bin("^", tInt, id(a), id(b)), "System.xor(a, b)", "a ~ b"},
		{"shift left", bin("<<", tInt, id(a), id(b)), "System.sl(a, b)", "a << b"},
		{"shift right", bin(">>", tInt, id(a), id(b)), "System.sr(a, b)", "a >> b"},
		{"logical and", bin("&", tBool, id(p), id(q)), "p and q", "p and q"},
		{"logical or", bin("|", tBool, id(p), id(q)), "p or q", "p or q"},
		{"logical xor", bin("^", tBool, id(p), id(q)), "p ~= q", "p ~= q"},
		{"not equal", bin("!=", tBool, id(a), id(b)), "a ~= b", "a ~= b"},
		{"arithmetic", bin("*", tInt, bin("+", tInt, id(a), id(b)), id(a)), "(a + b) * a", "(a + b) * a"},
		{"complement", unary("~", id(a)), "System.bnot(a)", "~a"},
		{"negation", unary("-", id(a)), "-a", "-a"},
		{"not", unary("!", id(p)), "not p", "not p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.legacy, newFixture(false).expr(t, tt.expr))
			assert.Equal(t, "local r = "+tt.newest, newFixture(true).expr(t, tt.expr))
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	s, a := local("s", tString), local("a", tInt)
	c, o := local("c", tChar), local("o", tObject)
	color := &resolved.Type{Name: "Color", FullName: "N.Color", Namespace: "N", Kind: resolved.KindEnum, FromSource: true}
	e := local("e", color)
	long := "this string constant is longer than thirty-two bytes"

	tests := []struct {
		name     string
		expr     resolved.Expr
		expected string
	}{
		{"string and int", bin("+", tString, id(s), id(a)), `s .. a:ToString()`},
		{"constant and int", bin("+", tString, str("n="), id(a)), `"n=" .. a:ToString()`},
		{"char", bin("+", tString, id(s), id(c)), `s .. string.char(c)`},
		{"enum", bin("+", tString, id(s), id(e)), `s .. e:ToEnumString(N.Color)`},
		{"object", bin("+", tString, id(s), id(o)), `s .. System.toString(o)`},
		{"bool constant", bin("+", tString, id(s), boolean(true)), `s .. "True"`},
		{"long constant", bin("+", tString, id(s), str(long)), `s .. "` + long + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.expected, newFixture(false).expr(t, tt.expr))
		})
	}
}

func TestShortCircuit(t *testing.T) {
	p, q, a := local("p", tBool), local("q", tBool), local("a", tInt)
	o, s := local("o", tObject), local("s", tObject)

	assert.Equal(t, "local r = p and q", newFixture(false).expr(t, bin("&&", tBool, id(p), id(q))))
	assert.Equal(t, "local r = p or q", newFixture(false).expr(t, bin("||", tBool, id(p), id(q))))
	assert.Equal(t, "local r = o or s", newFixture(false).expr(t, bin("??", tObject, id(o), id(s))))

	// p && a++ > 0 must not increment a when p is false.
	rhs := bin(">", tBool, postfix("++", id(a)), num(0))
	assert.Equal(t, lines(
		"local extern = p",
		"if extern then",
		"  local default = a",
		"  a = default + 1",
		"  extern = default > 0",
		"end",
		"local r = extern",
	), newFixture(false).expr(t, bin("&&", tBool, id(p), rhs)))

	assert.Equal(t, lines(
		"local extern = p",
		"if not extern then",
		"  local default = a",
		"  a = default + 1",
		"  extern = default > 0",
		"end",
		"local r = extern",
	), newFixture(false).expr(t, bin("||", tBool, id(p), rhs)))
}

func conditional(typ *resolved.Type, c, whenTrue, whenFalse resolved.Expr) *resolved.Conditional {
	return &resolved.Conditional{ExprBase: resolved.ExprBase{Type: typ}, Cond: c, WhenTrue: whenTrue, WhenFalse: whenFalse}
}

func TestConditional(t *testing.T) {
	p, a, o := local("p", tBool), local("a", tInt), local("o", tObject)

	t.Run("numeric literal uses and/or", func(t *testing.T) {
		assert.Equal(t, "local r = p and 1 or 2", newFixture(false).expr(t, conditional(tInt, id(p), num(1), num(2))))
	})

	t.Run("non-nullable value uses and/or", func(t *testing.T) {
		assert.Equal(t, "local r = p and a or 0", newFixture(false).expr(t, conditional(tInt, id(p), id(a), num(0))))
	})

	t.Run("reference branch goes through a temporary", func(t *testing.T) {
		assert.Equal(t, lines(
			"local default",
			"if p then",
			"  default = o",
			"else",
			"  default = nil",
			"end",
			"local r = default",
		), newFixture(false).expr(t, conditional(tObject, id(p), id(o), null())))
	})

	t.Run("false literal goes through a temporary", func(t *testing.T) {
		assert.Equal(t, lines(
			"local default",
			"if p then",
			"  default = false",
			"else",
			"  default = true",
			"end",
			"local r = default",
		), newFixture(false).expr(t, conditional(tBool, id(p), boolean(false), boolean(true))))
	})
}

func TestIncrementAndDecrement(t *testing.T) {
	fx := newFixture(false)
	d := classType("D")
	f := &resolved.Symbol{Kind: resolved.SymField, Name: "F", Type: tInt, FromSource: true, ContainingType: d}
	a, o := local("a", tInt), local("o", d)

	assert.Equal(t, lines(
		"local default = a + 1",
		"a = default",
		"local r = default",
	), fx.expr(t, unary("++", id(a))))

	assert.Equal(t, lines(
		"local default = o.F",
		"o.F = default - 1",
		"local r = default",
	), newFixture(false).expr(t, postfix("--", member(id(o), f))))

	get := newFixture(false)
	getD := get.staticMethod("Get", d)
	assert.Equal(t, lines(
		"local default = N.C.Get()",
		"default.F = default.F + 1",
	), get.body(t, exprStmt(postfix("++", member(call(id(getD), getD), f)))))
}

func TestAccessorAssignment(t *testing.T) {
	fx := newFixture(false)
	d := classType("D")
	prop := &resolved.Symbol{Kind: resolved.SymProperty, Name: "P", Type: tInt, FromSource: true, IsVirtual: true, HasSetter: true, ContainingType: d}
	o := local("o", d)

	assert.Equal(t, "o:setP(o:getP() + 1)", fx.body(t, exprStmt(assign("+=", member(id(o), prop), num(1)))))
	assert.Equal(t, "o:setP(5)", newFixture(false).body(t, exprStmt(assign("=", member(id(o), prop), num(5)))))
	assert.Equal(t, "local r = o:getP()", newFixture(false).expr(t, member(id(o), prop)))
	assert.Equal(t, lines(
		"local default = 5",
		"o:setP(default)",
		"local r = default",
	), newFixture(false).expr(t, assign("=", member(id(o), prop), num(5))))
}

func TestEventAssignment(t *testing.T) {
	fx := newFixture(false)
	h := local("h", tAction)
	fieldLike := &resolved.Symbol{Kind: resolved.SymEvent, Name: "Changed", Type: tAction, FromSource: true, IsFieldLikeEvent: true, ContainingType: fx.cls}
	virtual := &resolved.Symbol{Kind: resolved.SymEvent, Name: "Moved", Type: tAction, FromSource: true, IsFieldLikeEvent: true, IsVirtual: true, ContainingType: fx.cls}

	got := fx.body(t,
		exprStmt(assign("+=", id(fieldLike), id(h))),
		exprStmt(assign("-=", id(fieldLike), id(h))),
		exprStmt(assign("+=", member(this(fx.cls), virtual), id(h))),
		exprStmt(assign("-=", member(this(fx.cls), virtual), id(h))),
	)
	assert.Equal(t, lines(
		"this.Changed = System.DelegateCombine(this.Changed, h)",
		"this.Changed = System.DelegateRemove(this.Changed, h)",
		"this:addMoved(h)",
		"this:removeMoved(h)",
	), got)
}

func TestCompoundAssignment(t *testing.T) {
	s, a, o := local("s", tString), local("a", tInt), local("o", tObject)
	fx := newFixture(true)
	got := fx.body(t,
		exprStmt(assign("+=", id(s), id(a))),
		exprStmt(assign("/=", id(a), num(2))),
		exprStmt(assign("<<=", id(a), num(1))),
		exprStmt(assign("??=", id(o), id(s))),
	)
	assert.Equal(t, lines(
		"s = s .. a:ToString()",
		"a = a // 2",
		"a = a << 1",
		"o = o or s",
	), got)
}

func TestChainedAssignment(t *testing.T) {
	a, b := local("a", tInt), local("b", tInt)
	got := newFixture(false).body(t, exprStmt(assign("=", id(a), assign("=", id(b), num(1)))))
	assert.Equal(t, lines(
		"local default = 1",
		"b = default",
		"a = default",
	), got)
}

func cast(to *resolved.Type, e resolved.Expr) *resolved.Cast {
	return &resolved.Cast{ExprBase: resolved.ExprBase{Type: to}, Target: to, Operand: e}
}

func TestCasts(t *testing.T) {
	tByte := prim("Byte", resolved.SpecialByte)
	d := classType("D")
	color := &resolved.Type{Name: "Color", FullName: "N.Color", Namespace: "N", Kind: resolved.KindEnum, FromSource: true}
	x, a, l := local("x", tDouble), local("a", tInt), local("l", tLong)
	o, e := local("o", tObject), local("e", color)
	folded := cast(tInt, &resolved.Literal{ExprBase: resolved.ExprBase{Type: tDouble}, Text: "3.7"})
	folded.Const = &resolved.Constant{Value: int64(3)}
	conv := cast(d, id(o))
	conv.Conversion = &resolved.Symbol{Kind: resolved.SymMethod, Name: "op_Explicit", IsStatic: true, FromSource: true, ContainingType: d}

	tests := []struct {
		name     string
		expr     resolved.Expr
		expected string
	}{
		{"real to int truncates", cast(tInt, id(x)), "System.ToInt32(x)"},
		{"widening is free", cast(tLong, id(a)), "a"},
		{"narrowing checks range", cast(tInt, id(l)), "System.toInt32(l)"},
		{"char", cast(tChar, id(a)), "System.toUInt16(a)"},
		{"enum to int", cast(tInt, id(e)), "e"},
		{"int to enum", cast(color, id(a)), "a"},
		{"reference downcast", cast(d, id(o)), "System.cast(N.D, o)"},
		{"constant", folded, "3"},
		{"constant operand in range", cast(tByte, num(200)), "200"},
		{"constant operand out of range", cast(tByte, num(300)), "System.toByte(300)"},
		{"negative constant to unsigned", cast(tByte, num(-1)), "System.toByte(-1)"},
		{"user conversion", conv, "N.D.op_Explicit(o)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.expected, newFixture(false).expr(t, tt.expr))
		})
	}
}

func TestTypeTests(t *testing.T) {
	d := classType("D")
	o, dv, a := local("o", tObject), local("d", d), local("a", tInt)

	tests := []struct {
		name     string
		expr     resolved.Expr
		expected string
	}{
		{"is", bin("is", tBool, id(o), typeName(d)), "System.is(o, N.D)"},
		{"as", bin("as", d, id(o), typeName(d)), "System.as(o, N.D)"},
		{"is on known subtype", bin("is", tBool, id(dv), typeName(d)), "d ~= nil"},
		{"as on known subtype", bin("as", tObject, id(dv), typeName(tObject)), "d"},
		{"is on value type", bin("is", tBool, id(a), typeName(tInt)), "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.expected, newFixture(false).expr(t, tt.expr))
		})
	}
}

func TestLiterals(t *testing.T) {
	lit := func(text string, typ *resolved.Type) *resolved.Literal {
		return &resolved.Literal{ExprBase: resolved.ExprBase{Type: typ}, Text: text}
	}

	tests := []struct {
		name     string
		expr     resolved.Expr
		expected string
	}{
		{"digit separators and suffix", lit("1_000L", tLong), "1000"},
		{"float suffix", lit("1.5f", tDouble), "1.5"},
		{"real suffix on integer spelling", lit("2d", tDouble), "2.0"},
		{"hex", lit("0xFFu", tInt), "0xFF"},
		{"null", null(), "nil"},
		{"char", &resolved.Literal{ExprBase: resolved.ExprBase{Type: tChar}, Value: 'A'}, "65"},
		{"string escapes", str("a\"b\n"), `"a\"b\n"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.expected, newFixture(false).expr(t, tt.expr))
		})
	}
}

func TestMemberReferences(t *testing.T) {
	fx := newFixture(false)
	k := fx.field("K", tInt)
	k.IsConst, k.IsStatic, k.Constant = true, true, &resolved.Constant{Value: int64(5)}
	long := fx.field("Banner", tString)
	long.IsConst, long.IsStatic = true, true
	long.Constant = &resolved.Constant{Value: "a banner that does not fit into thirty-two bytes"}
	total := fx.field("total", tInt)
	total.IsStatic = true
	secret := fx.field("secret", tInt)
	secret.IsStatic, secret.IsPrivate = true, true
	s := local("s", tString)
	run := fx.method("Run", tVoid)
	util := fx.staticMethod("Util", tVoid)
	r := func(name string, e resolved.Expr) resolved.Stmt { return declare(local(name, e.StaticType()), e) }

	got := fx.body(t,
		r("a", id(k)),
		r("b", id(long)),
		r("c", id(total)),
		r("d", id(secret)),
		r("e", member(id(s), &resolved.Symbol{Kind: resolved.SymProperty, Name: "Length", Type: tInt, ContainingType: tString})),
		r("f", member(this(fx.cls), run)),
		r("g", id(util)),
	)
	assert.Equal(t, lines(
		"local a = 5",
		"local b = N.C.Banner",
		"local c = N.C.total",
		"local d = secret",
		"local e = #s",
		"local f = System.bind(this, this.Run)",
		"local g = N.C.Util",
	), got)
}

func TestObjectAndArrayCreation(t *testing.T) {
	d := classType("D")
	d.CtorCount = 1
	d2 := classType("D2")
	d2.CtorCount = 2
	n := local("n", tInt)
	h := local("h", tAction)
	ctor := &resolved.Symbol{Kind: resolved.SymMethod, Name: ".ctor", IsConstructor: true, ContainingType: d}
	second := &resolved.Symbol{Kind: resolved.SymMethod, Name: ".ctor", IsConstructor: true, ContainingType: d2, OverloadIndex: 1, Parameters: []*resolved.Parameter{param("n", tInt)}}

	tests := []struct {
		name     string
		expr     resolved.Expr
		expected string
	}{
		{
			name:     "single constructor",
			expr:     &resolved.ObjectCreation{ExprBase: resolved.ExprBase{Type: d}, Ctor: ctor},
			expected: "N.D()",
		},
		{
			name:     "constructor overload",
			expr:     &resolved.ObjectCreation{ExprBase: resolved.ExprBase{Type: d2}, Ctor: second, Args: []*resolved.Argument{arg(num(1))}},
			expected: "System.new(N.D2, 2, 1)",
		},
		{
			name:     "delegate",
			expr:     &resolved.ObjectCreation{ExprBase: resolved.ExprBase{Type: tAction}, Args: []*resolved.Argument{arg(id(h))}},
			expected: "h",
		},
		{
			name:     "array initializer",
			expr:     &resolved.ArrayCreation{ExprBase: resolved.ExprBase{Type: arrayOf(tInt)}, Elem: tInt, Items: []resolved.Expr{num(1), num(2)}},
			expected: "System.Array(System.Int32)(1, 2)",
		},
		{
			name:     "array size",
			expr:     &resolved.ArrayCreation{ExprBase: resolved.ExprBase{Type: arrayOf(tInt)}, Elem: tInt, Size: id(n)},
			expected: "System.Array(System.Int32):new(n)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "local r = "+tt.expected, newFixture(false).expr(t, tt.expr))
		})
	}
}

func TestLambda(t *testing.T) {
	x, a := local("x", tInt), local("a", tInt)
	fn := &resolved.Type{Name: "Func", FullName: "System.Func", Namespace: "System", Kind: resolved.KindDelegate}

	value := &resolved.Lambda{ExprBase: resolved.ExprBase{Type: fn}, Params: []*resolved.Symbol{x}, ExprBody: bin("+", tInt, id(x), num(1))}
	assert.Equal(t, lines(
		"local r = function (x)",
		"  return x + 1",
		"end",
	), newFixture(false).expr(t, value))

	effect := &resolved.Lambda{ExprBase: resolved.ExprBase{Type: tAction}, ExprBody: postfix("++", id(a)), ReturnsVoid: true}
	assert.Equal(t, lines(
		"local r = function ()",
		"  a = a + 1",
		"end",
	), newFixture(false).expr(t, effect))

	// A lambda has its own temporaries.
	hoisting := &resolved.Lambda{ExprBase: resolved.ExprBase{Type: fn}, ExprBody: unary("++", id(a))}
	assert.Equal(t, lines(
		"local r = function ()",
		"  local default = a + 1",
		"  a = default",
		"  return default",
		"end",
		"local default = a + 1",
		"a = default",
		"local s = default",
	), newFixture(false).body(t,
		declare(local("r", fn), hoisting),
		declare(local("s", tInt), unary("++", id(a))),
	))
}
