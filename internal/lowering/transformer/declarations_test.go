package transformer_test

import (
	"testing"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/transformer"
	"martianoff/sharplua/lowerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lowerDecl lowers a single type declaration with its own base list.
func lowerDecl(t *testing.T, env *transformer.Env, decl *resolved.TypeDecl) *luaast.TypeDeclaration {
	t.Helper()
	out, err := transformer.New(env).LowerUnit(&resolved.CompilationUnit{Path: "C.cs", Members: []resolved.Decl{decl}}, 0)
	require.NoError(t, err)
	require.Len(t, out.Members, 1)
	td, ok := out.Members[0].(*luaast.TypeDeclaration)
	require.True(t, ok)
	return td
}

func ctorOf(typ *resolved.Type, index int, params ...*resolved.Parameter) *resolved.Symbol {
	return &resolved.Symbol{Kind: resolved.SymMethod, Name: ".ctor", IsConstructor: true, FromSource: true,
		OverloadIndex: index, Parameters: params, ContainingType: typ, ReturnsVoid: true, Type: tVoid}
}

func TestInstanceFieldInitializers(t *testing.T) {
	fx := newFixture(false)
	compute := fx.staticMethod("Compute", tInt)
	x, y := fx.field("x", tInt), fx.field("y", tInt)

	decl := fx.lowerType(t,
		&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: x, Init: call(id(compute), compute)}}},
		&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: y, Init: num(3)}}},
		&resolved.ConstructorDecl{Symbol: ctorOf(fx.cls, 0), Body: block(exprStmt(assign("=", id(y), num(4))))},
	)
	assert.Equal(t, lines(
		"class C",
		"  field x = 0",
		"  field y = 3",
		"  method __ctor__ = function (this)",
		"    this:__init__()",
		"    this.y = 4",
		"  end",
		"  private method __init__ = function (this)",
		"    this.x = N.C.Compute()",
		"  end",
		"end",
	), luaast.Dump(decl))
}

func TestStaticInitializers(t *testing.T) {
	fx := newFixture(false)
	compute := fx.staticMethod("Compute", tInt)
	count := fx.field("Count", tInt)
	count.IsStatic, count.IsReadOnly = true, true
	total := fx.field("Total", tInt)
	total.IsStatic = true
	cctor := ctorOf(fx.cls, 0)
	cctor.IsStatic = true

	decl := fx.lowerType(t,
		&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: count}}},
		&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: total, Init: call(id(compute), compute)}}},
		&resolved.ConstructorDecl{Symbol: cctor, Body: block(exprStmt(assign("=", id(count), num(5))))},
	)
	assert.Equal(t, lines(
		"class C",
		"  #static-readonly-assigned Count",
		"  static readonly field Count = 0",
		"  static field Total = 0",
		"  static method __staticCtor__ = function (this)",
		"    this.Total = this.Compute()",
		"    Count = 5",
		"  end",
		"end",
	), luaast.Dump(decl))
}

func TestSyntheticConstructor(t *testing.T) {
	env := transformer.NewEnv(nil, nil)
	b := classType("B")
	b.CtorCount = 2
	c := classType("C")
	c.Base = b
	items := &resolved.Symbol{Kind: resolved.SymField, Name: "items", Type: arrayOf(tInt), FromSource: true, ContainingType: c}
	init := &resolved.ArrayCreation{ExprBase: resolved.ExprBase{Type: arrayOf(tInt)}, Elem: tInt, Items: []resolved.Expr{num(1)}}

	decl := lowerDecl(t, env, &resolved.TypeDecl{
		Symbol:   c,
		BaseList: []*resolved.Type{b},
		Members:  []resolved.Member{&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: items, Init: init}}}},
	})
	assert.Equal(t, lines(
		"class C : N.B",
		"  field items = nil",
		"  private method __init__ = function (this)",
		"    this.items = System.Array(System.Int32)(1)",
		"  end",
		"  method __ctor__ = function (this)",
		"    N.B.__ctor__1(this)",
		"    this:__init__()",
		"  end",
		"end",
	), luaast.Dump(decl))
}

func TestNoSyntheticConstructorWhenNothingRuns(t *testing.T) {
	fx := newFixture(false)
	decl := fx.lowerType(t, &resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: fx.field("n", tInt), Init: num(1)}}})
	assert.Equal(t, lines(
		"class C",
		"  field n = 1",
		"end",
	), luaast.Dump(decl))
}

func TestConstructorChains(t *testing.T) {
	env := transformer.NewEnv(nil, nil)
	b := classType("B")
	b.CtorCount = 1
	c := classType("C")
	c.Base = b
	c.CtorCount = 2
	compute := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Compute", IsStatic: true, Type: tInt, ContainingType: c}
	x := &resolved.Symbol{Kind: resolved.SymField, Name: "x", Type: tInt, FromSource: true, ContainingType: c}
	n := param("n", tInt)
	nSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "n", Type: tInt}
	first, second := ctorOf(c, 0), ctorOf(c, 1, n)

	decl := lowerDecl(t, env, &resolved.TypeDecl{
		Symbol:   c,
		BaseList: []*resolved.Type{b},
		Members: []resolved.Member{
			&resolved.FieldDecl{Vars: []*resolved.VarDeclarator{{Symbol: x, Init: call(id(compute), compute)}}},
			&resolved.ConstructorDecl{Symbol: first, Initializer: &resolved.CtorInitializer{Ctor: second, Args: []*resolved.Argument{arg(num(0))}}},
			&resolved.ConstructorDecl{
				Symbol:      second,
				Initializer: &resolved.CtorInitializer{IsBase: true, Ctor: ctorOf(b, 0)},
				Body:        block(exprStmt(assign("=", id(x), id(nSym)))),
			},
		},
	})
	assert.Equal(t, lines(
		"class C : N.B",
		"  field x = 0",
		"  method __ctor__1 = function (this)",
		"    N.C.__ctor__2(this, 0)",
		"  end",
		"  method __ctor__2 = function (this, n)",
		"    N.B.__ctor__(this)",
		"    this:__init__()",
		"    this.x = n",
		"  end",
		"  private method __init__ = function (this)",
		"    this.x = N.C.Compute()",
		"  end",
		"end",
	), luaast.Dump(decl))
}

func TestProperties(t *testing.T) {
	fx := newFixture(false)
	prop := func(name string, typ *resolved.Type) *resolved.Symbol {
		return &resolved.Symbol{Kind: resolved.SymProperty, Name: name, Type: typ, FromSource: true, ContainingType: fx.cls}
	}
	name := prop("Name", tString)
	size := prop("Size", tInt)
	size.IsVirtual, size.HasSetter = true, true
	area := prop("Area", tInt)
	area.HasAccessorBodies = true
	twice := prop("Twice", tInt)
	twice.IsExpressionBodied = true
	label := prop("Label", tString)

	decl := fx.lowerType(t,
		&resolved.PropertyDecl{Symbol: name, Accessors: []*resolved.Accessor{{Kind: resolved.AccessorGet}, {Kind: resolved.AccessorSet}}},
		&resolved.PropertyDecl{Symbol: size, Accessors: []*resolved.Accessor{{Kind: resolved.AccessorGet}, {Kind: resolved.AccessorSet}}},
		&resolved.PropertyDecl{Symbol: area, Accessors: []*resolved.Accessor{{Kind: resolved.AccessorGet, Body: block(ret(num(4)))}}},
		&resolved.PropertyDecl{Symbol: twice, ExprBody: bin("*", tInt, num(2), num(2))},
		&resolved.PropertyDecl{Symbol: label, Accessors: []*resolved.Accessor{{Kind: resolved.AccessorGet}}, Init: str("none")},
	)
	assert.Equal(t, lines(
		"class C",
		"  field Name = nil",
		"  property Size = 0",
		"    get auto",
		"    set auto",
		"  property Area",
		"    get = function (this)",
		"      return 4",
		"    end",
		"  property Twice",
		"    get = function (this)",
		"      return 2 * 2",
		"    end",
		`  readonly field Label = "none"`,
		"end",
	), luaast.Dump(decl))
}

func TestAccessorAutoPropertyStartsAtDefault(t *testing.T) {
	fx := newFixture(false)
	prop := func(name string, typ *resolved.Type) *resolved.Symbol {
		return &resolved.Symbol{
			Kind: resolved.SymProperty, Name: name, Type: typ, FromSource: true, ContainingType: fx.cls,
			IsVirtual: true, HasSetter: true,
		}
	}
	auto := []*resolved.Accessor{{Kind: resolved.AccessorGet}, {Kind: resolved.AccessorSet}}
	count := prop("Count", tInt)
	ready := prop("Ready", tBool)
	ready.IsVirtual, ready.IsOverride = false, true
	limit := prop("Limit", tInt)
	title := prop("Title", tString)

	decl := fx.lowerType(t,
		&resolved.PropertyDecl{Symbol: count, Accessors: auto},
		&resolved.PropertyDecl{Symbol: ready, Accessors: auto},
		&resolved.PropertyDecl{Symbol: limit, Accessors: auto, Init: num(5)},
		&resolved.PropertyDecl{Symbol: title, Accessors: auto},
	)
	assert.Equal(t, lines(
		"class C",
		"  property Count = 0",
		"    get auto",
		"    set auto",
		"  property Ready = false",
		"    get auto",
		"    set auto",
		"  property Limit = 5",
		"    get auto",
		"    set auto",
		"  property Title = nil",
		"    get auto",
		"    set auto",
		"end",
	), luaast.Dump(decl))

	for _, m := range decl.Members {
		p, ok := m.(*luaast.Property)
		require.True(t, ok)
		assert.NotNil(t, p.Value, p.Name.Name)
	}
}

func TestEvents(t *testing.T) {
	fx := newFixture(false)
	event := func(name string) *resolved.Symbol {
		return &resolved.Symbol{Kind: resolved.SymEvent, Name: name, Type: tAction, FromSource: true, ContainingType: fx.cls}
	}
	changed := event("Changed")
	changed.IsFieldLikeEvent = true
	moved := event("Moved")
	moved.IsFieldLikeEvent, moved.IsVirtual = true, true
	clicked := event("Clicked")
	clicked.HasAccessorBodies = true

	decl := fx.lowerType(t,
		&resolved.FieldDecl{IsEvent: true, Vars: []*resolved.VarDeclarator{{Symbol: changed}}},
		&resolved.FieldDecl{IsEvent: true, Vars: []*resolved.VarDeclarator{{Symbol: moved}}},
		&resolved.EventDecl{Symbol: clicked, Accessors: []*resolved.Accessor{
			{Kind: resolved.AccessorAdd, Body: block()},
			{Kind: resolved.AccessorRemove, Body: block()},
		}},
	)
	assert.Equal(t, lines(
		"class C",
		"  field Changed = nil",
		"  event Moved = nil",
		"    add auto",
		"    remove auto",
		"  event Clicked",
		"    add = function (this, value)",
		"    end",
		"    remove = function (this, value)",
		"    end",
		"end",
	), luaast.Dump(decl))
}

func TestUnitWithNamespaceAndEnum(t *testing.T) {
	env := transformer.NewEnv(nil, nil)
	color := &resolved.Type{Name: "Color", FullName: "N.Color", Namespace: "N", Kind: resolved.KindEnum, FromSource: true}
	unit := &resolved.CompilationUnit{
		Path: "C.cs",
		Members: []resolved.Decl{&resolved.NamespaceDecl{Name: "N", Members: []resolved.Decl{
			&resolved.EnumDecl{Symbol: color, Doc: []string{"Colors."}, Members: []*resolved.EnumMember{
				{Name: "Red", Value: &resolved.Constant{Value: int64(0)}},
				{Name: "Green", Value: &resolved.Constant{Value: int64(1)}},
			}},
			&resolved.TypeDecl{Symbol: classType("C")},
		}}},
	}

	out, err := transformer.New(env).LowerUnit(unit, 0)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"-- C.cs",
		"namespace N",
		"  --- Colors.",
		"  enum Color",
		"    Red = 0",
		"    Green = 1",
		"  end",
		"  class C",
		"  end",
		"end",
	), luaast.Dump(out))

	require.Len(t, env.Program.Enums(), 1)
	assert.Equal(t, "Color", env.Program.Enums()[0].Name.Name)
	require.Len(t, env.Program.Types(), 1)
}

func TestTypeShapes(t *testing.T) {
	point := &resolved.Type{Name: "Point", FullName: "N.Point", Namespace: "N", Kind: resolved.KindStruct, FromSource: true}

	list := classType("L")
	list.TypeParams = []string{"T"}
	mapSym := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Map", ReturnsVoid: true, Type: tVoid, FromSource: true, ContainingType: list}

	self := classType("A")
	derived := classType("X")
	derived.Base = self
	base := &resolved.Type{Name: "Base", FullName: "N.Base", Namespace: "N", Kind: resolved.KindClass, TypeArgs: []*resolved.Type{derived}}

	tests := []struct {
		name     string
		decl     *resolved.TypeDecl
		expected string
	}{
		{
			name:     "struct",
			decl:     &resolved.TypeDecl{Symbol: point},
			expected: lines("struct Point", "  #struct-helpers", "end"),
		},
		{
			name: "generic class and method",
			decl: &resolved.TypeDecl{Symbol: list, Members: []resolved.Member{
				&resolved.MethodDecl{Symbol: mapSym, TypeParams: []string{"U"}, Body: block()},
			}},
			expected: lines(
				"class L_1<T>",
				"  method Map<U> = function (this, U)",
				"  end",
				"end",
			),
		},
		{
			name:     "base generic over a subclass forces a static constructor",
			decl:     &resolved.TypeDecl{Symbol: self, BaseList: []*resolved.Type{base}},
			expected: lines("class A : N.Base_1(N.X)", "  #static-ctor", "end"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := lowerDecl(t, transformer.NewEnv(nil, nil), tt.decl)
			assert.Equal(t, tt.expected, luaast.Dump(decl))
		})
	}
}

func TestAttributesAndDoc(t *testing.T) {
	tag := classType("TagAttribute")
	decl := lowerDecl(t, transformer.NewEnv(nil, nil), &resolved.TypeDecl{
		Symbol:     classType("C"),
		Doc:        []string{"Summary."},
		Attributes: []*resolved.Attribute{{Type: tag, Args: []resolved.Expr{str("x"), typeName(tInt)}}},
	})
	assert.Equal(t, lines(
		"--- Summary.",
		`@N.TagAttribute("x", System.Int32)`,
		"class C",
		"end",
	), luaast.Dump(decl))

	v := local("v", tInt)
	_, err := transformer.New(transformer.NewEnv(nil, nil)).LowerUnit(&resolved.CompilationUnit{
		Path: "C.cs",
		Members: []resolved.Decl{&resolved.TypeDecl{
			MemberBase: resolved.MemberBase{Pos: at(2, 1)},
			Symbol:     classType("C"),
			Attributes: []*resolved.Attribute{{Type: tag, Args: []resolved.Expr{id(v)}}},
		}},
	}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C.cs:2:1")
	assert.Contains(t, err.Error(), "not a constant")
}

func TestIterator(t *testing.T) {
	fx := newFixture(false)
	enumerable := &resolved.Type{Name: "IEnumerable", FullName: "System.Collections.Generic.IEnumerable", Namespace: "System.Collections.Generic",
		Kind: resolved.KindInterface, TypeArgs: []*resolved.Type{tInt}}
	n := param("n", tInt)
	count := fx.staticMethod("Count", enumerable, n)
	nSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "n", Type: tInt}

	decl := fx.lowerType(t, &resolved.MethodDecl{Symbol: count, Body: block(&resolved.Yield{Value: id(nSym)}, &resolved.Yield{IsBreak: true})})
	assert.Equal(t, lines(
		"return System.yieldIEnumerable(function (n)",
		"  System.yieldReturn(n)",
		"  return",
		"end, System.Int32, n)",
	), dumpBody(t, findMethod(t, decl, "Count")))
}

func TestEntryPoint(t *testing.T) {
	fx := newFixture(false)
	main := fx.staticMethod("Main", tVoid)
	fx.lowerType(t, &resolved.MethodDecl{Symbol: main, Body: block()})
	assert.Same(t, main, fx.env.Program.EntryPoint())

	other := classType("Other")
	second := &resolved.Symbol{Kind: resolved.SymMethod, Name: "Main", IsStatic: true, ReturnsVoid: true, Type: tVoid, FromSource: true, ContainingType: other}
	_, err := transformer.New(fx.env).LowerUnit(&resolved.CompilationUnit{
		Path:    "Other.cs",
		Members: []resolved.Decl{&resolved.TypeDecl{Symbol: other, Members: []resolved.Member{&resolved.MethodDecl{Symbol: second, Body: block()}}}},
	}, 1)
	var invariant *lowerr.InvariantError
	require.ErrorAs(t, err, &invariant)
	assert.Contains(t, err.Error(), "more than one entry point")
	assert.Same(t, main, fx.env.Program.EntryPoint())
}

func TestMethodShapes(t *testing.T) {
	fx := newFixture(false)
	draw := fx.method("Draw", tVoid)
	draw.IsAbstract = true
	overload := fx.method("M", tVoid)
	overload.OverloadIndex = 1
	i := param("i", tInt)
	indexer := &resolved.Symbol{Kind: resolved.SymProperty, Name: "this[]", IsIndexer: true, Type: tInt, FromSource: true,
		HasSetter: true, Parameters: []*resolved.Parameter{i}, ContainingType: fx.cls}
	iSym := &resolved.Symbol{Kind: resolved.SymParameter, Name: "i", Type: tInt}
	secret := fx.method("Secret", tInt)
	secret.IsPrivate = true

	decl := fx.lowerType(t,
		&resolved.MethodDecl{Symbol: draw},
		&resolved.MethodDecl{Symbol: overload, Body: block()},
		&resolved.IndexerDecl{Symbol: indexer, Accessors: []*resolved.Accessor{
			{Kind: resolved.AccessorGet, Body: block(ret(id(iSym)))},
			{Kind: resolved.AccessorSet, Body: block()},
		}},
		&resolved.MethodDecl{Symbol: secret, ExprBody: num(7)},
	)
	assert.Equal(t, lines(
		"class C",
		"  abstract method Draw",
		"  method M1 = function (this)",
		"  end",
		"  method get = function (this, i)",
		"    return i",
		"  end",
		"  method set = function (this, i, value)",
		"  end",
		"  private method Secret = function (this)",
		"    return 7",
		"  end",
		"end",
	), luaast.Dump(decl))
}
