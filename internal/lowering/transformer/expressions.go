package transformer

import (
	"strconv"
	"strings"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/template"
)

// maxFoldedStringLen is the longest string constant inlined at use sites.
// Longer constants stay behind their field.
const maxFoldedStringLen = 32

// lowerExpr lowers e in the current block. Statements the expression needs
// before its value is available are emitted into the block first.
func (t *Transformer) lowerExpr(e resolved.Expr) (luaast.Expr, error) {
	switch v := e.(type) {
	case *resolved.Literal:
		return lowerLiteral(v), nil
	case *resolved.Identifier:
		return t.lowerIdentifier(v)
	case *resolved.This, *resolved.Base:
		return thisIdent(), nil
	case *resolved.TypeName:
		return t.typeExpr(v.Target), nil
	case *resolved.MemberAccess:
		return t.lowerMemberAccess(v)
	case *resolved.Invocation:
		return t.lowerInvocation(v, false)
	case *resolved.Binary:
		return t.lowerBinary(v)
	case *resolved.Unary:
		return t.lowerUnary(v, false)
	case *resolved.Assignment:
		return t.lowerAssignment(v, false)
	case *resolved.Conditional:
		return t.lowerConditional(v)
	case *resolved.Cast:
		return t.lowerCast(v)
	case *resolved.Parenthesized:
		return t.lowerExpr(v.Inner)
	case *resolved.ObjectCreation:
		return t.lowerObjectCreation(v)
	case *resolved.ArrayCreation:
		return t.lowerArrayCreation(v)
	case *resolved.ElementAccess:
		lv, err := t.elementLvalue(v, false)
		if err != nil {
			return nil, err
		}
		return lv.get(), nil
	case *resolved.Lambda:
		return t.lowerLambda(v)
	case *resolved.CheckedExpr:
		return t.lowerExpr(v.Inner)
	case nil:
		return nil, t.shapeErr(resolved.Pos{}, "missing expression")
	}
	return nil, t.shapeErr(e.Position(), "unsupported expression %T", e)
}

func lowerLiteral(v *resolved.Literal) luaast.Expr {
	switch x := v.Value.(type) {
	case bool:
		if x {
			return luaast.True()
		}
		return luaast.False()
	case string:
		return luaast.Lit(luaString(x))
	case rune:
		return constExpr(&resolved.Constant{Value: x})
	}
	if v.Const != nil {
		return constExpr(v.Const)
	}
	if isNullLiteral(v) {
		return luaast.Nil()
	}
	return luaast.Lit(numberText(v.Text))
}

func isNullLiteral(v *resolved.Literal) bool {
	if v.Value != nil || v.Const != nil {
		return false
	}
	return v.Text == "" || v.Text == "null" || v.Text == "default"
}

// numberText strips digit separators and type suffixes from a numeric
// literal. Real suffixes on integral spellings keep the value a float.
func numberText(s string) string {
	s = strings.ReplaceAll(s, "_", "")
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") {
		return strings.TrimRight(s, "uUlL")
	}
	isReal := strings.ContainsAny(lower[len(lower)-1:], "fdm")
	s = strings.TrimRight(s, "uUlLfFdDmM")
	if isReal && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// foldConst returns the literal of a constant member, or nil when the member
// must be referenced.
func foldConst(sym *resolved.Symbol) luaast.Expr {
	if sym == nil || !sym.IsConst || sym.Constant == nil {
		return nil
	}
	if s, ok := sym.Constant.Value.(string); ok && len(s) > maxFoldedStringLen {
		return nil
	}
	return constExpr(sym.Constant)
}

// simpleIdentifier lowers identifiers that name a local, a parameter, a
// type, a namespace or a type parameter. ok is false for anything else.
func (t *Transformer) simpleIdentifier(v *resolved.Identifier) (luaast.Expr, bool) {
	sym := v.Symbol
	if sym == nil {
		return luaast.Ident(identName(v.Name)), true
	}
	if c := foldConst(sym); c != nil {
		return c, true
	}
	switch sym.Kind {
	case resolved.SymLocal, resolved.SymParameter:
		return luaast.Ident(localName(sym)), true
	case resolved.SymNamedType:
		typ := sym.Type
		if typ == nil {
			typ = v.StaticType()
		}
		return t.typeExpr(typ), true
	case resolved.SymNamespace, resolved.SymTypeParameter:
		return luaast.Ident(identName(sym.Name)), true
	}
	return nil, false
}

func (t *Transformer) lowerIdentifier(v *resolved.Identifier) (luaast.Expr, error) {
	if x, ok := t.simpleIdentifier(v); ok {
		return x, nil
	}
	sym := v.Symbol
	switch sym.Kind {
	case resolved.SymField, resolved.SymProperty, resolved.SymEvent:
		if tmpl, ok := t.env.Templates.Lookup(sym); ok {
			var this luaast.Expr
			if !sym.IsStatic {
				this = thisIdent()
			}
			return t.expand(v.Pos, tmpl, this, nil, nil)
		}
		lv, err := t.memberLvalue(nil, sym, false)
		if err != nil {
			return nil, err
		}
		return lv.get(), nil
	case resolved.SymMethod:
		return t.methodGroup(v.Pos, nil, sym)
	}
	return nil, t.shapeErr(v.Pos, "%s %s used as a value", sym.Kind, sym.Name)
}

func (t *Transformer) lowerMemberAccess(v *resolved.MemberAccess) (luaast.Expr, error) {
	sym := v.Symbol
	if sym == nil {
		target, err := t.lowerExpr(v.Target)
		if err != nil {
			return nil, err
		}
		return luaast.Dot(target, identName(v.Name)), nil
	}
	if c := foldConst(sym); c != nil {
		return c, nil
	}
	switch sym.Kind {
	case resolved.SymField, resolved.SymProperty, resolved.SymEvent:
		if isLength(v) {
			target, err := t.lowerExpr(v.Target)
			if err != nil {
				return nil, err
			}
			return &luaast.Unary{Op: "#", Operand: target}, nil
		}
		if tmpl, ok := t.env.Templates.Lookup(sym); ok {
			var this luaast.Expr
			if !sym.IsStatic {
				var err error
				if this, err = t.lowerExpr(v.Target); err != nil {
					return nil, err
				}
			}
			return t.expand(v.Pos, tmpl, this, nil, nil)
		}
		target := v.Target
		if _, ok := target.(*resolved.This); ok {
			target = nil
		}
		lv, err := t.memberLvalue(target, sym, false)
		if err != nil {
			return nil, err
		}
		return lv.get(), nil
	case resolved.SymMethod:
		return t.methodGroup(v.Pos, v.Target, sym)
	case resolved.SymNamedType:
		typ := sym.Type
		if typ == nil {
			typ = v.StaticType()
		}
		return t.typeExpr(typ), nil
	case resolved.SymNamespace:
		target, err := t.lowerExpr(v.Target)
		if err != nil {
			return nil, err
		}
		return luaast.Dot(target, identName(v.Name)), nil
	}
	return nil, t.shapeErr(v.Pos, "%s %s used as a value", sym.Kind, sym.Name)
}

// isLength reports the Length of strings and arrays, which is the length
// operator of the target.
func isLength(v *resolved.MemberAccess) bool {
	if v.Symbol.Name != "Length" || v.Symbol.IsStatic {
		return false
	}
	typ := v.Target.StaticType()
	return typ.IsString() || typ.IsArray()
}

// methodGroup lowers a method used as a value. Instance methods are bound to
// their receiver.
func (t *Transformer) methodGroup(pos resolved.Pos, target resolved.Expr, sym *resolved.Symbol) (luaast.Expr, error) {
	name := memberName(sym)
	if sym.ReducedFrom != nil {
		recv, err := t.receiver(target, false)
		if err != nil {
			return nil, err
		}
		return luaast.Call(system("bind"), recv(), luaast.Dot(t.typeExpr(sym.ReducedFrom.ContainingType), name)), nil
	}
	if sym.IsStatic {
		q := t.staticTarget(sym)
		if q == nil {
			return luaast.Ident(name), nil
		}
		return luaast.Dot(q(), name), nil
	}
	if b, ok := target.(*resolved.Base); ok {
		base := b.StaticType()
		if base == nil {
			base = sym.ContainingType
		}
		return luaast.Call(system("bind"), thisIdent(), luaast.Dot(t.typeExpr(base), name)), nil
	}
	if _, ok := target.(*resolved.This); ok {
		target = nil
	}
	recv, err := t.receiver(target, true)
	if err != nil {
		return nil, err
	}
	return luaast.Call(system("bind"), recv(), luaast.Dot(recv(), name)), nil
}

// expand instantiates a member template at pos.
func (t *Transformer) expand(pos resolved.Pos, tmpl *template.Template, this luaast.Expr, args, typeArgs []luaast.Expr) (luaast.Expr, error) {
	out, err := tmpl.Expand(this, args, typeArgs)
	if err != nil {
		return nil, t.shapeErr(pos, "%v", err)
	}
	return out, nil
}

func (t *Transformer) lowerObjectCreation(v *resolved.ObjectCreation) (luaast.Expr, error) {
	typ := v.StaticType()
	if typ.IsDelegate() && len(v.Args) == 1 {
		return t.lowerExpr(v.Args[0].Value)
	}
	if v.Ctor == nil {
		return luaast.Call(t.typeExpr(typ)), nil
	}
	for _, a := range v.Args {
		if a.RefKind != resolved.RefNone {
			return nil, t.shapeErr(v.Pos, "by-reference argument to constructor of %s", typ)
		}
	}
	args, err := t.lowerArgs(v.Pos, v.Ctor, v.Args)
	if err != nil {
		return nil, err
	}
	if tmpl, ok := t.env.Templates.Lookup(v.Ctor); ok {
		return t.expand(v.Pos, tmpl, nil, args, t.typeArgs(typ.TypeArgs))
	}
	if typ.CtorCount > 1 && v.Ctor.OverloadIndex > 0 {
		return luaast.Call(system("new"), append([]luaast.Expr{t.typeExpr(typ), luaast.Lit(strconv.Itoa(v.Ctor.OverloadIndex + 1))}, args...)...), nil
	}
	return luaast.Call(t.typeExpr(typ), args...), nil
}

func (t *Transformer) lowerArrayCreation(v *resolved.ArrayCreation) (luaast.Expr, error) {
	arrayType := luaast.Call(system("Array"), t.typeExpr(v.Elem))
	if v.Size != nil && len(v.Items) == 0 {
		size, err := t.lowerExpr(v.Size)
		if err != nil {
			return nil, err
		}
		return luaast.Call(&luaast.MemberAccess{Target: arrayType, Name: luaast.Ident("new"), Colon: true}, size), nil
	}
	items, err := t.lowerExprs(v.Items)
	if err != nil {
		return nil, err
	}
	return luaast.Call(arrayType, items...), nil
}

func (t *Transformer) lowerExprs(es []resolved.Expr) ([]luaast.Expr, error) {
	out := make([]luaast.Expr, len(es))
	for i, e := range es {
		x, err := t.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (t *Transformer) typeArgs(types []*resolved.Type) []luaast.Expr {
	out := make([]luaast.Expr, len(types))
	for i, a := range types {
		out[i] = t.typeExpr(a)
	}
	return out
}

func (t *Transformer) lowerLambda(v *resolved.Lambda) (luaast.Expr, error) {
	fn := &luaast.Function{Body: &luaast.Block{}}
	for _, p := range v.Params {
		fn.Params = append(fn.Params, luaast.Ident(localName(p)))
	}
	pop := t.pushFunction(&functionFrame{fn: fn, isStaticCtor: t.inStaticCtor()})
	defer pop()
	err := t.inBlock(fn.Body, func() error {
		if v.Body != nil {
			return t.lowerStmts(v.Body.Stmts)
		}
		if v.ReturnsVoid {
			return t.lowerExprStmt(v.ExprBody)
		}
		value, err := t.lowerExpr(v.ExprBody)
		if err != nil {
			return err
		}
		t.emit(&luaast.Return{Values: []luaast.Expr{value}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fn, nil
}

// lowerConditional uses `c and a or b` when a can never be false or nil and
// neither branch needs statements; otherwise it goes through a temporary.
func (t *Transformer) lowerConditional(v *resolved.Conditional) (luaast.Expr, error) {
	cond, err := t.lowerExpr(v.Cond)
	if err != nil {
		return nil, err
	}
	whenTrue, tb, err := t.capture(func() (luaast.Expr, error) { return t.lowerExpr(v.WhenTrue) })
	if err != nil {
		return nil, err
	}
	whenFalse, fb, err := t.capture(func() (luaast.Expr, error) { return t.lowerExpr(v.WhenFalse) })
	if err != nil {
		return nil, err
	}
	if len(tb.Stmts) == 0 && len(fb.Stmts) == 0 && neverFalsy(v.WhenTrue) {
		return luaast.Bin(luaast.Bin(cond, "and", whenTrue), "or", whenFalse), nil
	}
	tmp, err := t.localTemp(v.Pos, nil)
	if err != nil {
		return nil, err
	}
	tb.Add(&luaast.Assignment{Left: tmp, Right: whenTrue})
	fb.Add(&luaast.Assignment{Left: tmp, Right: whenFalse})
	t.emit(&luaast.If{Cond: cond, Body: tb, Else: fb})
	return tmp, nil
}

// neverFalsy reports expressions whose value can be neither nil nor false.
func neverFalsy(e resolved.Expr) bool {
	if c := e.ConstValue(); c != nil {
		if c.Value == nil {
			return false
		}
		b, isBool := c.Value.(bool)
		return !isBool || b
	}
	switch v := e.(type) {
	case *resolved.Parenthesized:
		return neverFalsy(v.Inner)
	case *resolved.ObjectCreation, *resolved.ArrayCreation, *resolved.Lambda, *resolved.This:
		return true
	case *resolved.Literal:
		if isNullLiteral(v) {
			return false
		}
		b, isBool := v.Value.(bool)
		return !isBool || b
	case *resolved.Binary:
		if v.Op == "+" && v.StaticType().IsString() {
			return true
		}
	}
	typ := e.StaticType()
	return typ.IsValueType() && !typ.Nullable && !typ.IsBoolean()
}
