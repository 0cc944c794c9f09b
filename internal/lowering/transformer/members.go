package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
)

// classifyMember decides whether a field, property or event is stored as a
// plain field or dispatched through an accessor pair, and records the choice
// program-wide so every reference agrees.
func (t *Transformer) classifyMember(sym *resolved.Symbol) registry.MemberInfo {
	if info, ok := t.env.Program.Member(sym); ok {
		return info
	}
	kind := registry.MemberField
	switch sym.Kind {
	case resolved.SymProperty:
		if !isPropertyField(sym) {
			kind = registry.MemberAccessor
		}
	case resolved.SymEvent:
		if !isEventField(sym) {
			kind = registry.MemberAccessor
		}
	}
	return t.env.Program.RegisterMember(sym, registry.MemberInfo{Kind: kind, Name: memberName(sym)})
}

// isPropertyField: auto properties without polymorphic or interface
// obligations are plain fields. Library properties are always accessors.
func isPropertyField(sym *resolved.Symbol) bool {
	if sym.IsIndexer || !sym.FromSource || sym.ContainingType.IsInterface() {
		return false
	}
	if sym.IsOverridable() || sym.ImplementsInterface {
		return false
	}
	return !sym.HasAccessorBodies && !sym.IsExpressionBodied
}

// isEventField: field-like events follow the property rule with the
// synthesized backing field in place of auto accessors.
func isEventField(sym *resolved.Symbol) bool {
	if !sym.FromSource || sym.ContainingType.IsInterface() {
		return false
	}
	if sym.IsOverridable() || sym.ImplementsInterface {
		return false
	}
	return sym.IsFieldLikeEvent
}

// staticTarget returns the qualifier of a static member, or nil when the
// member is referenced by its bare name. Private statics and static readonly
// fields of the enclosing type are locals of the type body; everything else
// goes through the type so that its static initialization runs first.
func (t *Transformer) staticTarget(sym *resolved.Symbol) func() luaast.Expr {
	owner := sym.ContainingType
	if owner == t.curTypeSym() {
		if sym.IsPrivate || (sym.Kind == resolved.SymField && sym.IsReadOnly) {
			return nil
		}
		if t.inStaticCtor() {
			return func() luaast.Expr { return thisIdent() }
		}
	}
	return func() luaast.Expr { return t.typeExpr(owner) }
}

// receiver lowers e as the receiver of a member. When stable is set the
// result can be requested several times: simple receivers are re-lowered and
// anything else is evaluated once into a temporary.
func (t *Transformer) receiver(e resolved.Expr, stable bool) (func() luaast.Expr, error) {
	if e == nil {
		return func() luaast.Expr { return thisIdent() }, nil
	}
	if !stable {
		node, err := t.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		return func() luaast.Expr { return node }, nil
	}
	return t.stable(e)
}

// stable evaluates e once and returns a factory of equivalent references.
func (t *Transformer) stable(e resolved.Expr) (func() luaast.Expr, error) {
	switch v := e.(type) {
	case *resolved.This, *resolved.Base:
		return func() luaast.Expr { return thisIdent() }, nil
	case *resolved.TypeName:
		return func() luaast.Expr { return t.typeExpr(v.Target) }, nil
	case *resolved.Literal:
		return func() luaast.Expr { return lowerLiteral(v) }, nil
	case *resolved.Parenthesized:
		return t.stable(v.Inner)
	case *resolved.Identifier:
		if v.Symbol != nil {
			switch v.Symbol.Kind {
			case resolved.SymLocal, resolved.SymParameter, resolved.SymNamedType, resolved.SymNamespace, resolved.SymTypeParameter:
				return func() luaast.Expr {
					x, _ := t.simpleIdentifier(v)
					return x
				}, nil
			}
		}
	}
	if c := e.ConstValue(); c != nil {
		return func() luaast.Expr { return constExpr(c) }, nil
	}
	value, err := t.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	tmp, err := t.localTemp(e.Position(), value)
	if err != nil {
		return nil, err
	}
	return func() luaast.Expr { return tmp }, nil
}

// lvalue is an assignable location.
type lvalue struct {
	sym *resolved.Symbol

	get func() luaast.Expr
	set func(v luaast.Expr) luaast.Stmt

	// plain builds the location itself when it can stand on the left of an
	// assignment; nil for accessor-backed locations.
	plain func() luaast.Expr

	// adapter is set for accessor-backed events and builds add/remove calls.
	adapter func(kind luaast.AdapterKind, v luaast.Expr) luaast.Expr
}

func plainLvalue(sym *resolved.Symbol, build func() luaast.Expr) *lvalue {
	return &lvalue{
		sym:   sym,
		plain: build,
		get:   build,
		set: func(v luaast.Expr) luaast.Stmt {
			return &luaast.Assignment{Left: build(), Right: v}
		},
	}
}

func adapterLvalue(sym *resolved.Symbol, build func(kind luaast.AdapterKind, v luaast.Expr) luaast.Expr) *lvalue {
	lv := &lvalue{
		sym: sym,
		get: func() luaast.Expr { return build(luaast.AdapterGet, nil) },
		set: func(v luaast.Expr) luaast.Stmt {
			return &luaast.ExprStmt{X: build(luaast.AdapterSet, v)}
		},
	}
	if sym != nil && sym.Kind == resolved.SymEvent {
		lv.adapter = build
	}
	return lv
}

// memberLvalue builds the location of a field, property or event reached
// through target; a nil target means an implicit this or type.
func (t *Transformer) memberLvalue(target resolved.Expr, sym *resolved.Symbol, stable bool) (*lvalue, error) {
	info := t.classifyMember(sym)
	var recv func() luaast.Expr
	viaBase := false
	switch {
	case sym.IsStatic:
		recv = t.staticTarget(sym)
	case target == nil:
		recv = func() luaast.Expr { return thisIdent() }
	default:
		if b, ok := target.(*resolved.Base); ok && info.Kind == registry.MemberAccessor {
			base := b.StaticType()
			if base == nil {
				base = t.curTypeSym().Base
			}
			recv = func() luaast.Expr { return t.typeExpr(base) }
			viaBase = true
		} else {
			var err error
			if recv, err = t.receiver(target, stable); err != nil {
				return nil, err
			}
		}
	}

	if info.Kind == registry.MemberField {
		if recv == nil {
			return plainLvalue(sym, func() luaast.Expr { return luaast.Ident(info.Name) }), nil
		}
		return plainLvalue(sym, func() luaast.Expr { return luaast.Dot(recv(), info.Name) }), nil
	}

	colon := !sym.IsStatic && !viaBase
	return adapterLvalue(sym, func(kind luaast.AdapterKind, v luaast.Expr) luaast.Expr {
		a := &luaast.PropertyAdapter{Name: info.Name, Colon: colon, Kind: kind, Value: v}
		if recv != nil {
			a.Target = recv()
		}
		if viaBase {
			a.Args = []luaast.Expr{thisIdent()}
		}
		return a
	}), nil
}

// elementLvalue builds an array element or indexer location.
func (t *Transformer) elementLvalue(e *resolved.ElementAccess, stable bool) (*lvalue, error) {
	recv, err := t.receiver(e.Target, stable)
	if err != nil {
		return nil, err
	}
	keys := make([]func() luaast.Expr, len(e.Args))
	for i, a := range e.Args {
		if keys[i], err = t.receiver(a.Value, stable); err != nil {
			return nil, err
		}
	}
	return adapterLvalue(e.Indexer, func(kind luaast.AdapterKind, v luaast.Expr) luaast.Expr {
		args := make([]luaast.Expr, len(keys))
		for i, k := range keys {
			args[i] = k()
		}
		return &luaast.PropertyAdapter{Target: recv(), Colon: true, Kind: kind, Args: args, Value: v}
	}), nil
}

// lvalueOf resolves an assignment target. stable is required when the
// location is both read and written.
func (t *Transformer) lvalueOf(e resolved.Expr, stable bool) (*lvalue, error) {
	switch v := e.(type) {
	case *resolved.Parenthesized:
		return t.lvalueOf(v.Inner, stable)
	case *resolved.Identifier:
		if v.Symbol == nil {
			return plainLvalue(nil, func() luaast.Expr { return luaast.Ident(identName(v.Name)) }), nil
		}
		switch v.Symbol.Kind {
		case resolved.SymLocal, resolved.SymParameter:
			name := localName(v.Symbol)
			return plainLvalue(v.Symbol, func() luaast.Expr { return luaast.Ident(name) }), nil
		case resolved.SymField, resolved.SymProperty, resolved.SymEvent:
			return t.memberLvalue(nil, v.Symbol, stable)
		}
	case *resolved.MemberAccess:
		if v.Symbol == nil {
			recv, err := t.receiver(v.Target, stable)
			if err != nil {
				return nil, err
			}
			return plainLvalue(nil, func() luaast.Expr { return luaast.Dot(recv(), v.Name) }), nil
		}
		switch v.Symbol.Kind {
		case resolved.SymField, resolved.SymProperty, resolved.SymEvent:
			target := v.Target
			if _, ok := target.(*resolved.This); ok {
				target = nil
			}
			return t.memberLvalue(target, v.Symbol, stable)
		}
	case *resolved.ElementAccess:
		return t.elementLvalue(v, stable)
	case nil:
		return nil, t.shapeErr(resolved.Pos{}, "missing assignment target")
	}
	return nil, t.shapeErr(e.Position(), "expression of type %T is not assignable", e)
}

// recordStaticReadOnly notes writes to non-private static readonly fields.
func (t *Transformer) recordStaticReadOnly(sym *resolved.Symbol) {
	if sym == nil || sym.Kind != resolved.SymField || !sym.IsStatic || !sym.IsReadOnly || sym.IsPrivate {
		return
	}
	if len(t.types) == 0 {
		return
	}
	t.types[len(t.types)-1].decl.AddStaticReadOnlyAssigned(t.classifyMember(sym).Name)
}
