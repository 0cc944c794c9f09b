package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

// loweredCall is a call whose by-reference arguments still have to be
// written back.
type loweredCall struct {
	pos  resolved.Pos
	call luaast.Expr
	refs []*lvalue
	void bool
}

// bindArgs matches args to the parameters of method: named arguments are
// moved to their slot, omitted optional parameters get their default and
// params arrays are packed. Arguments are lowered in source order.
func (t *Transformer) bindArgs(pos resolved.Pos, method *resolved.Symbol, args []*resolved.Argument) ([]luaast.Expr, []*lvalue, error) {
	if method == nil {
		values := make([]luaast.Expr, 0, len(args))
		for _, a := range args {
			if a.Name != "" {
				return nil, nil, t.shapeErr(pos, "named argument %s on a dynamic call", a.Name)
			}
			x, err := t.lowerExpr(a.Value)
			if err != nil {
				return nil, nil, err
			}
			values = append(values, x)
		}
		return values, nil, nil
	}

	params := method.Parameters
	slots := make([]luaast.Expr, len(params))
	filled := make([]bool, len(params))
	fromDefault := make([]bool, len(params))
	refSlots := make([]*lvalue, len(params))

	paramsIndex := -1
	if n := len(params); n > 0 && params[n-1].IsParams {
		paramsIndex = n - 1
	}
	var packed []resolved.Expr
	var packedValues []luaast.Expr

	for i, a := range args {
		slot := i
		if a.Name != "" {
			slot = paramIndex(params, a.Name)
			if slot < 0 {
				return nil, nil, t.shapeErr(pos, "%s has no parameter named %s", method, a.Name)
			}
		} else if paramsIndex >= 0 && i >= paramsIndex {
			x, err := t.lowerExpr(a.Value)
			if err != nil {
				return nil, nil, err
			}
			packed = append(packed, a.Value)
			packedValues = append(packedValues, x)
			continue
		}
		if slot >= len(params) {
			return nil, nil, t.shapeErr(pos, "too many arguments to %s", method)
		}
		if filled[slot] {
			return nil, nil, t.shapeErr(pos, "parameter %s of %s is bound twice", params[slot].Name, method)
		}
		filled[slot] = true
		switch a.RefKind {
		case resolved.RefNone:
			x, err := t.lowerExpr(a.Value)
			if err != nil {
				return nil, nil, err
			}
			slots[slot] = x
		case resolved.RefRef:
			lv, err := t.lvalueOf(a.Value, true)
			if err != nil {
				return nil, nil, err
			}
			refSlots[slot] = lv
			slots[slot] = lv.get()
		case resolved.RefOut:
			lv, err := t.lvalueOf(a.Value, true)
			if err != nil {
				return nil, nil, err
			}
			refSlots[slot] = lv
			slots[slot] = luaast.Nil()
			fromDefault[slot] = true
		}
	}

	if paramsIndex >= 0 && !filled[paramsIndex] {
		filled[paramsIndex] = true
		p := params[paramsIndex]
		if len(packed) == 1 && p.Type.IsAssignableFrom(packed[0].StaticType()) {
			slots[paramsIndex] = packedValues[0]
		} else {
			slots[paramsIndex] = luaast.Call(luaast.Call(system("Array"), t.typeExpr(p.Type.Elem)), packedValues...)
		}
	}

	for i, p := range params {
		if filled[i] {
			continue
		}
		if !p.HasDefault {
			return nil, nil, t.shapeErr(pos, "missing argument %s of %s", p.Name, method)
		}
		slots[i] = t.defaultArg(p)
		fromDefault[i] = true
	}

	generic := len(method.TypeArgs) > 0 && !method.IgnoreGeneric
	if !generic {
		for n := len(slots); n > 0 && fromDefault[n-1] && isNil(slots[n-1]); n-- {
			slots = slots[:n-1]
		}
	} else {
		slots = append(slots, t.typeArgs(method.TypeArgs)...)
	}

	var refs []*lvalue
	for _, lv := range refSlots {
		if lv != nil {
			refs = append(refs, lv)
		}
	}
	return slots, refs, nil
}

func paramIndex(params []*resolved.Parameter, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func isNil(e luaast.Expr) bool {
	l, ok := e.(*luaast.Literal)
	return ok && l.Text == "nil"
}

// defaultArg is the value of an omitted optional parameter.
func (t *Transformer) defaultArg(p *resolved.Parameter) luaast.Expr {
	if p.Default != nil && p.Default.Value != nil {
		return constExpr(p.Default)
	}
	if p.Type.IsValueType() {
		return t.defaultValue(p.Type)
	}
	return luaast.Nil()
}

// lowerArgs binds arguments of a call that cannot pass by reference.
func (t *Transformer) lowerArgs(pos resolved.Pos, method *resolved.Symbol, args []*resolved.Argument) ([]luaast.Expr, error) {
	values, refs, err := t.bindArgs(pos, method, args)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return nil, t.shapeErr(pos, "by-reference argument to %s", method)
	}
	return values, nil
}

// calleeOf splits an invocation target into its receiver and method symbol.
// ok is false when the target is a delegate value.
func calleeOf(target resolved.Expr) (recv resolved.Expr, sym *resolved.Symbol, ok bool) {
	switch v := target.(type) {
	case *resolved.Identifier:
		if v.Symbol != nil && v.Symbol.Kind == resolved.SymMethod {
			return nil, v.Symbol, true
		}
	case *resolved.MemberAccess:
		if v.Symbol != nil && v.Symbol.Kind == resolved.SymMethod {
			if _, isThis := v.Target.(*resolved.This); isThis {
				return nil, v.Symbol, true
			}
			return v.Target, v.Symbol, true
		}
	case *resolved.Parenthesized:
		return calleeOf(v.Inner)
	}
	return nil, nil, false
}

func isDelegateInvoke(m *resolved.Symbol) bool {
	return m.Name == "Invoke" && m.ContainingType.IsDelegate()
}

// buildInvocation lowers a call without writing back by-reference arguments.
func (t *Transformer) buildInvocation(v *resolved.Invocation) (loweredCall, error) {
	m := v.Method
	out := loweredCall{pos: v.Pos}
	if m == nil {
		callee, err := t.lowerExpr(v.Target)
		if err != nil {
			return out, err
		}
		values, _, err := t.bindArgs(v.Pos, nil, v.Args)
		if err != nil {
			return out, err
		}
		out.call = luaast.Call(callee, values...)
		return out, nil
	}
	out.void = m.ReturnsVoid

	recv, _, isMethod := calleeOf(v.Target)
	if !isMethod || isDelegateInvoke(m) {
		target := v.Target
		if isMethod && recv != nil {
			target = recv
		}
		callee, err := t.lowerExpr(target)
		if err != nil {
			return out, err
		}
		values, refs, err := t.bindArgs(v.Pos, m, v.Args)
		if err != nil {
			return out, err
		}
		out.call, out.refs = luaast.Call(callee, values...), refs
		return out, nil
	}
	if tmpl, ok := t.env.Templates.Lookup(m); ok {
		var this luaast.Expr
		if m.ReducedFrom != nil || !m.IsStatic {
			r, err := t.receiver(recv, false)
			if err != nil {
				return out, err
			}
			this = r()
		}
		values, refs, err := t.bindArgs(v.Pos, m, v.Args)
		if err != nil {
			return out, err
		}
		call, err := t.expand(v.Pos, tmpl, this, values, t.typeArgs(m.TypeArgs))
		if err != nil {
			return out, err
		}
		out.call, out.refs = call, refs
		return out, nil
	}

	name := memberName(m)
	var callee luaast.Expr
	var lead []luaast.Expr
	switch {
	case m.ReducedFrom != nil:
		r, err := t.receiver(recv, false)
		if err != nil {
			return out, err
		}
		lead = append(lead, r())
		callee = luaast.Dot(t.typeExpr(m.ReducedFrom.ContainingType), name)
	case m.IsStatic:
		if q := t.staticTarget(m); q != nil {
			callee = luaast.Dot(q(), name)
		} else {
			callee = luaast.Ident(name)
		}
	default:
		if b, isBase := recv.(*resolved.Base); isBase {
			base := b.StaticType()
			if base == nil {
				base = m.ContainingType
			}
			callee = luaast.Dot(t.typeExpr(base), name)
			lead = append(lead, thisIdent())
			break
		}
		r, err := t.receiver(recv, false)
		if err != nil {
			return out, err
		}
		callee = &luaast.MemberAccess{Target: r(), Name: luaast.Ident(name), Colon: true}
	}
	values, refs, err := t.bindArgs(v.Pos, m, v.Args)
	if err != nil {
		return out, err
	}
	out.call, out.refs = luaast.Call(callee, append(lead, values...)...), refs
	return out, nil
}

// discardName receives the unused result of a call that writes back
// by-reference arguments.
const discardName = "_"

// lowerInvocation lowers a call. In statement position the call is emitted
// and nil returned.
func (t *Transformer) lowerInvocation(v *resolved.Invocation, stmt bool) (luaast.Expr, error) {
	c, err := t.buildInvocation(v)
	if err != nil {
		return nil, err
	}
	if len(c.refs) == 0 {
		if stmt {
			t.emit(&luaast.ExprStmt{X: c.call})
			return nil, nil
		}
		return c.call, nil
	}
	if stmt {
		var result luaast.Expr
		if !c.void {
			t.emit(luaast.Local(luaast.Ident(discardName), nil))
			result = luaast.Ident(discardName)
		}
		return nil, t.writeBack(c, result)
	}
	if c.void {
		return nil, t.shapeErr(v.Pos, "void call used as a value")
	}
	tmp, err := t.localTemp(v.Pos, nil)
	if err != nil {
		return nil, err
	}
	if err := t.writeBack(c, tmp); err != nil {
		return nil, err
	}
	return tmp, nil
}

// writeBack emits `result, ref1, ref2 = call(...)`. Locations that cannot be
// assigned directly receive the value through a temporary.
func (t *Transformer) writeBack(c loweredCall, result luaast.Expr) error {
	var lefts []luaast.Expr
	if result != nil {
		lefts = append(lefts, result)
	}
	var after []luaast.Stmt
	for _, lv := range c.refs {
		if lv.plain != nil {
			lefts = append(lefts, lv.plain())
			continue
		}
		tmp, err := t.localTemp(c.pos, nil)
		if err != nil {
			return err
		}
		lefts = append(lefts, tmp)
		after = append(after, lv.set(tmp))
	}
	t.emit(&luaast.MultipleAssignment{Lefts: lefts, Rights: []luaast.Expr{c.call}})
	t.emit(after...)
	return nil
}

// refCall reports whether e is a call that writes back by-reference
// arguments, and builds it if so.
func (t *Transformer) refCall(e resolved.Expr) (loweredCall, bool, error) {
	for {
		p, ok := e.(*resolved.Parenthesized)
		if !ok {
			break
		}
		e = p.Inner
	}
	inv, ok := e.(*resolved.Invocation)
	if !ok || inv.Method == nil || inv.Method.RefOrOutCount() == 0 {
		return loweredCall{}, false, nil
	}
	hasRef := false
	for _, a := range inv.Args {
		if a.RefKind != resolved.RefNone {
			hasRef = true
		}
	}
	if !hasRef {
		return loweredCall{}, false, nil
	}
	c, err := t.buildInvocation(inv)
	if err != nil {
		return loweredCall{}, false, err
	}
	return c, len(c.refs) > 0, nil
}
