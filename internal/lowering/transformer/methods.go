package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
)

const valueName = "value"

// funcSpec describes a function body to lower.
type funcSpec struct {
	static     bool
	params     []*resolved.Parameter
	extra      []*luaast.Identifier // trailing parameters: setter value, type parameters
	returnType *resolved.Type
	void       bool
	body       *resolved.Block
	exprBody   resolved.Expr
}

func (s *funcSpec) paramIdents() []*luaast.Identifier {
	var out []*luaast.Identifier
	if !s.static {
		out = append(out, thisIdent())
	}
	for _, p := range s.params {
		out = append(out, luaast.Ident(identName(p.Name)))
	}
	for _, e := range s.extra {
		out = append(out, luaast.Ident(e.Name))
	}
	return out
}

// lowerFunction lowers a method, accessor or operator body. By-reference
// parameters are returned after the return value on every exit.
func (t *Transformer) lowerFunction(pos resolved.Pos, s *funcSpec) (*luaast.Function, error) {
	fn := &luaast.Function{Params: s.paramIdents(), Body: &luaast.Block{}}
	if s.body != nil && anyYield(s.body.Stmts) {
		return t.lowerIterator(s, fn)
	}
	mi := &methodInfo{}
	for _, p := range s.params {
		if p.RefKind != resolved.RefNone {
			mi.refs = append(mi.refs, luaast.Ident(identName(p.Name)))
		}
	}
	pop := t.pushFunction(&functionFrame{fn: fn, method: mi})
	defer pop()
	err := t.inBlock(fn.Body, func() error {
		switch {
		case s.body != nil:
			if err := t.lowerStmts(s.body.Stmts); err != nil {
				return err
			}
		case s.void:
			if err := t.lowerExprStmt(s.exprBody); err != nil {
				return err
			}
		default:
			value, err := t.lowerExpr(s.exprBody)
			if err != nil {
				return err
			}
			refs, err := t.refResults(pos)
			if err != nil {
				return err
			}
			t.emit(&luaast.Return{Values: append([]luaast.Expr{value}, refs...)})
		}
		if len(mi.refs) > 0 && s.void && !endsWithReturn(fn.Body) {
			refs, err := t.refResults(pos)
			if err != nil {
				return err
			}
			t.emit(&luaast.Return{Values: refs})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func endsWithReturn(b *luaast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*luaast.Return)
	return ok
}

// anyYield reports a yield statement outside nested lambdas.
func anyYield(stmts []resolved.Stmt) bool {
	for _, s := range stmts {
		if containsYield(s) {
			return true
		}
	}
	return false
}

func containsYield(s resolved.Stmt) bool {
	switch v := s.(type) {
	case *resolved.Yield:
		return true
	case *resolved.Block:
		return anyYield(v.Stmts)
	case *resolved.If:
		return containsYield(v.Then) || containsYield(v.Else)
	case *resolved.While:
		return containsYield(v.Body)
	case *resolved.Do:
		return containsYield(v.Body)
	case *resolved.For:
		return containsYield(v.Body)
	case *resolved.ForEach:
		return containsYield(v.Body)
	case *resolved.Switch:
		for _, sec := range v.Sections {
			if anyYield(sec.Body) {
				return true
			}
		}
	case *resolved.Labeled:
		return containsYield(v.Body)
	case *resolved.Checked:
		return anyYield(v.Body.Stmts)
	}
	return false
}

// lowerIterator moves the body into a closure over the parameters and
// returns the runtime iterator built from it:
// `return System.yieldIEnumerable(function (...) body end, T, ...)`.
func (t *Transformer) lowerIterator(s *funcSpec, outer *luaast.Function) (*luaast.Function, error) {
	inner, err := t.lowerIteratorBody(s)
	if err != nil {
		return nil, err
	}
	kind := "IEnumerable"
	var elem luaast.Expr = luaast.Dot(luaast.Ident(systemName), "Object")
	if rt := s.returnType; rt != nil {
		if rt.Name != "" {
			kind = rt.Name
		}
		if len(rt.TypeArgs) == 1 {
			elem = t.typeExpr(rt.TypeArgs[0])
		}
	}
	args := []luaast.Expr{inner, elem}
	for _, p := range s.paramIdents() {
		args = append(args, p)
	}
	outer.Body.Add(&luaast.Return{Values: []luaast.Expr{luaast.Call(system("yield"+kind), args...)}})
	return outer, nil
}

func (t *Transformer) lowerIteratorBody(s *funcSpec) (*luaast.Function, error) {
	inner := &luaast.Function{Params: s.paramIdents(), Body: &luaast.Block{}}
	pop := t.pushFunction(&functionFrame{fn: inner})
	defer pop()
	if err := t.inBlock(inner.Body, func() error { return t.lowerStmts(s.body.Stmts) }); err != nil {
		return nil, err
	}
	return inner, nil
}

func typeParamIdents(names []string) []*luaast.Identifier {
	out := make([]*luaast.Identifier, len(names))
	for i, n := range names {
		out[i] = luaast.Ident(identName(n))
	}
	return out
}

func (t *Transformer) lowerMethod(v *resolved.MethodDecl) error {
	sym := v.Symbol
	if sym.IsMainEntryPoint() {
		if err := t.env.Program.SetEntryPoint(sym); err != nil {
			return err
		}
	}
	m := &luaast.Method{
		Name:     luaast.Ident(memberName(sym)),
		Static:   sym.IsStatic,
		Private:  sym.IsPrivate,
		Abstract: sym.IsAbstract,
	}
	if !sym.IgnoreGeneric {
		m.TypeParams = typeParamIdents(v.TypeParams)
	}
	if v.Body != nil || v.ExprBody != nil {
		fn, err := t.lowerFunction(v.Pos, &funcSpec{
			static:     sym.IsStatic,
			params:     sym.Parameters,
			extra:      m.TypeParams,
			returnType: sym.Type,
			void:       sym.ReturnsVoid,
			body:       v.Body,
			exprBody:   v.ExprBody,
		})
		if err != nil {
			return err
		}
		m.Fn = fn
	}
	return t.addMember(m)
}

// lowerCtor lowers an instance or static constructor. Instance
// constructors that do not delegate to another constructor of the same type
// get the field initializer call once the whole type has been seen.
func (t *Transformer) lowerCtor(v *resolved.ConstructorDecl) error {
	frame, err := t.curType()
	if err != nil {
		return err
	}
	if v.Symbol.IsStatic {
		return t.lowerStaticCtor(frame, v)
	}
	return t.lowerInstanceCtor(frame, v)
}

func (t *Transformer) lowerStaticCtor(frame *typeFrame, v *resolved.ConstructorDecl) error {
	fn := &luaast.Function{Params: []*luaast.Identifier{thisIdent()}, Body: &luaast.Block{}}
	pop := t.pushFunction(&functionFrame{fn: fn, isStaticCtor: true})
	defer pop()
	err := t.inBlock(fn.Body, func() error {
		if v.Body == nil {
			return nil
		}
		return t.lowerStmts(v.Body.Stmts)
	})
	if err != nil {
		return err
	}
	frame.staticCtor = &luaast.Method{Name: luaast.Ident(staticCtorName), Fn: fn, Static: true}
	frame.decl.AddMember(frame.staticCtor)
	return nil
}

func (t *Transformer) lowerInstanceCtor(frame *typeFrame, v *resolved.ConstructorDecl) error {
	sym := v.Symbol
	fn := &luaast.Function{Params: (&funcSpec{params: sym.Parameters}).paramIdents(), Body: &luaast.Block{}}
	info := &ctorInfo{fn: fn}
	pop := t.pushFunction(&functionFrame{fn: fn, isCtor: true})
	defer pop()
	err := t.inBlock(fn.Body, func() error {
		if init := v.Initializer; init != nil {
			owner := frame.sym
			if init.IsBase {
				owner = frame.sym.Base
				if init.Ctor != nil && init.Ctor.ContainingType != nil {
					owner = init.Ctor.ContainingType
				}
			}
			args, err := t.lowerArgs(v.Pos, init.Ctor, init.Args)
			if err != nil {
				return err
			}
			name := ctorName
			if init.Ctor != nil {
				name = ctorMemberName(init.Ctor)
			}
			t.emit(&luaast.ExprStmt{X: luaast.Call(luaast.Dot(t.typeExpr(owner), name), append([]luaast.Expr{thisIdent()}, args...)...)})
			info.chainThis = !init.IsBase
		} else if call := t.implicitBaseCtor(frame.sym); call != nil {
			t.emit(call)
		}
		info.initAt = len(fn.Body.Stmts)
		if v.Body == nil {
			return nil
		}
		return t.lowerStmts(v.Body.Stmts)
	})
	if err != nil {
		return err
	}
	frame.ctors = append(frame.ctors, info)
	frame.decl.AddMember(&luaast.Method{Name: luaast.Ident(ctorMemberName(sym)), Fn: fn, Private: sym.IsPrivate})
	return nil
}

// implicitBaseCtor is the call a constructor without initializer makes to
// the parameterless constructor of a source base type.
func (t *Transformer) implicitBaseCtor(sym *resolved.Type) luaast.Stmt {
	base := sym.Base
	if base == nil || !base.FromSource || base.CtorCount == 0 {
		return nil
	}
	return t.baseCtorCall(base)
}

func (t *Transformer) baseCtorCall(base *resolved.Type) luaast.Stmt {
	name := ctorName
	if base.CtorCount > 1 {
		name += "1"
	}
	return &luaast.ExprStmt{X: luaast.Call(luaast.Dot(t.typeExpr(base), name), thisIdent())}
}

// lowerField emits fields. Constants are folded at their use sites and only
// long strings keep a field.
func (t *Transformer) lowerField(v *resolved.FieldDecl) error {
	for _, d := range v.Vars {
		sym := d.Symbol
		info := t.classifyMember(sym)
		if v.IsConst || sym.IsConst {
			if foldConst(sym) == nil && sym.Constant != nil {
				err := t.addMember(&luaast.Field{
					Name: luaast.Ident(info.Name), Value: constExpr(sym.Constant),
					Static: true, Private: sym.IsPrivate, ReadOnly: true,
				})
				if err != nil {
					return err
				}
			}
			continue
		}
		if v.IsEvent && info.Kind == registry.MemberAccessor {
			value, err := t.initValue(sym, d.Init)
			if err != nil {
				return err
			}
			err = t.addMember(&luaast.Property{
				Name: luaast.Ident(info.Name), Static: sym.IsStatic, Private: sym.IsPrivate, IsEvent: true,
				Value: value,
			})
			if err != nil {
				return err
			}
			continue
		}
		if err := t.addField(sym, info.Name, d.Init, sym.IsReadOnly); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) addField(sym *resolved.Symbol, name string, init resolved.Expr, readOnly bool) error {
	value, err := t.initValue(sym, init)
	if err != nil {
		return err
	}
	return t.addMember(&luaast.Field{
		Name:     luaast.Ident(name),
		Value:    value,
		Static:   sym.IsStatic,
		Private:  sym.IsPrivate,
		ReadOnly: readOnly,
	})
}

// initValue is the declared value of a field or auto property. Initializers
// that are not constant run in the init function instead and the member
// starts at its default value.
func (t *Transformer) initValue(sym *resolved.Symbol, init resolved.Expr) (luaast.Expr, error) {
	if init == nil {
		return t.defaultValue(sym.Type), nil
	}
	if c := init.ConstValue(); c != nil {
		return constExpr(c), nil
	}
	if l, ok := init.(*resolved.Literal); ok {
		return lowerLiteral(l), nil
	}
	if err := t.deferInit(sym, init); err != nil {
		return nil, err
	}
	return t.defaultValue(sym.Type), nil
}

// deferInit appends `member = init` to the instance or static init function.
func (t *Transformer) deferInit(sym *resolved.Symbol, init resolved.Expr) error {
	frame, err := t.curType()
	if err != nil {
		return err
	}
	slot := &frame.instanceInit
	if sym.IsStatic {
		slot = &frame.staticInit
	}
	if *slot == nil {
		*slot = &functionFrame{
			fn:           &luaast.Function{Params: []*luaast.Identifier{thisIdent()}, Body: &luaast.Block{}},
			isStaticCtor: sym.IsStatic,
			isCtor:       !sym.IsStatic,
		}
	}
	ff := *slot
	pop := t.pushFunction(ff)
	defer pop()
	return t.inBlock(ff.fn.Body, func() error {
		value, err := t.lowerExpr(init)
		if err != nil {
			return err
		}
		lv, err := t.memberLvalue(nil, sym, false)
		if err != nil {
			return err
		}
		t.emit(lv.set(value))
		if sym.IsStatic && sym.IsReadOnly {
			frame.decl.AddStaticReadOnlyAssigned(t.classifyMember(sym).Name)
		}
		return nil
	})
}

// isAutoProperty reports a property whose accessors are all implicit.
func isAutoProperty(v *resolved.PropertyDecl) bool {
	if v.ExprBody != nil {
		return false
	}
	for _, a := range v.Accessors {
		if a.Body != nil {
			return false
		}
	}
	return true
}

func (t *Transformer) lowerProperty(v *resolved.PropertyDecl) error {
	sym := v.Symbol
	info := t.classifyMember(sym)
	if info.Kind == registry.MemberField {
		return t.addField(sym, info.Name, v.Init, sym.IsReadOnly || v.IsReadOnlyAuto())
	}
	if sym.IsAbstract || sym.ContainingType.IsInterface() {
		return nil
	}
	p := &luaast.Property{
		Name:    luaast.Ident(info.Name),
		Static:  sym.IsStatic,
		Private: sym.IsPrivate,
		HasSet:  sym.HasSetter,
	}
	var err error
	if v.ExprBody != nil {
		p.Get, err = t.lowerFunction(v.Pos, &funcSpec{static: sym.IsStatic, returnType: sym.Type, exprBody: v.ExprBody})
		if err != nil {
			return err
		}
		p.HasSet = false
	}
	for _, a := range v.Accessors {
		if a.Body == nil {
			continue
		}
		switch a.Kind {
		case resolved.AccessorGet:
			p.Get, err = t.lowerFunction(v.Pos, &funcSpec{static: sym.IsStatic, returnType: sym.Type, body: a.Body})
		case resolved.AccessorSet:
			p.Set, err = t.lowerFunction(v.Pos, &funcSpec{static: sym.IsStatic, extra: []*luaast.Identifier{luaast.Ident(valueName)}, void: true, body: a.Body})
			p.HasSet = true
		}
		if err != nil {
			return err
		}
	}
	// The backing value of an auto accessor pair starts at the type's
	// default, like the field it would otherwise be.
	if v.Init != nil || isAutoProperty(v) {
		if p.Value, err = t.initValue(sym, v.Init); err != nil {
			return err
		}
	}
	return t.addMember(p)
}

func (t *Transformer) lowerEvent(v *resolved.EventDecl) error {
	sym := v.Symbol
	info := t.classifyMember(sym)
	if info.Kind == registry.MemberField {
		return t.addField(sym, info.Name, nil, false)
	}
	if sym.IsAbstract || sym.ContainingType.IsInterface() {
		return nil
	}
	p := &luaast.Property{Name: luaast.Ident(info.Name), Static: sym.IsStatic, Private: sym.IsPrivate, IsEvent: true}
	for _, a := range v.Accessors {
		if a.Body == nil {
			continue
		}
		fn, err := t.lowerFunction(v.Pos, &funcSpec{static: sym.IsStatic, extra: []*luaast.Identifier{luaast.Ident(valueName)}, void: true, body: a.Body})
		if err != nil {
			return err
		}
		switch a.Kind {
		case resolved.AccessorAdd:
			p.Get = fn
		case resolved.AccessorRemove:
			p.Set = fn
		}
	}
	return t.addMember(p)
}

// lowerIndexer emits the accessors as the get and set methods element
// access dispatches to.
func (t *Transformer) lowerIndexer(v *resolved.IndexerDecl) error {
	sym := v.Symbol
	if sym.IsAbstract || sym.ContainingType.IsInterface() {
		return nil
	}
	for _, a := range v.Accessors {
		if a.Body == nil {
			continue
		}
		spec := &funcSpec{params: sym.Parameters, returnType: sym.Type, body: a.Body}
		name := "get"
		if a.Kind == resolved.AccessorSet {
			name = "set"
			spec.extra = []*luaast.Identifier{luaast.Ident(valueName)}
			spec.void = true
		}
		fn, err := t.lowerFunction(v.Pos, spec)
		if err != nil {
			return err
		}
		if err := t.addMember(&luaast.Method{Name: luaast.Ident(name), Fn: fn, Private: sym.IsPrivate}); err != nil {
			return err
		}
	}
	return nil
}
