package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
)

func (t *Transformer) lowerUnit(unit *resolved.CompilationUnit, index int) (*luaast.CompilationUnit, error) {
	pop := t.pushUnit(&unitFrame{path: unit.Path, index: index})
	defer pop()
	members, err := t.lowerDecls(unit.Members)
	if err != nil {
		return nil, err
	}
	return &luaast.CompilationUnit{Path: unit.Path, Members: members}, nil
}

func (t *Transformer) lowerDecls(decls []resolved.Decl) ([]luaast.Decl, error) {
	var out []luaast.Decl
	for _, d := range decls {
		switch v := d.(type) {
		case *resolved.NamespaceDecl:
			members, err := t.lowerDecls(v.Members)
			if err != nil {
				return nil, err
			}
			out = append(out, &luaast.Namespace{Name: v.Name, Members: members})
		case *resolved.TypeDecl:
			decl, err := t.lowerTypeDecl(v)
			if err != nil {
				return nil, err
			}
			if decl != nil {
				out = append(out, decl)
			}
		case *resolved.EnumDecl:
			decl, err := t.lowerEnum(v)
			if err != nil {
				return nil, err
			}
			out = append(out, decl)
		default:
			return nil, t.shapeErr(d.Position(), "unsupported declaration %T", d)
		}
	}
	return out, nil
}

// lowerTypeDecl lowers a class, struct or interface. Fragments of a partial
// type are handed to the coordinator and lowered when the type is merged,
// in which case the result is nil.
func (t *Transformer) lowerTypeDecl(v *resolved.TypeDecl) (*luaast.TypeDeclaration, error) {
	sym := v.Symbol
	unit, err := t.curUnit()
	if err != nil {
		return nil, err
	}
	unit.seq++
	if sym.Fragments > 1 {
		return nil, t.env.Partials.Collect(&registry.Fragment{
			Type:      sym,
			Decl:      v,
			Unit:      unit.path,
			UnitIndex: unit.index,
			Seq:       unit.seq,
			Namespace: sym.Namespace,
		})
	}
	decl, err := t.buildType(sym, v.BaseList, []typePart{{decl: v}})
	if err != nil {
		return nil, err
	}
	t.env.Program.RegisterType(sym, decl)
	return decl, nil
}

// typePart is one declaration contributing members to a type. unit is set
// when the declaration comes from another unit than the current one.
type typePart struct {
	unit *unitFrame
	decl *resolved.TypeDecl
}

func (t *Transformer) buildType(sym *resolved.Type, bases []*resolved.Type, parts []typePart) (*luaast.TypeDeclaration, error) {
	decl := &luaast.TypeDeclaration{
		Name:       luaast.Ident(typeDeclName(sym)),
		Namespace:  sym.Namespace,
		TypeParams: typeParamIdents(sym.TypeParams),
	}
	switch sym.Kind {
	case resolved.KindStruct:
		decl.Kind = luaast.Struct
		decl.StructHelpers = true
	case resolved.KindInterface:
		decl.Kind = luaast.Interface
	}
	extendSelf := false
	for _, b := range bases {
		decl.BaseTypes = append(decl.BaseTypes, t.typeExpr(b))
		extendSelf = extendSelf || resolved.IsExtendSelf(sym, b)
	}
	decl.ForceStaticCtor = extendSelf && !sym.HasStaticCtor

	frame := &typeFrame{sym: sym, decl: decl}
	pop := t.pushType(frame)
	defer pop()
	for _, p := range parts {
		if err := t.lowerPart(decl, p); err != nil {
			return nil, err
		}
	}
	if !sym.IsInterface() {
		t.finishType(frame)
	}
	return decl, nil
}

func (t *Transformer) lowerPart(decl *luaast.TypeDeclaration, p typePart) error {
	if p.unit != nil {
		pop := t.pushUnit(p.unit)
		defer pop()
	}
	decl.Doc = append(decl.Doc, p.decl.Doc...)
	for _, a := range p.decl.Attributes {
		attr, err := t.lowerAttribute(p.decl.Pos, a)
		if err != nil {
			return err
		}
		decl.Attributes = append(decl.Attributes, attr)
	}
	if p.decl.Symbol.IsInterface() {
		return nil
	}
	for _, m := range p.decl.Members {
		if err := t.lowerMember(m); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) lowerAttribute(pos resolved.Pos, a *resolved.Attribute) (luaast.Expr, error) {
	args := make([]luaast.Expr, len(a.Args))
	for i, arg := range a.Args {
		if c := arg.ConstValue(); c != nil {
			args[i] = constExpr(c)
			continue
		}
		tn, ok := arg.(*resolved.TypeName)
		if !ok {
			return nil, t.shapeErr(pos, "argument %d of attribute %s is not a constant", i, a.Type)
		}
		args[i] = t.typeExpr(tn.Target)
	}
	return luaast.Call(t.typeExpr(a.Type), args...), nil
}

func (t *Transformer) lowerMember(m resolved.Member) error {
	switch v := m.(type) {
	case *resolved.FieldDecl:
		return t.lowerField(v)
	case *resolved.PropertyDecl:
		return t.lowerProperty(v)
	case *resolved.EventDecl:
		return t.lowerEvent(v)
	case *resolved.IndexerDecl:
		return t.lowerIndexer(v)
	case *resolved.MethodDecl:
		return t.lowerMethod(v)
	case *resolved.ConstructorDecl:
		return t.lowerCtor(v)
	case *resolved.TypeDecl:
		decl, err := t.lowerTypeDecl(v)
		if err != nil || decl == nil {
			return err
		}
		return t.addMember(decl)
	case *resolved.EnumDecl:
		decl, err := t.lowerEnum(v)
		if err != nil {
			return err
		}
		return t.addMember(decl)
	}
	return t.shapeErr(m.Position(), "unsupported member %T", m)
}

// finishType places the deferred field initializers and adds the
// constructor a type without one needs.
func (t *Transformer) finishType(frame *typeFrame) {
	decl := frame.decl
	if ff := frame.instanceInit; ff != nil {
		decl.AddMember(&luaast.Method{Name: luaast.Ident(initName), Fn: ff.fn, Private: true})
		for _, c := range frame.ctors {
			if c.chainThis {
				continue
			}
			body := c.fn.Body
			stmts := make([]luaast.Stmt, 0, len(body.Stmts)+1)
			stmts = append(stmts, body.Stmts[:c.initAt]...)
			stmts = append(stmts, initCall())
			body.Stmts = append(stmts, body.Stmts[c.initAt:]...)
		}
	}
	if ff := frame.staticInit; ff != nil {
		if frame.staticCtor == nil {
			frame.staticCtor = &luaast.Method{
				Name:   luaast.Ident(staticCtorName),
				Fn:     &luaast.Function{Params: []*luaast.Identifier{thisIdent()}, Body: &luaast.Block{}},
				Static: true,
			}
			decl.AddMember(frame.staticCtor)
		}
		body := frame.staticCtor.Fn.Body
		body.Stmts = append(append([]luaast.Stmt(nil), ff.fn.Body.Stmts...), body.Stmts...)
	}
	if frame.staticCtor != nil {
		decl.ForceStaticCtor = false
	}
	if len(frame.ctors) == 0 {
		t.syntheticCtor(frame)
	}
}

func initCall() luaast.Stmt {
	return &luaast.ExprStmt{X: luaast.Call(&luaast.MemberAccess{Target: thisIdent(), Name: luaast.Ident(initName), Colon: true})}
}

// syntheticCtor adds a parameterless constructor to a type declaring none,
// when its base constructor or its field initializers have to run.
func (t *Transformer) syntheticCtor(frame *typeFrame) {
	base := frame.sym.Base
	hasInit := frame.instanceInit != nil
	needBase := false
	if base != nil {
		if hasInit {
			needBase = base.CtorCount > 0
		} else {
			needBase = base.HasStaticCtor || base.CtorCount > 1
		}
	}
	if !needBase && !hasInit {
		return
	}
	fn := &luaast.Function{Params: []*luaast.Identifier{thisIdent()}, Body: &luaast.Block{}}
	if needBase {
		fn.Body.Add(t.baseCtorCall(base))
	}
	if hasInit {
		fn.Body.Add(initCall())
	}
	frame.decl.AddMember(&luaast.Method{Name: luaast.Ident(ctorName), Fn: fn})
}

func (t *Transformer) lowerEnum(v *resolved.EnumDecl) (*luaast.EnumDeclaration, error) {
	unit, err := t.curUnit()
	if err != nil {
		return nil, err
	}
	unit.seq++
	sym := v.Symbol
	decl := &luaast.EnumDeclaration{
		Name:      luaast.Ident(typeDeclName(sym)),
		Namespace: sym.Namespace,
		Doc:       v.Doc,
	}
	for _, m := range v.Members {
		decl.Values = append(decl.Values, &luaast.EnumValue{Name: luaast.Ident(identName(m.Name)), Value: constExpr(m.Value)})
	}
	t.env.Program.RegisterEnum(sym, decl)
	return decl, nil
}
