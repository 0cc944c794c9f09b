package wire

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// Decode reads a program written by Encode.
func Decode(r io.Reader) (*resolved.Program, error) {
	var p Program
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, lowerr.NewShapeError(fmt.Sprintf("wire: malformed program: %v", err))
	}
	return ToResolved(&p)
}

// ToResolved rebuilds the resolved program. Every referenced ID must be in
// range and every node must carry the fields its kind requires.
func ToResolved(p *Program) (prog *resolved.Program, err error) {
	if p.Schema != SchemaVersion {
		return nil, lowerr.NewShapeError(fmt.Sprintf("wire: schema version %d, want %d", p.Schema, SchemaVersion))
	}
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*lowerr.ShapeError)
			if !ok {
				panic(r)
			}
			prog, err = nil, se
		}
	}()

	d := &decoder{p: p}
	d.tables()
	prog = &resolved.Program{}
	for _, u := range p.Units {
		d.file = u.Path
		unit := &resolved.CompilationUnit{Path: u.Path}
		for _, n := range u.Decls {
			unit.Members = append(unit.Members, d.decl(n))
		}
		prog.Units = append(prog.Units, unit)
	}
	return prog, nil
}

type decoder struct {
	p     *Program
	types []*resolved.Type
	syms  []*resolved.Symbol
	file  string
}

func (d *decoder) failf(n *Node, format string, args ...any) {
	msg := "wire: " + fmt.Sprintf(format, args...)
	if n == nil {
		panic(lowerr.NewShapeError(msg))
	}
	panic(lowerr.NewShapeErrorAt(lowerr.Location{File: d.file, Line: n.Line, Column: n.Col}, msg))
}

// tables allocates every type and symbol first so that links between them
// can be filled in any order.
func (d *decoder) tables() {
	d.types = make([]*resolved.Type, len(d.p.Types))
	for i := range d.types {
		d.types[i] = &resolved.Type{}
	}
	d.syms = make([]*resolved.Symbol, len(d.p.Symbols))
	for i := range d.syms {
		d.syms[i] = &resolved.Symbol{}
	}

	for i, rec := range d.p.Types {
		if rec == nil {
			d.failf(nil, "type %d is empty", i+1)
		}
		*d.types[i] = resolved.Type{
			Name:          rec.Name,
			FullName:      rec.FullName,
			Namespace:     rec.Namespace,
			Kind:          resolved.TypeKind(rec.Kind),
			Special:       resolved.SpecialType(rec.Special),
			Nullable:      rec.Nullable,
			Base:          d.typ(rec.Base),
			Interfaces:    d.typeList(rec.Interfaces),
			TypeArgs:      d.typeList(rec.TypeArgs),
			TypeParams:    rec.TypeParams,
			Elem:          d.typ(rec.Elem),
			HasStaticCtor: rec.HasStaticCtor,
			CtorCount:     rec.CtorCount,
			FromSource:    rec.FromSource,
			Fragments:     rec.Fragments,
		}
	}

	for i, rec := range d.p.Symbols {
		if rec == nil {
			d.failf(nil, "symbol %d is empty", i+1)
		}
		s := d.syms[i]
		*s = resolved.Symbol{
			Kind:           resolved.SymbolKind(rec.Kind),
			Name:           rec.Name,
			OverloadIndex:  rec.OverloadIndex,
			TypeArgs:       d.typeList(rec.TypeArgs),
			ReducedFrom:    d.sym(rec.ReducedFrom),
			ContainingType: d.typ(rec.Containing),
			Type:           d.typ(rec.Type),
			Constant:       constant(rec.Constant),
		}
		for _, f := range flagFields(s) {
			*f.ptr = rec.Flags&f.flag != 0
		}
		for _, pr := range rec.Params {
			s.Parameters = append(s.Parameters, &resolved.Parameter{
				Name:       pr.Name,
				Type:       d.typ(pr.Type),
				RefKind:    resolved.RefKind(pr.Ref),
				IsParams:   pr.IsParams,
				HasDefault: pr.HasDefault,
				Default:    constant(pr.Default),
			})
		}
	}
}

func (d *decoder) typ(id uint32) *resolved.Type {
	if id == 0 {
		return nil
	}
	if int(id) > len(d.types) {
		d.failf(nil, "type id %d out of range", id)
	}
	return d.types[id-1]
}

func (d *decoder) typeList(ids []uint32) []*resolved.Type {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*resolved.Type, len(ids))
	for i, id := range ids {
		out[i] = d.typ(id)
	}
	return out
}

func (d *decoder) sym(id uint32) *resolved.Symbol {
	if id == 0 {
		return nil
	}
	if int(id) > len(d.syms) {
		d.failf(nil, "symbol id %d out of range", id)
	}
	return d.syms[id-1]
}

func constant(c *Const) *resolved.Constant {
	if c == nil {
		return nil
	}
	return &resolved.Constant{Value: value(c)}
}

func value(c *Const) any {
	switch c.Kind {
	case ConstBool:
		return c.Bool
	case ConstInt:
		return c.Int
	case ConstUint:
		return c.Uint
	case ConstFloat:
		return c.Float
	case ConstString:
		return c.Str
	case ConstChar:
		return rune(c.Int)
	}
	return nil
}

func (d *decoder) pos(n *Node) resolved.Pos {
	return resolved.Pos{File: d.file, Line: n.Line, Column: n.Col}
}

// kid returns child i, or nil when the list is shorter.
func kid(n *Node, i int) *Node {
	if i < len(n.Kids) {
		return n.Kids[i]
	}
	return nil
}

func (d *decoder) exprBase(n *Node) resolved.ExprBase {
	return resolved.ExprBase{Pos: d.pos(n), Type: d.typ(n.Type), Const: constant(n.Const)}
}

func (d *decoder) expr(n *Node) resolved.Expr {
	if n == nil {
		return nil
	}
	b := d.exprBase(n)
	switch n.Kind {
	case KindLiteral:
		var v any
		if n.Value != nil {
			v = value(n.Value)
		}
		return &resolved.Literal{ExprBase: b, Value: v, Text: n.Text}
	case KindIdent:
		return &resolved.Identifier{ExprBase: b, Name: n.Name, Symbol: d.sym(n.Sym)}
	case KindThis:
		return &resolved.This{ExprBase: b}
	case KindBase:
		return &resolved.Base{ExprBase: b}
	case KindTypeName:
		return &resolved.TypeName{ExprBase: b, Target: d.typ(n.Target)}
	case KindMember:
		return &resolved.MemberAccess{ExprBase: b, Target: d.expr(kid(n, 0)), Name: n.Name, Symbol: d.sym(n.Sym)}
	case KindCall:
		return &resolved.Invocation{ExprBase: b, Target: d.expr(kid(n, 0)), Args: d.args(n.Args), Method: d.sym(n.Sym)}
	case KindBinary:
		return &resolved.Binary{ExprBase: b, Op: n.Op, Left: d.expr(kid(n, 0)), Right: d.expr(kid(n, 1)), Operator: d.sym(n.Sym)}
	case KindUnary:
		return &resolved.Unary{ExprBase: b, Op: n.Op, Operand: d.expr(kid(n, 0)), Postfix: n.Flag}
	case KindAssign:
		return &resolved.Assignment{ExprBase: b, Op: n.Op, Left: d.expr(kid(n, 0)), Right: d.expr(kid(n, 1))}
	case KindCond:
		return &resolved.Conditional{ExprBase: b, Cond: d.expr(kid(n, 0)), WhenTrue: d.expr(kid(n, 1)), WhenFalse: d.expr(kid(n, 2))}
	case KindCast:
		return &resolved.Cast{ExprBase: b, Target: d.typ(n.Target), Operand: d.expr(kid(n, 0)), Conversion: d.sym(n.Sym)}
	case KindParen:
		return &resolved.Parenthesized{ExprBase: b, Inner: d.expr(kid(n, 0))}
	case KindNew:
		return &resolved.ObjectCreation{ExprBase: b, Ctor: d.sym(n.Sym), Args: d.args(n.Args)}
	case KindNewArray:
		return &resolved.ArrayCreation{ExprBase: b, Elem: d.typ(n.Target), Size: d.expr(kid(n, 0)), Items: d.exprs(n.List)}
	case KindIndex:
		return &resolved.ElementAccess{ExprBase: b, Target: d.expr(kid(n, 0)), Args: d.args(n.Args), Indexer: d.sym(n.Sym)}
	case KindLambda:
		l := &resolved.Lambda{ExprBase: b, Body: d.block(kid(n, 0)), ExprBody: d.expr(kid(n, 1)), ReturnsVoid: n.Flag}
		for _, id := range n.Params {
			l.Params = append(l.Params, d.sym(id))
		}
		return l
	case KindCheckedExpr:
		return &resolved.CheckedExpr{ExprBase: b, Checked: n.Flag, Inner: d.expr(kid(n, 0))}
	}
	d.failf(n, "%q is not an expression", n.Kind)
	return nil
}

func (d *decoder) exprs(ns []*Node) []resolved.Expr {
	var out []resolved.Expr
	for _, n := range ns {
		out = append(out, d.expr(n))
	}
	return out
}

func (d *decoder) args(as []*ArgRec) []*resolved.Argument {
	var out []*resolved.Argument
	for _, a := range as {
		out = append(out, &resolved.Argument{Name: a.Name, RefKind: resolved.RefKind(a.Ref), Value: d.expr(a.Value)})
	}
	return out
}

func (d *decoder) vars(vs []*VarRec) []*resolved.VarDeclarator {
	var out []*resolved.VarDeclarator
	for _, v := range vs {
		out = append(out, &resolved.VarDeclarator{Symbol: d.sym(v.Sym), Init: d.expr(v.Init)})
	}
	return out
}

func (d *decoder) block(n *Node) *resolved.Block {
	if n == nil {
		return nil
	}
	b, ok := d.stmt(n).(*resolved.Block)
	if !ok {
		d.failf(n, "%q is not a block", n.Kind)
	}
	return b
}

func (d *decoder) stmts(ns []*Node) []resolved.Stmt {
	var out []resolved.Stmt
	for _, n := range ns {
		out = append(out, d.stmt(n))
	}
	return out
}

func (d *decoder) stmt(n *Node) resolved.Stmt {
	if n == nil {
		return nil
	}
	b := resolved.StmtBase{Pos: d.pos(n)}
	switch n.Kind {
	case KindBlock:
		return &resolved.Block{StmtBase: b, Stmts: d.stmts(n.List)}
	case KindExprStmt:
		return &resolved.ExprStmt{StmtBase: b, X: d.expr(kid(n, 0))}
	case KindLocal:
		return d.local(n)
	case KindReturn:
		return &resolved.Return{StmtBase: b, Value: d.expr(kid(n, 0))}
	case KindIf:
		return &resolved.If{StmtBase: b, Cond: d.expr(kid(n, 0)), Then: d.stmt(kid(n, 1)), Else: d.stmt(kid(n, 2))}
	case KindWhile:
		return &resolved.While{StmtBase: b, Cond: d.expr(kid(n, 0)), Body: d.stmt(kid(n, 1))}
	case KindDo:
		return &resolved.Do{StmtBase: b, Body: d.stmt(kid(n, 0)), Cond: d.expr(kid(n, 1))}
	case KindFor:
		f := &resolved.For{StmtBase: b, Inits: d.exprs(n.List), Cond: d.expr(kid(n, 1)), Incrementors: d.exprs(n.Extra), Body: d.stmt(kid(n, 2))}
		if decl := kid(n, 0); decl != nil {
			if decl.Kind != KindLocal {
				d.failf(decl, "for initializer %q is not a declaration", decl.Kind)
			}
			f.Decl = d.local(decl)
		}
		return f
	case KindForEach:
		return &resolved.ForEach{StmtBase: b, Var: d.sym(n.Sym), Collection: d.expr(kid(n, 0)), Body: d.stmt(kid(n, 1))}
	case KindSwitch:
		s := &resolved.Switch{StmtBase: b, Scrutinee: d.expr(kid(n, 0))}
		for _, sec := range n.Sections {
			out := &resolved.SwitchSection{Body: d.stmts(sec.Body)}
			for _, l := range sec.Labels {
				out.Labels = append(out.Labels, &resolved.CaseLabel{Value: d.expr(l)})
			}
			s.Sections = append(s.Sections, out)
		}
		return s
	case KindBreak:
		return &resolved.Break{StmtBase: b}
	case KindContinue:
		return &resolved.Continue{StmtBase: b}
	case KindGoto:
		return &resolved.Goto{StmtBase: b, Kind: resolved.GotoKind(n.Mode), Label: n.Name, Case: d.expr(kid(n, 0))}
	case KindLabeled:
		return &resolved.Labeled{StmtBase: b, Label: n.Name, Body: d.stmt(kid(n, 0))}
	case KindYield:
		return &resolved.Yield{StmtBase: b, Value: d.expr(kid(n, 0)), IsBreak: n.Flag}
	case KindChecked:
		return &resolved.Checked{StmtBase: b, Checked: n.Flag, Body: d.block(kid(n, 0))}
	case KindThrow:
		return &resolved.Throw{StmtBase: b, Value: d.expr(kid(n, 0))}
	case KindEmpty:
		return &resolved.Empty{StmtBase: b}
	}
	d.failf(n, "%q is not a statement", n.Kind)
	return nil
}

func (d *decoder) local(n *Node) *resolved.LocalDecl {
	return &resolved.LocalDecl{StmtBase: resolved.StmtBase{Pos: d.pos(n)}, Vars: d.vars(n.Vars)}
}

func (d *decoder) attrs(as []*AttrRec) []*resolved.Attribute {
	var out []*resolved.Attribute
	for _, a := range as {
		out = append(out, &resolved.Attribute{Type: d.typ(a.Type), Args: d.exprs(a.Args)})
	}
	return out
}

func (d *decoder) accessors(as []*AccessorRec) []*resolved.Accessor {
	var out []*resolved.Accessor
	for _, a := range as {
		out = append(out, &resolved.Accessor{Kind: resolved.AccessorKind(a.Kind), Body: d.block(a.Body), Attributes: d.attrs(a.Attrs)})
	}
	return out
}

func (d *decoder) member(n *Node) resolved.Member {
	if n == nil {
		d.failf(nil, "missing member")
	}
	b := resolved.MemberBase{Pos: d.pos(n)}
	switch n.Kind {
	case KindField:
		return &resolved.FieldDecl{MemberBase: b, Vars: d.vars(n.Vars), IsEvent: n.Flag, IsConst: n.Flag2, Attributes: d.attrs(n.Attrs)}
	case KindProperty:
		return &resolved.PropertyDecl{
			MemberBase: b,
			Symbol:     d.sym(n.Sym),
			Accessors:  d.accessors(n.Accessors),
			ExprBody:   d.expr(kid(n, 0)),
			Init:       d.expr(kid(n, 1)),
			Attributes: d.attrs(n.Attrs),
		}
	case KindEvent:
		return &resolved.EventDecl{MemberBase: b, Symbol: d.sym(n.Sym), Accessors: d.accessors(n.Accessors), Attributes: d.attrs(n.Attrs)}
	case KindIndexer:
		return &resolved.IndexerDecl{MemberBase: b, Symbol: d.sym(n.Sym), Accessors: d.accessors(n.Accessors)}
	case KindMethod:
		return &resolved.MethodDecl{
			MemberBase: b,
			Symbol:     d.sym(n.Sym),
			TypeParams: n.TypeParams,
			Body:       d.block(kid(n, 0)),
			ExprBody:   d.expr(kid(n, 1)),
			Attributes: d.attrs(n.Attrs),
			Doc:        n.Doc,
		}
	case KindCtor:
		c := &resolved.ConstructorDecl{MemberBase: b, Symbol: d.sym(n.Sym), Body: d.block(kid(n, 0))}
		if n.Init != nil {
			c.Initializer = &resolved.CtorInitializer{IsBase: n.Init.IsBase, Ctor: d.sym(n.Init.Ctor), Args: d.args(n.Init.Args)}
		}
		return c
	case KindType:
		return d.typeDecl(n)
	case KindEnum:
		return d.enumDecl(n)
	}
	d.failf(n, "%q is not a member", n.Kind)
	return nil
}

func (d *decoder) typeDecl(n *Node) *resolved.TypeDecl {
	t := &resolved.TypeDecl{
		MemberBase: resolved.MemberBase{Pos: d.pos(n)},
		Symbol:     d.typ(n.Target),
		IsPartial:  n.Flag,
		Attributes: d.attrs(n.Attrs),
		Doc:        n.Doc,
		BaseList:   d.typeList(n.Bases),
	}
	if t.Symbol == nil {
		d.failf(n, "type declaration without a type")
	}
	for _, m := range n.List {
		t.Members = append(t.Members, d.member(m))
	}
	return t
}

func (d *decoder) enumDecl(n *Node) *resolved.EnumDecl {
	e := &resolved.EnumDecl{MemberBase: resolved.MemberBase{Pos: d.pos(n)}, Symbol: d.typ(n.Target), Doc: n.Doc}
	if e.Symbol == nil {
		d.failf(n, "enum declaration without a type")
	}
	for _, m := range n.Enum {
		e.Members = append(e.Members, &resolved.EnumMember{Name: m.Name, Value: constant(m.Value)})
	}
	return e
}

func (d *decoder) decl(n *Node) resolved.Decl {
	if n == nil {
		d.failf(nil, "missing declaration")
	}
	switch n.Kind {
	case KindType:
		return d.typeDecl(n)
	case KindEnum:
		return d.enumDecl(n)
	case KindNamespace:
		ns := &resolved.NamespaceDecl{Pos: d.pos(n), Name: n.Name}
		for _, m := range n.List {
			ns.Members = append(ns.Members, d.decl(m))
		}
		return ns
	}
	d.failf(n, "%q is not a declaration", n.Kind)
	return nil
}
