package wire

import (
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"martianoff/sharplua/internal/lowering/resolved"
)

// Encode writes prog to w.
func Encode(w io.Writer, prog *resolved.Program) error {
	p, err := FromResolved(prog)
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(p)
}

// FromResolved builds the wire form of prog.
func FromResolved(prog *resolved.Program) (*Program, error) {
	e := &encoder{
		prog:  &Program{Schema: SchemaVersion},
		types: make(map[*resolved.Type]uint32),
		syms:  make(map[*resolved.Symbol]uint32),
	}
	for _, u := range prog.Units {
		rec := &UnitRec{Path: u.Path}
		for _, d := range u.Members {
			rec.Decls = append(rec.Decls, e.decl(d))
		}
		e.prog.Units = append(e.prog.Units, rec)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.prog, nil
}

type encoder struct {
	prog  *Program
	types map[*resolved.Type]uint32
	syms  map[*resolved.Symbol]uint32
	err   error
}

func (e *encoder) id(n int) uint32 {
	id, err := safecast.Conv[uint32](n)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("wire: table too large: %w", err)
	}
	return id
}

// typ interns t. The ID is taken before the fields are visited so that
// cyclic references terminate.
func (e *encoder) typ(t *resolved.Type) uint32 {
	if t == nil {
		return 0
	}
	if id, ok := e.types[t]; ok {
		return id
	}
	rec := &TypeRec{}
	e.prog.Types = append(e.prog.Types, rec)
	id := e.id(len(e.prog.Types))
	e.types[t] = id

	*rec = TypeRec{
		Name:          t.Name,
		FullName:      t.FullName,
		Namespace:     t.Namespace,
		Kind:          e.small(int(t.Kind)),
		Special:       e.small(int(t.Special)),
		Nullable:      t.Nullable,
		Base:          e.typ(t.Base),
		Interfaces:    e.typeList(t.Interfaces),
		TypeArgs:      e.typeList(t.TypeArgs),
		TypeParams:    t.TypeParams,
		Elem:          e.typ(t.Elem),
		HasStaticCtor: t.HasStaticCtor,
		CtorCount:     t.CtorCount,
		FromSource:    t.FromSource,
		Fragments:     t.Fragments,
	}
	return id
}

func (e *encoder) small(n int) uint8 {
	v, err := safecast.Conv[uint8](n)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("wire: enumeration value %d out of range: %w", n, err)
	}
	return v
}

func (e *encoder) typeList(ts []*resolved.Type) []uint32 {
	if len(ts) == 0 {
		return nil
	}
	out := make([]uint32, len(ts))
	for i, t := range ts {
		out[i] = e.typ(t)
	}
	return out
}

func (e *encoder) sym(s *resolved.Symbol) uint32 {
	if s == nil {
		return 0
	}
	if id, ok := e.syms[s]; ok {
		return id
	}
	rec := &SymbolRec{}
	e.prog.Symbols = append(e.prog.Symbols, rec)
	id := e.id(len(e.prog.Symbols))
	e.syms[s] = id

	var flags SymbolFlag
	for _, f := range flagFields(s) {
		if *f.ptr {
			flags |= f.flag
		}
	}
	*rec = SymbolRec{
		Kind:          e.small(int(s.Kind)),
		Name:          s.Name,
		Flags:         flags,
		OverloadIndex: s.OverloadIndex,
		TypeArgs:      e.typeList(s.TypeArgs),
		ReducedFrom:   e.sym(s.ReducedFrom),
		Containing:    e.typ(s.ContainingType),
		Type:          e.typ(s.Type),
		Constant:      constRec(s.Constant),
	}
	for _, p := range s.Parameters {
		rec.Params = append(rec.Params, &ParamRec{
			Name:       p.Name,
			Type:       e.typ(p.Type),
			Ref:        e.small(int(p.RefKind)),
			IsParams:   p.IsParams,
			HasDefault: p.HasDefault,
			Default:    constRec(p.Default),
		})
	}
	return id
}

func (e *encoder) symList(ss []*resolved.Symbol) []uint32 {
	out := make([]uint32, len(ss))
	for i, s := range ss {
		out[i] = e.sym(s)
	}
	return out
}

func constRec(c *resolved.Constant) *Const {
	if c == nil {
		return nil
	}
	return valueRec(c.Value)
}

func valueRec(v any) *Const {
	switch x := v.(type) {
	case nil:
		return &Const{Kind: ConstNil}
	case bool:
		return &Const{Kind: ConstBool, Bool: x}
	case int64:
		return &Const{Kind: ConstInt, Int: x}
	case uint64:
		return &Const{Kind: ConstUint, Uint: x}
	case float64:
		return &Const{Kind: ConstFloat, Float: x}
	case string:
		return &Const{Kind: ConstString, Str: x}
	case rune:
		return &Const{Kind: ConstChar, Int: int64(x)}
	}
	return &Const{Kind: ConstString, Str: fmt.Sprint(v)}
}

func at(kind NodeKind, p resolved.Pos) *Node {
	return &Node{Kind: kind, Line: p.Line, Col: p.Column}
}

func (e *encoder) exprNode(kind NodeKind, b *resolved.ExprBase) *Node {
	n := at(kind, b.Pos)
	n.Type = e.typ(b.Type)
	n.Const = constRec(b.Const)
	return n
}

func (e *encoder) expr(x resolved.Expr) *Node {
	switch v := x.(type) {
	case nil:
		return nil
	case *resolved.Literal:
		n := e.exprNode(KindLiteral, &v.ExprBase)
		n.Value = valueRec(v.Value)
		n.Text = v.Text
		return n
	case *resolved.Identifier:
		n := e.exprNode(KindIdent, &v.ExprBase)
		n.Name = v.Name
		n.Sym = e.sym(v.Symbol)
		return n
	case *resolved.This:
		return e.exprNode(KindThis, &v.ExprBase)
	case *resolved.Base:
		return e.exprNode(KindBase, &v.ExprBase)
	case *resolved.TypeName:
		n := e.exprNode(KindTypeName, &v.ExprBase)
		n.Target = e.typ(v.Target)
		return n
	case *resolved.MemberAccess:
		n := e.exprNode(KindMember, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Target)}
		n.Name = v.Name
		n.Sym = e.sym(v.Symbol)
		return n
	case *resolved.Invocation:
		n := e.exprNode(KindCall, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Target)}
		n.Args = e.args(v.Args)
		n.Sym = e.sym(v.Method)
		return n
	case *resolved.Binary:
		n := e.exprNode(KindBinary, &v.ExprBase)
		n.Op = v.Op
		n.Kids = []*Node{e.expr(v.Left), e.expr(v.Right)}
		n.Sym = e.sym(v.Operator)
		return n
	case *resolved.Unary:
		n := e.exprNode(KindUnary, &v.ExprBase)
		n.Op = v.Op
		n.Kids = []*Node{e.expr(v.Operand)}
		n.Flag = v.Postfix
		return n
	case *resolved.Assignment:
		n := e.exprNode(KindAssign, &v.ExprBase)
		n.Op = v.Op
		n.Kids = []*Node{e.expr(v.Left), e.expr(v.Right)}
		return n
	case *resolved.Conditional:
		n := e.exprNode(KindCond, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Cond), e.expr(v.WhenTrue), e.expr(v.WhenFalse)}
		return n
	case *resolved.Cast:
		n := e.exprNode(KindCast, &v.ExprBase)
		n.Target = e.typ(v.Target)
		n.Kids = []*Node{e.expr(v.Operand)}
		n.Sym = e.sym(v.Conversion)
		return n
	case *resolved.Parenthesized:
		n := e.exprNode(KindParen, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Inner)}
		return n
	case *resolved.ObjectCreation:
		n := e.exprNode(KindNew, &v.ExprBase)
		n.Args = e.args(v.Args)
		n.Sym = e.sym(v.Ctor)
		return n
	case *resolved.ArrayCreation:
		n := e.exprNode(KindNewArray, &v.ExprBase)
		n.Target = e.typ(v.Elem)
		n.Kids = []*Node{e.expr(v.Size)}
		n.List = e.exprs(v.Items)
		return n
	case *resolved.ElementAccess:
		n := e.exprNode(KindIndex, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Target)}
		n.Args = e.args(v.Args)
		n.Sym = e.sym(v.Indexer)
		return n
	case *resolved.Lambda:
		n := e.exprNode(KindLambda, &v.ExprBase)
		n.Params = e.symList(v.Params)
		n.Kids = []*Node{e.block(v.Body), e.expr(v.ExprBody)}
		n.Flag = v.ReturnsVoid
		return n
	case *resolved.CheckedExpr:
		n := e.exprNode(KindCheckedExpr, &v.ExprBase)
		n.Kids = []*Node{e.expr(v.Inner)}
		n.Flag = v.Checked
		return n
	}
	e.fail("expression %T", x)
	return nil
}

func (e *encoder) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("wire: cannot encode "+format, args...)
	}
}

func (e *encoder) exprs(xs []resolved.Expr) []*Node {
	var out []*Node
	for _, x := range xs {
		out = append(out, e.expr(x))
	}
	return out
}

func (e *encoder) args(as []*resolved.Argument) []*ArgRec {
	var out []*ArgRec
	for _, a := range as {
		out = append(out, &ArgRec{Name: a.Name, Ref: e.small(int(a.RefKind)), Value: e.expr(a.Value)})
	}
	return out
}

func (e *encoder) vars(vs []*resolved.VarDeclarator) []*VarRec {
	var out []*VarRec
	for _, v := range vs {
		out = append(out, &VarRec{Sym: e.sym(v.Symbol), Init: e.expr(v.Init)})
	}
	return out
}

func (e *encoder) block(b *resolved.Block) *Node {
	if b == nil {
		return nil
	}
	return e.stmt(b)
}

func (e *encoder) stmts(ss []resolved.Stmt) []*Node {
	var out []*Node
	for _, s := range ss {
		out = append(out, e.stmt(s))
	}
	return out
}

func (e *encoder) stmt(s resolved.Stmt) *Node {
	switch v := s.(type) {
	case nil:
		return nil
	case *resolved.Block:
		n := at(KindBlock, v.Pos)
		n.List = e.stmts(v.Stmts)
		return n
	case *resolved.ExprStmt:
		n := at(KindExprStmt, v.Pos)
		n.Kids = []*Node{e.expr(v.X)}
		return n
	case *resolved.LocalDecl:
		n := at(KindLocal, v.Pos)
		n.Vars = e.vars(v.Vars)
		return n
	case *resolved.Return:
		n := at(KindReturn, v.Pos)
		n.Kids = []*Node{e.expr(v.Value)}
		return n
	case *resolved.If:
		n := at(KindIf, v.Pos)
		n.Kids = []*Node{e.expr(v.Cond), e.stmt(v.Then), e.stmt(v.Else)}
		return n
	case *resolved.While:
		n := at(KindWhile, v.Pos)
		n.Kids = []*Node{e.expr(v.Cond), e.stmt(v.Body)}
		return n
	case *resolved.Do:
		n := at(KindDo, v.Pos)
		n.Kids = []*Node{e.stmt(v.Body), e.expr(v.Cond)}
		return n
	case *resolved.For:
		n := at(KindFor, v.Pos)
		var decl *Node
		if v.Decl != nil {
			decl = e.stmt(v.Decl)
		}
		n.Kids = []*Node{decl, e.expr(v.Cond), e.stmt(v.Body)}
		n.List = e.exprs(v.Inits)
		n.Extra = e.exprs(v.Incrementors)
		return n
	case *resolved.ForEach:
		n := at(KindForEach, v.Pos)
		n.Sym = e.sym(v.Var)
		n.Kids = []*Node{e.expr(v.Collection), e.stmt(v.Body)}
		return n
	case *resolved.Switch:
		n := at(KindSwitch, v.Pos)
		n.Kids = []*Node{e.expr(v.Scrutinee)}
		for _, sec := range v.Sections {
			rec := &SectionRec{Body: e.stmts(sec.Body)}
			for _, l := range sec.Labels {
				rec.Labels = append(rec.Labels, e.expr(l.Value))
			}
			n.Sections = append(n.Sections, rec)
		}
		return n
	case *resolved.Break:
		return at(KindBreak, v.Pos)
	case *resolved.Continue:
		return at(KindContinue, v.Pos)
	case *resolved.Goto:
		n := at(KindGoto, v.Pos)
		n.Mode = e.small(int(v.Kind))
		n.Name = v.Label
		n.Kids = []*Node{e.expr(v.Case)}
		return n
	case *resolved.Labeled:
		n := at(KindLabeled, v.Pos)
		n.Name = v.Label
		n.Kids = []*Node{e.stmt(v.Body)}
		return n
	case *resolved.Yield:
		n := at(KindYield, v.Pos)
		n.Kids = []*Node{e.expr(v.Value)}
		n.Flag = v.IsBreak
		return n
	case *resolved.Checked:
		n := at(KindChecked, v.Pos)
		n.Kids = []*Node{e.block(v.Body)}
		n.Flag = v.Checked
		return n
	case *resolved.Throw:
		n := at(KindThrow, v.Pos)
		n.Kids = []*Node{e.expr(v.Value)}
		return n
	case *resolved.Empty:
		return at(KindEmpty, v.Pos)
	}
	e.fail("statement %T", s)
	return nil
}

func (e *encoder) attrs(as []*resolved.Attribute) []*AttrRec {
	var out []*AttrRec
	for _, a := range as {
		out = append(out, &AttrRec{Type: e.typ(a.Type), Args: e.exprs(a.Args)})
	}
	return out
}

func (e *encoder) accessors(as []*resolved.Accessor) []*AccessorRec {
	var out []*AccessorRec
	for _, a := range as {
		out = append(out, &AccessorRec{Kind: e.small(int(a.Kind)), Body: e.block(a.Body), Attrs: e.attrs(a.Attributes)})
	}
	return out
}

func (e *encoder) member(m resolved.Member) *Node {
	switch v := m.(type) {
	case *resolved.FieldDecl:
		n := at(KindField, v.Pos)
		n.Vars = e.vars(v.Vars)
		n.Flag = v.IsEvent
		n.Flag2 = v.IsConst
		n.Attrs = e.attrs(v.Attributes)
		return n
	case *resolved.PropertyDecl:
		n := at(KindProperty, v.Pos)
		n.Sym = e.sym(v.Symbol)
		n.Accessors = e.accessors(v.Accessors)
		n.Kids = []*Node{e.expr(v.ExprBody), e.expr(v.Init)}
		n.Attrs = e.attrs(v.Attributes)
		return n
	case *resolved.EventDecl:
		n := at(KindEvent, v.Pos)
		n.Sym = e.sym(v.Symbol)
		n.Accessors = e.accessors(v.Accessors)
		n.Attrs = e.attrs(v.Attributes)
		return n
	case *resolved.IndexerDecl:
		n := at(KindIndexer, v.Pos)
		n.Sym = e.sym(v.Symbol)
		n.Accessors = e.accessors(v.Accessors)
		return n
	case *resolved.MethodDecl:
		n := at(KindMethod, v.Pos)
		n.Sym = e.sym(v.Symbol)
		n.TypeParams = v.TypeParams
		n.Kids = []*Node{e.block(v.Body), e.expr(v.ExprBody)}
		n.Attrs = e.attrs(v.Attributes)
		n.Doc = v.Doc
		return n
	case *resolved.ConstructorDecl:
		n := at(KindCtor, v.Pos)
		n.Sym = e.sym(v.Symbol)
		n.Kids = []*Node{e.block(v.Body)}
		if v.Initializer != nil {
			n.Init = &InitRec{IsBase: v.Initializer.IsBase, Ctor: e.sym(v.Initializer.Ctor), Args: e.args(v.Initializer.Args)}
		}
		return n
	case *resolved.TypeDecl:
		return e.typeDecl(v)
	case *resolved.EnumDecl:
		return e.enumDecl(v)
	}
	e.fail("member %T", m)
	return nil
}

func (e *encoder) typeDecl(v *resolved.TypeDecl) *Node {
	n := at(KindType, v.Pos)
	n.Target = e.typ(v.Symbol)
	n.Flag = v.IsPartial
	n.Attrs = e.attrs(v.Attributes)
	n.Doc = v.Doc
	n.Bases = e.typeList(v.BaseList)
	for _, m := range v.Members {
		n.List = append(n.List, e.member(m))
	}
	return n
}

func (e *encoder) enumDecl(v *resolved.EnumDecl) *Node {
	n := at(KindEnum, v.Pos)
	n.Target = e.typ(v.Symbol)
	n.Doc = v.Doc
	for _, m := range v.Members {
		n.Enum = append(n.Enum, &EnumValueRec{Name: m.Name, Value: constRec(m.Value)})
	}
	return n
}

func (e *encoder) decl(d resolved.Decl) *Node {
	switch v := d.(type) {
	case *resolved.TypeDecl:
		return e.typeDecl(v)
	case *resolved.EnumDecl:
		return e.enumDecl(v)
	case *resolved.NamespaceDecl:
		n := at(KindNamespace, v.Pos)
		n.Name = v.Name
		for _, m := range v.Members {
			n.List = append(n.List, e.decl(m))
		}
		return n
	}
	e.fail("declaration %T", d)
	return nil
}
