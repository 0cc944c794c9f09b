package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

func (t *Transformer) lowerStmts(stmts []resolved.Stmt) error {
	for _, s := range stmts {
		if err := t.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// lowerBody lowers s into a fresh block. A source block is flattened into it.
func (t *Transformer) lowerBody(s resolved.Stmt) (*luaast.Block, error) {
	b := &luaast.Block{}
	if err := t.inBlock(b, func() error { return t.lowerInto(s) }); err != nil {
		return nil, err
	}
	return b, nil
}

// lowerInto lowers s into the current block, flattening a source block.
func (t *Transformer) lowerInto(s resolved.Stmt) error {
	if blk, ok := s.(*resolved.Block); ok {
		return t.lowerStmts(blk.Stmts)
	}
	if s != nil {
		return t.lowerStmt(s)
	}
	return nil
}

func (t *Transformer) lowerStmt(s resolved.Stmt) error {
	switch v := s.(type) {
	case *resolved.Block:
		body, err := t.lowerBody(v)
		if err != nil {
			return err
		}
		t.emit(&luaast.Do{Body: body})
		return nil
	case *resolved.ExprStmt:
		return t.lowerExprStmt(v.X)
	case *resolved.LocalDecl:
		return t.lowerLocalDecl(v)
	case *resolved.Return:
		return t.lowerReturn(v)
	case *resolved.If:
		return t.lowerIf(v)
	case *resolved.While:
		return t.lowerWhile(v)
	case *resolved.Do:
		return t.lowerDoWhile(v)
	case *resolved.For:
		return t.lowerFor(v)
	case *resolved.ForEach:
		return t.lowerForEach(v)
	case *resolved.Switch:
		return t.lowerSwitch(v)
	case *resolved.Break:
		t.emit(&luaast.Break{})
		return nil
	case *resolved.Continue:
		return t.lowerContinue(v)
	case *resolved.Goto:
		return t.lowerGoto(v)
	case *resolved.Labeled:
		t.emit(&luaast.Label{Name: luaast.Ident(identName(v.Label))})
		return t.lowerInto(v.Body)
	case *resolved.Yield:
		if v.IsBreak {
			t.emit(&luaast.Return{})
			return nil
		}
		value, err := t.lowerExpr(v.Value)
		if err != nil {
			return err
		}
		t.emit(&luaast.ExprStmt{X: luaast.Call(system("yieldReturn"), value)})
		return nil
	case *resolved.Checked:
		text := "unchecked"
		if v.Checked {
			text = "checked"
		}
		body := &luaast.Block{Stmts: []luaast.Stmt{&luaast.Comment{Text: text}}}
		if err := t.inBlock(body, func() error { return t.lowerStmts(v.Body.Stmts) }); err != nil {
			return err
		}
		t.emit(&luaast.Do{Body: body})
		return nil
	case *resolved.Throw:
		var args []luaast.Expr
		if v.Value != nil {
			value, err := t.lowerExpr(v.Value)
			if err != nil {
				return err
			}
			args = append(args, value)
		}
		t.emit(&luaast.ExprStmt{X: luaast.Call(system("throw"), args...)})
		return nil
	case *resolved.Empty:
		return nil
	case nil:
		return t.shapeErr(resolved.Pos{}, "missing statement")
	}
	return t.shapeErr(s.Position(), "unsupported statement %T", s)
}

// lowerExprStmt lowers an expression evaluated for its effect. Only calls,
// assignments and increments may stand alone.
func (t *Transformer) lowerExprStmt(e resolved.Expr) error {
	var err error
	switch v := e.(type) {
	case *resolved.Invocation:
		_, err = t.lowerInvocation(v, true)
		return err
	case *resolved.Assignment:
		_, err = t.lowerAssignment(v, true)
		return err
	case *resolved.Unary:
		if isIncDec(v.Op) {
			_, err = t.lowerIncDec(v, true)
			return err
		}
	case nil:
		return t.shapeErr(resolved.Pos{}, "missing expression statement")
	}
	return t.shapeErr(e.Position(), "%T is not a valid statement", e)
}

func (t *Transformer) lowerLocalDecl(v *resolved.LocalDecl) error {
	for _, d := range v.Vars {
		name := luaast.Ident(localName(d.Symbol))
		if d.Init == nil {
			t.emit(luaast.Local(name, nil))
			continue
		}
		c, ok, err := t.refCall(d.Init)
		if err != nil {
			return err
		}
		if ok {
			t.emit(luaast.Local(name, nil))
			if err := t.writeBack(c, luaast.Ident(name.Name)); err != nil {
				return err
			}
			continue
		}
		value, err := t.lowerExpr(d.Init)
		if err != nil {
			return err
		}
		t.emit(luaast.Local(name, value))
	}
	return nil
}

// lowerReturn appends the by-reference parameters of the enclosing method to
// the returned values.
func (t *Transformer) lowerReturn(v *resolved.Return) error {
	var values []luaast.Expr
	if v.Value != nil {
		value, err := t.lowerExpr(v.Value)
		if err != nil {
			return err
		}
		values = append(values, value)
	}
	refs, err := t.refResults(v.Pos)
	if err != nil {
		return err
	}
	t.emit(&luaast.Return{Values: append(values, refs...)})
	return nil
}

func (t *Transformer) refResults(pos resolved.Pos) ([]luaast.Expr, error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	m := f.method
	if m == nil {
		return nil, nil
	}
	out := make([]luaast.Expr, len(m.refs))
	for i, r := range m.refs {
		out[i] = luaast.Ident(r.Name)
	}
	return out, nil
}

// lowerIf flattens else-if chains. A condition that needs statements of its
// own cannot be an elseif, so the rest of the chain nests in the else block.
func (t *Transformer) lowerIf(v *resolved.If) error {
	cond, err := t.lowerExpr(v.Cond)
	if err != nil {
		return err
	}
	then, err := t.lowerBody(v.Then)
	if err != nil {
		return err
	}
	cur := &luaast.If{Cond: cond, Body: then}
	t.emit(cur)
	for e := v.Else; e != nil; {
		next, ok := e.(*resolved.If)
		if !ok {
			cur.Else, err = t.lowerBody(e)
			return err
		}
		cond, hoisted, err := t.capture(func() (luaast.Expr, error) { return t.lowerExpr(next.Cond) })
		if err != nil {
			return err
		}
		then, err := t.lowerBody(next.Then)
		if err != nil {
			return err
		}
		if len(hoisted.Stmts) == 0 {
			cur.ElseIfs = append(cur.ElseIfs, &luaast.ElseIf{Cond: cond, Body: then})
		} else {
			nested := &luaast.If{Cond: cond, Body: then}
			hoisted.Add(nested)
			cur.Else = hoisted
			cur = nested
		}
		e = next.Else
	}
	return nil
}

func (t *Transformer) lowerGoto(v *resolved.Goto) error {
	if v.Kind == resolved.GotoLabel {
		t.emit(&luaast.Goto{Label: luaast.Ident(identName(v.Label))})
		return nil
	}
	frame, err := t.curSwitch(v.Pos)
	if err != nil {
		return err
	}
	idx, err := t.gotoSection(frame, v)
	if err != nil {
		return err
	}
	label, ok := frame.labels[idx]
	if !ok {
		return t.shapeErr(v.Pos, "goto target of section %d was not collected", idx)
	}
	t.emit(&luaast.Goto{Label: label})
	return nil
}

func not(e luaast.Expr) luaast.Expr {
	return &luaast.Unary{Op: "not", Operand: e}
}

func breakBlock() *luaast.Block {
	return &luaast.Block{Stmts: []luaast.Stmt{&luaast.Break{}}}
}
