package transformer

import (
	"strconv"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

const sentinelName = "continue"

// containsContinue reports a continue that targets the loop owning s.
// Nested loops own their continues; lambdas are expressions and not walked.
func containsContinue(s resolved.Stmt) bool {
	switch v := s.(type) {
	case *resolved.Continue:
		return true
	case *resolved.Block:
		return anyContinue(v.Stmts)
	case *resolved.If:
		return containsContinue(v.Then) || containsContinue(v.Else)
	case *resolved.Switch:
		for _, sec := range v.Sections {
			if anyContinue(sec.Body) {
				return true
			}
		}
	case *resolved.Labeled:
		return containsContinue(v.Body)
	case *resolved.Checked:
		return containsContinue(v.Body)
	}
	return false
}

func anyContinue(stmts []resolved.Stmt) bool {
	for _, s := range stmts {
		if containsContinue(s) {
			return true
		}
	}
	return false
}

// lowerLoopBody lowers a loop body into out. A body that continues runs in
// a single-iteration repeat; the sentinel tells a continue apart from a
// break once the repeat is left.
func (t *Transformer) lowerLoopBody(pos resolved.Pos, body resolved.Stmt, out *luaast.Block) error {
	f, err := t.curFunction(pos)
	if err != nil {
		return err
	}
	lf := &loopFrame{}
	if body != nil && containsContinue(body) {
		name := sentinelName
		if d := f.sentinelDepth(); d > 0 {
			name += strconv.Itoa(d)
		}
		lf.sentinel = luaast.Ident(name)
	}
	pop, err := t.pushLoop(pos, lf)
	if err != nil {
		return err
	}
	defer pop()
	if lf.sentinel == nil {
		return t.inBlock(out, func() error { return t.lowerInto(body) })
	}
	inner := &luaast.Block{}
	err = t.inBlock(inner, func() error {
		if err := t.lowerInto(body); err != nil {
			return err
		}
		if !endsWithBreak(inner) {
			t.emit(&luaast.Assignment{Left: lf.sentinel, Right: luaast.True()})
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.Add(
		luaast.Local(lf.sentinel, nil),
		&luaast.Repeat{Body: inner, Until: luaast.Lit("1")},
		&luaast.If{Cond: not(lf.sentinel), Body: breakBlock()},
	)
	return nil
}

func endsWithBreak(b *luaast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*luaast.Break)
	return ok
}

func (t *Transformer) lowerContinue(v *resolved.Continue) error {
	l, err := t.curLoop(v.Pos)
	if err != nil {
		return err
	}
	if l.sentinel == nil {
		return t.shapeErr(v.Pos, "continue in a loop without a continue sentinel")
	}
	t.emit(&luaast.Assignment{Left: l.sentinel, Right: luaast.True()}, &luaast.Break{})
	f, err := t.curFunction(v.Pos)
	if err != nil {
		return err
	}
	for _, sw := range f.switches[l.switches:] {
		sw.continued = true
	}
	return nil
}

// loopCond lowers a loop condition. A condition that needs statements is
// re-evaluated at the top of every iteration instead.
func (t *Transformer) loopCond(cond resolved.Expr, loop *luaast.While) error {
	c, hoisted, err := t.capture(func() (luaast.Expr, error) { return t.lowerExpr(cond) })
	if err != nil {
		return err
	}
	if len(hoisted.Stmts) == 0 {
		loop.Cond = c
		return nil
	}
	loop.Cond = luaast.True()
	loop.Body.Add(hoisted.Stmts...)
	loop.Body.Add(&luaast.If{Cond: not(c), Body: breakBlock()})
	return nil
}

func (t *Transformer) lowerWhile(v *resolved.While) error {
	loop := &luaast.While{Body: &luaast.Block{}}
	if err := t.loopCond(v.Cond, loop); err != nil {
		return err
	}
	if err := t.lowerLoopBody(v.Pos, v.Body, loop.Body); err != nil {
		return err
	}
	t.emit(loop)
	return nil
}

func (t *Transformer) lowerDoWhile(v *resolved.Do) error {
	loop := &luaast.Repeat{Body: &luaast.Block{}}
	if err := t.lowerLoopBody(v.Pos, v.Body, loop.Body); err != nil {
		return err
	}
	var cond luaast.Expr
	err := t.inBlock(loop.Body, func() error {
		var err error
		cond, err = t.lowerExpr(v.Cond)
		return err
	})
	if err != nil {
		return err
	}
	loop.Until = not(cond)
	t.emit(loop)
	return nil
}

// lowerFor scopes the initializers in a do block. Incrementors run after
// the continue check so a continue still advances the loop.
func (t *Transformer) lowerFor(v *resolved.For) error {
	outer := &luaast.Block{}
	err := t.inBlock(outer, func() error {
		if v.Decl != nil {
			if err := t.lowerLocalDecl(v.Decl); err != nil {
				return err
			}
		}
		for _, e := range v.Inits {
			if err := t.lowerExprStmt(e); err != nil {
				return err
			}
		}
		loop := &luaast.While{Cond: luaast.True(), Body: &luaast.Block{}}
		if v.Cond != nil {
			if err := t.loopCond(v.Cond, loop); err != nil {
				return err
			}
		}
		if err := t.lowerLoopBody(v.Pos, v.Body, loop.Body); err != nil {
			return err
		}
		err := t.inBlock(loop.Body, func() error {
			for _, e := range v.Incrementors {
				if err := t.lowerExprStmt(e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		t.emit(loop)
		return nil
	})
	if err != nil {
		return err
	}
	t.emit(&luaast.Do{Body: outer})
	return nil
}

func (t *Transformer) lowerForEach(v *resolved.ForEach) error {
	coll, err := t.lowerExpr(v.Collection)
	if err != nil {
		return err
	}
	loop := &luaast.ForIn{
		Names: []*luaast.Identifier{luaast.Ident("_"), luaast.Ident(localName(v.Var))},
		Iter:  luaast.Call(system("each"), coll),
		Body:  &luaast.Block{},
	}
	if err := t.lowerLoopBody(v.Pos, v.Body, loop.Body); err != nil {
		return err
	}
	t.emit(loop)
	return nil
}
