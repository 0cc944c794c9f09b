package transformer

import (
	"strconv"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

// caseKey identifies a case label by its constant value.
type caseKey struct {
	num       int64
	text      string
	isNum     bool
	isDefault bool
}

var defaultKey = caseKey{isDefault: true}

func caseKeyOf(c *resolved.Constant) caseKey {
	if n, ok := c.Int(); ok {
		return caseKey{num: n, isNum: true}
	}
	return caseKey{text: c.Text()}
}

// gotoSection resolves the section a goto case or goto default jumps to.
func (t *Transformer) gotoSection(frame *switchFrame, g *resolved.Goto) (int, error) {
	key := defaultKey
	if g.Kind == resolved.GotoCase {
		c := g.Case.ConstValue()
		if c == nil {
			return 0, t.shapeErr(g.Pos, "goto case needs a constant")
		}
		key = caseKeyOf(c)
	}
	idx, ok := frame.sections[key]
	if !ok {
		if key.isDefault {
			return 0, t.shapeErr(g.Pos, "goto default in a switch without default")
		}
		return 0, t.shapeErr(g.Pos, "no case %s in switch", g.Case.ConstValue().Text())
	}
	return idx, nil
}

// collectGotos finds the goto case and goto default statements that belong
// to the switch of frame. Nested switches own their gotos. depth is the
// number of switches enclosing frame.
func (t *Transformer) collectGotos(frame *switchFrame, depth int, stmts []resolved.Stmt) error {
	for _, s := range stmts {
		if err := t.collectGoto(frame, depth, s); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) collectGoto(frame *switchFrame, depth int, s resolved.Stmt) error {
	switch v := s.(type) {
	case *resolved.Goto:
		if v.Kind == resolved.GotoLabel {
			return nil
		}
		idx, err := t.gotoSection(frame, v)
		if err != nil {
			return err
		}
		if _, ok := frame.labels[idx]; ok {
			return nil
		}
		name := "caseLabel" + strconv.Itoa(idx)
		if frame.stmt.Sections[idx].IsDefault() {
			name = "defaultLabel"
		}
		if depth > 0 {
			name += "_" + strconv.Itoa(depth)
		}
		frame.labels[idx] = luaast.Ident(name)
	case *resolved.Block:
		return t.collectGotos(frame, depth, v.Stmts)
	case *resolved.If:
		if err := t.collectGoto(frame, depth, v.Then); err != nil {
			return err
		}
		return t.collectGoto(frame, depth, v.Else)
	case *resolved.While:
		return t.collectGoto(frame, depth, v.Body)
	case *resolved.Do:
		return t.collectGoto(frame, depth, v.Body)
	case *resolved.For:
		return t.collectGoto(frame, depth, v.Body)
	case *resolved.ForEach:
		return t.collectGoto(frame, depth, v.Body)
	case *resolved.Labeled:
		return t.collectGoto(frame, depth, v.Body)
	case *resolved.Checked:
		return t.collectGotos(frame, depth, v.Body.Stmts)
	}
	return nil
}

// lowerSwitch builds an if chain over the sections inside a single-iteration
// repeat, so break leaves the switch. Sections reached by goto are moved
// behind labels and their chain entry jumps there.
func (t *Transformer) lowerSwitch(v *resolved.Switch) error {
	f, err := t.curFunction(v.Pos)
	if err != nil {
		return err
	}
	frame := &switchFrame{
		stmt:     v,
		sections: make(map[caseKey]int),
		labels:   make(map[int]*luaast.Identifier),
	}
	for i, sec := range v.Sections {
		for _, l := range sec.Labels {
			if l.Value == nil {
				frame.sections[defaultKey] = i
				continue
			}
			if c := l.Value.ConstValue(); c != nil {
				frame.sections[caseKeyOf(c)] = i
			}
		}
	}
	for _, sec := range v.Sections {
		if err := t.collectGotos(frame, len(f.switches), sec.Body); err != nil {
			return err
		}
	}

	value, err := t.lowerExpr(v.Scrutinee)
	if err != nil {
		return err
	}
	tmp, err := t.temp(v.Pos)
	if err != nil {
		return err
	}
	sw := &luaast.Switch{Temp: tmp, Value: value}
	if err := t.lowerSections(frame, sw); err != nil {
		return err
	}
	t.emit(sw)

	if frame.continued {
		l, err := t.curLoop(v.Pos)
		if err != nil {
			return err
		}
		t.emit(&luaast.If{Cond: l.sentinel, Body: breakBlock()})
	}
	return nil
}

// lowerSections builds the chain of sw. When goto targets follow the chain,
// every path through the chain has to leave the repeat on its own, so
// section bodies keep their break and a switch without default gets one.
func (t *Transformer) lowerSections(frame *switchFrame, sw *luaast.Switch) error {
	pop, err := t.pushSwitch(frame.stmt.Pos, frame)
	if err != nil {
		return err
	}
	defer pop()

	var chain *luaast.If
	var defaultBody *luaast.Block
	for i, sec := range frame.stmt.Sections {
		body, err := t.lowerSection(frame, sw, i, sec)
		if err != nil {
			return err
		}
		if sec.IsDefault() {
			defaultBody = body
			continue
		}
		var cond luaast.Expr
		for _, l := range sec.Labels {
			value, err := t.caseValue(l.Value)
			if err != nil {
				return err
			}
			test := luaast.Bin(sw.Temp, "==", value)
			if cond == nil {
				cond = test
			} else {
				cond = luaast.Bin(cond, "or", test)
			}
		}
		if chain == nil {
			chain = &luaast.If{Cond: cond, Body: body}
		} else {
			chain.ElseIfs = append(chain.ElseIfs, &luaast.ElseIf{Cond: cond, Body: body})
		}
	}

	if defaultBody == nil && len(frame.labels) > 0 {
		defaultBody = breakBlock()
	}
	switch {
	case chain != nil:
		chain.Else = defaultBody
	case defaultBody != nil:
		chain = &luaast.If{Cond: luaast.True(), Body: defaultBody}
	}
	sw.Chain = chain
	return nil
}

func (t *Transformer) caseValue(e resolved.Expr) (luaast.Expr, error) {
	if c := e.ConstValue(); c != nil {
		return constExpr(c), nil
	}
	return t.lowerExpr(e)
}

// lowerSection lowers one section. Without goto targets the trailing break
// of a chain entry is implied by the end of the chain.
func (t *Transformer) lowerSection(frame *switchFrame, sw *luaast.Switch, idx int, sec *resolved.SwitchSection) (*luaast.Block, error) {
	label, targeted := frame.labels[idx]
	stmts := sec.Body
	if len(frame.labels) == 0 && len(stmts) > 0 {
		if _, ok := stmts[len(stmts)-1].(*resolved.Break); ok {
			stmts = stmts[:len(stmts)-1]
		}
	}
	body := &luaast.Block{}
	if err := t.inBlock(body, func() error { return t.lowerStmts(stmts) }); err != nil {
		return nil, err
	}
	if !targeted {
		return body, nil
	}
	sw.Targets = append(sw.Targets, &luaast.LabeledBlock{Label: label, Body: body})
	return &luaast.Block{Stmts: []luaast.Stmt{&luaast.Goto{Label: label}}}, nil
}
