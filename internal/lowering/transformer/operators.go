package transformer

import (
	"strconv"
	"strings"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

// operand is a lowered operand with the facts operator selection needs.
type operand struct {
	x   luaast.Expr
	typ *resolved.Type
	c   *resolved.Constant
}

func (t *Transformer) lowerBinary(v *resolved.Binary) (luaast.Expr, error) {
	switch v.Op {
	case "&&", "||", "??":
		return t.lowerShortCircuit(v)
	case "is", "as":
		return t.lowerTypeTest(v)
	}
	l, err := t.operandOf(v.Left)
	if err != nil {
		return nil, err
	}
	r, err := t.operandOf(v.Right)
	if err != nil {
		return nil, err
	}
	if op := v.Operator; op != nil && op.FromSource {
		return luaast.Call(luaast.Dot(t.typeExpr(op.ContainingType), memberName(op)), l.x, r.x), nil
	}
	return t.arith(v.Op, v.StaticType(), l, r), nil
}

func (t *Transformer) operandOf(e resolved.Expr) (operand, error) {
	x, err := t.lowerExpr(e)
	if err != nil {
		return operand{}, err
	}
	return operand{x, e.StaticType(), e.ConstValue()}, nil
}

// arith selects the target form of a binary operator. result is the type of
// the whole expression.
func (t *Transformer) arith(op string, result *resolved.Type, l, r operand) luaast.Expr {
	integral := isIntegral(l.typ) && isIntegral(r.typ)
	switch op {
	case "+":
		if result.IsString() || l.typ.IsString() || r.typ.IsString() {
			return luaast.Bin(t.stringify(l), "..", t.stringify(r))
		}
		if result.IsDelegate() {
			return luaast.Call(system("DelegateCombine"), l.x, r.x)
		}
	case "-":
		if result.IsDelegate() {
			return luaast.Call(system("DelegateRemove"), l.x, r.x)
		}
	case "/":
		if integral {
			if t.newest {
				return luaast.Bin(l.x, "//", r.x)
			}
			return luaast.Call(system("div"), l.x, r.x)
		}
	case "%":
		if integral && t.newest {
			return luaast.Bin(l.x, "%", r.x)
		}
		return luaast.Call(system("mod"), l.x, r.x)
	case "&", "|", "^":
		if l.typ.IsBoolean() {
			switch op {
			case "&":
				return luaast.Bin(l.x, "and", r.x)
			case "|":
				return luaast.Bin(l.x, "or", r.x)
			}
			return luaast.Bin(l.x, "~=", r.x)
		}
		if t.newest {
			if op == "^" {
				op = "~"
			}
			return luaast.Bin(l.x, op, r.x)
		}
		return luaast.Call(system(bitwiseFuncs[op]), l.x, r.x)
	case "<<", ">>":
		if t.newest {
			return luaast.Bin(l.x, op, r.x)
		}
		if op == "<<" {
			return luaast.Call(system("sl"), l.x, r.x)
		}
		return luaast.Call(system("sr"), l.x, r.x)
	case "!=":
		return luaast.Bin(l.x, "~=", r.x)
	}
	return luaast.Bin(l.x, op, r.x)
}

// bitwiseFuncs are the runtime helpers used when the target has no native
// bitwise operators.
var bitwiseFuncs = map[string]string{"&": "band", "|": "bor", "^": "xor"}

func isIntegral(typ *resolved.Type) bool {
	return typ.IsIntegerType() || typ.Special == resolved.SpecialChar || typ.IsEnum()
}

// stringify converts a concatenation operand to a string.
func (t *Transformer) stringify(o operand) luaast.Expr {
	if o.c != nil {
		if s, ok := o.c.Value.(string); !ok || len(s) <= maxFoldedStringLen {
			return luaast.Lit(luaString(constString(o.c)))
		}
	}
	switch {
	case o.typ.IsString():
		return o.x
	case o.typ.IsEnum():
		return luaast.Call(&luaast.MemberAccess{Target: o.x, Name: luaast.Ident("ToEnumString"), Colon: true}, t.typeExpr(o.typ))
	case o.typ.Special == resolved.SpecialChar:
		return luaast.Call(luaast.Dot(luaast.Ident("string"), "char"), o.x)
	case o.typ.IsValueType() && !o.typ.Nullable:
		return luaast.Call(&luaast.MemberAccess{Target: o.x, Name: luaast.Ident("ToString"), Colon: true})
	}
	return luaast.Call(system("toString"), o.x)
}

// constString is the string a constant converts to.
func constString(c *resolved.Constant) string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case rune:
		return string(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return c.Text()
}

// lowerShortCircuit keeps the right operand lazy. When it needs statements
// of its own they are guarded by the left operand's value.
func (t *Transformer) lowerShortCircuit(v *resolved.Binary) (luaast.Expr, error) {
	l, err := t.lowerExpr(v.Left)
	if err != nil {
		return nil, err
	}
	r, hoisted, err := t.capture(func() (luaast.Expr, error) { return t.lowerExpr(v.Right) })
	if err != nil {
		return nil, err
	}
	op := "and"
	if v.Op != "&&" {
		op = "or"
	}
	if len(hoisted.Stmts) == 0 {
		return luaast.Bin(l, op, r), nil
	}
	tmp, err := t.localTemp(v.Pos, l)
	if err != nil {
		return nil, err
	}
	hoisted.Add(&luaast.Assignment{Left: tmp, Right: r})
	var cond luaast.Expr = tmp
	switch v.Op {
	case "||":
		cond = &luaast.Unary{Op: "not", Operand: tmp}
	case "??":
		cond = luaast.Bin(tmp, "==", luaast.Nil())
	}
	t.emit(&luaast.If{Cond: cond, Body: hoisted})
	return tmp, nil
}

// lowerTypeTest lowers `x is T` and `x as T`. Tests the static type already
// proves reduce to a null check.
func (t *Transformer) lowerTypeTest(v *resolved.Binary) (luaast.Expr, error) {
	tn, ok := v.Right.(*resolved.TypeName)
	if !ok {
		return nil, t.shapeErr(v.Pos, "right operand of %s is not a type", v.Op)
	}
	x, err := t.lowerExpr(v.Left)
	if err != nil {
		return nil, err
	}
	from := v.Left.StaticType()
	if tn.Target.IsAssignableFrom(from) {
		if v.Op == "as" {
			return x, nil
		}
		if from.IsValueType() && !from.Nullable {
			return luaast.True(), nil
		}
		return luaast.Bin(x, "~=", luaast.Nil()), nil
	}
	return luaast.Call(system(v.Op), x, t.typeExpr(tn.Target)), nil
}

func isIncDec(op string) bool {
	return op == "++" || op == "--"
}

func (t *Transformer) lowerUnary(v *resolved.Unary, stmt bool) (luaast.Expr, error) {
	if isIncDec(v.Op) {
		return t.lowerIncDec(v, stmt)
	}
	x, err := t.lowerExpr(v.Operand)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case "!":
		return &luaast.Unary{Op: "not", Operand: x}, nil
	case "-":
		return &luaast.Unary{Op: "-", Operand: x}, nil
	case "+":
		return x, nil
	case "~":
		if t.newest {
			return &luaast.Unary{Op: "~", Operand: x}, nil
		}
		return luaast.Call(system("bnot"), x), nil
	}
	return nil, t.shapeErr(v.Pos, "unsupported unary operator %s", v.Op)
}

// lowerIncDec rewrites ++ and -- as assignments. As a value, prefix forms
// yield the updated value and postfix forms the previous one.
func (t *Transformer) lowerIncDec(v *resolved.Unary, stmt bool) (luaast.Expr, error) {
	lv, err := t.lvalueOf(v.Operand, true)
	if err != nil {
		return nil, err
	}
	op := "+"
	if v.Op == "--" {
		op = "-"
	}
	if stmt {
		t.emit(lv.set(luaast.Bin(lv.get(), op, luaast.Lit("1"))))
		return nil, nil
	}
	if v.Postfix {
		tmp, err := t.localTemp(v.Pos, lv.get())
		if err != nil {
			return nil, err
		}
		t.emit(lv.set(luaast.Bin(tmp, op, luaast.Lit("1"))))
		return tmp, nil
	}
	tmp, err := t.localTemp(v.Pos, luaast.Bin(lv.get(), op, luaast.Lit("1")))
	if err != nil {
		return nil, err
	}
	t.emit(lv.set(tmp))
	return tmp, nil
}

// lowerAssignment lowers simple and compound assignment. In statement
// position it returns nil; otherwise the assigned value.
func (t *Transformer) lowerAssignment(v *resolved.Assignment, stmt bool) (luaast.Expr, error) {
	if v.Op == "=" {
		return t.lowerSimpleAssignment(v, stmt)
	}
	op := strings.TrimSuffix(v.Op, "=")
	lv, err := t.lvalueOf(v.Left, true)
	if err != nil {
		return nil, err
	}
	t.recordStaticReadOnly(lv.sym)

	if lv.adapter != nil && (op == "+" || op == "-") {
		kind := luaast.AdapterAdd
		if op == "-" {
			kind = luaast.AdapterRemove
		}
		if !stmt {
			return nil, t.shapeErr(v.Pos, "event %s used as a value", lv.sym.Name)
		}
		handler, err := t.lowerExpr(v.Right)
		if err != nil {
			return nil, err
		}
		t.emit(&luaast.ExprStmt{X: lv.adapter(kind, handler)})
		return nil, nil
	}

	right, err := t.operandOf(v.Right)
	if err != nil {
		return nil, err
	}
	var value luaast.Expr
	if op == "??" {
		value = luaast.Bin(lv.get(), "or", right.x)
	} else {
		value = t.arith(op, v.Left.StaticType(), operand{lv.get(), v.Left.StaticType(), nil}, right)
	}
	return t.store(v.Pos, lv, value, stmt)
}

// store assigns value to lv. As an expression the value is kept in a
// temporary so that the location is not read back.
func (t *Transformer) store(pos resolved.Pos, lv *lvalue, value luaast.Expr, stmt bool) (luaast.Expr, error) {
	if stmt {
		t.emit(lv.set(value))
		return nil, nil
	}
	tmp, err := t.localTemp(pos, value)
	if err != nil {
		return nil, err
	}
	t.emit(lv.set(tmp))
	return tmp, nil
}

func (t *Transformer) lowerSimpleAssignment(v *resolved.Assignment, stmt bool) (luaast.Expr, error) {
	lv, err := t.lvalueOf(v.Left, false)
	if err != nil {
		return nil, err
	}
	t.recordStaticReadOnly(lv.sym)
	c, ok, err := t.refCall(v.Right)
	if err != nil {
		return nil, err
	}
	if ok {
		if lv.plain != nil {
			if err := t.writeBack(c, lv.plain()); err != nil {
				return nil, err
			}
			if stmt {
				return nil, nil
			}
			return lv.plain(), nil
		}
		tmp, err := t.localTemp(v.Pos, nil)
		if err != nil {
			return nil, err
		}
		if err := t.writeBack(c, tmp); err != nil {
			return nil, err
		}
		t.emit(lv.set(tmp))
		if stmt {
			return nil, nil
		}
		return tmp, nil
	}
	right, err := t.lowerExpr(v.Right)
	if err != nil {
		return nil, err
	}
	return t.store(v.Pos, lv, right, stmt)
}
