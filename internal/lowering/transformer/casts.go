package transformer

import (
	"fortio.org/safecast"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

func (t *Transformer) lowerCast(v *resolved.Cast) (luaast.Expr, error) {
	to, from := v.Target, v.Operand.StaticType()
	if c := v.ConstValue(); c != nil && isNumeric(to) {
		return constExpr(c), nil
	}
	if c := v.Operand.ConstValue(); c != nil && v.Conversion == nil && isIntegral(to) && fitsIntegral(c, to) {
		return constExpr(c), nil
	}
	x, err := t.lowerExpr(v.Operand)
	if err != nil {
		return nil, err
	}
	if conv := v.Conversion; conv != nil {
		if tmpl, ok := t.env.Templates.Lookup(conv); ok {
			return t.expand(v.Pos, tmpl, nil, []luaast.Expr{x}, nil)
		}
		return luaast.Call(luaast.Dot(t.typeExpr(conv.ContainingType), memberName(conv)), x), nil
	}
	switch {
	case to == nil, from == nil, to.IsAssignableFrom(from):
		return x, nil
	case to.IsEnum() && (isIntegral(from) || from.IsEnum()), from.IsEnum() && isIntegral(to):
		return x, nil
	case to.Nullable && to.Elem == from, from.Nullable && from.Elem == to:
		return x, nil
	case isNumeric(to) && isNumeric(from):
		return numericCast(from, to, x), nil
	}
	return luaast.Call(system("cast"), t.typeExpr(to), x), nil
}

func isNumeric(typ *resolved.Type) bool {
	if typ == nil {
		return false
	}
	if typ.Nullable {
		typ = typ.Elem
	}
	return typ.Special >= resolved.SpecialChar && typ.Special <= resolved.SpecialDouble
}

// fitsIntegral reports whether the integral constant c is in the range of
// the integer type to. Such a cast needs no runtime range check.
func fitsIntegral(c *resolved.Constant, to *resolved.Type) bool {
	if to.Nullable {
		to = to.Elem
	}
	switch v := c.Value.(type) {
	case int64:
		return inRange(v, to.Special)
	case uint64:
		return inRange(v, to.Special)
	case rune:
		return inRange(v, to.Special)
	}
	return false
}

func inRange[N safecast.Integer](v N, to resolved.SpecialType) bool {
	var err error
	switch to {
	case resolved.SpecialSByte:
		_, err = safecast.Conv[int8](v)
	case resolved.SpecialByte:
		_, err = safecast.Conv[uint8](v)
	case resolved.SpecialInt16:
		_, err = safecast.Conv[int16](v)
	case resolved.SpecialUInt16, resolved.SpecialChar:
		_, err = safecast.Conv[uint16](v)
	case resolved.SpecialInt32:
		_, err = safecast.Conv[int32](v)
	case resolved.SpecialUInt32:
		_, err = safecast.Conv[uint32](v)
	case resolved.SpecialInt64:
		_, err = safecast.Conv[int64](v)
	case resolved.SpecialUInt64:
		_, err = safecast.Conv[uint64](v)
	default:
		return false
	}
	return err == nil
}

// numericCast converts between predefined numeric types. Conversions from
// integral sources use the lower-case helpers, which only check range;
// conversions from real sources also truncate.
func numericCast(from, to *resolved.Type, x luaast.Expr) luaast.Expr {
	if from.Nullable {
		from = from.Elem
	}
	if to.Nullable {
		to = to.Elem
	}
	if from.Special == to.Special {
		return x
	}
	target := to.Special
	if target == resolved.SpecialChar {
		target = resolved.SpecialUInt16
	}
	prefix := "To"
	if isIntegral(from) {
		prefix = "to"
	}
	return luaast.Call(system(prefix+target.String()), x)
}
