package transformer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
)

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// Names the runtime reserves inside generated code.
const (
	ctorName       = "__ctor__"
	staticCtorName = "__staticCtor__"
	initName       = "__init__"
	thisName       = "this"
	systemName     = "System"
)

// identName turns a source identifier into a valid target identifier.
// Reserved words get a trailing underscore. Letters with diacritics are
// folded to their base letter and any other non-ASCII rune is escaped.
func identName(name string) string {
	if luaKeywords[name] {
		return name + "_"
	}
	if isASCII(name) {
		return name
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	var sb strings.Builder
	for _, r := range folded {
		if r < 0x80 {
			sb.WriteRune(r)
			continue
		}
		fmt.Fprintf(&sb, "_u%04X", r)
	}
	return sb.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// typeDeclName is the name a type is declared under: Name_N for generics.
func typeDeclName(t *resolved.Type) string {
	name := identName(t.Name)
	if n := arity(t); n > 0 {
		name += "_" + strconv.Itoa(n)
	}
	return name
}

func arity(t *resolved.Type) int {
	if len(t.TypeParams) > 0 {
		return len(t.TypeParams)
	}
	return len(t.TypeArgs)
}

// qualifiedTypeName is the full target name of t, with the arity suffix on
// its own segment.
func qualifiedTypeName(t *resolved.Type) string {
	full := t.FullName
	if full == "" {
		full = t.Name
	}
	prefix := ""
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		prefix = full[:i+1]
	}
	return prefix + typeDeclName(t)
}

// typeExpr is a reference to t usable as a value.
func (t *Transformer) typeExpr(typ *resolved.Type) luaast.Expr {
	switch {
	case typ == nil:
		return luaast.Dot(luaast.Ident(systemName), "Object")
	case typ.Kind == resolved.KindTypeParameter:
		return luaast.Ident(identName(typ.Name))
	case typ.IsArray():
		return luaast.Call(luaast.Dot(luaast.Ident(systemName), "Array"), t.typeExpr(typ.Elem))
	case typ.Nullable && typ.Elem != nil:
		return t.typeExpr(typ.Elem)
	}
	name := luaast.Ident(qualifiedTypeName(typ))
	if len(typ.TypeArgs) == 0 {
		return name
	}
	args := make([]luaast.Expr, len(typ.TypeArgs))
	for i, a := range typ.TypeArgs {
		args[i] = t.typeExpr(a)
	}
	return luaast.Call(name, args...)
}

// memberName is the target name of a member symbol.
func memberName(sym *resolved.Symbol) string {
	if sym.ReducedFrom != nil {
		sym = sym.ReducedFrom
	}
	name := identName(sym.Name)
	if sym.Kind == resolved.SymMethod && sym.OverloadIndex > 0 {
		name += strconv.Itoa(sym.OverloadIndex)
	}
	return name
}

// ctorMemberName names an instance constructor. Types with several
// constructors index them from 1.
func ctorMemberName(sym *resolved.Symbol) string {
	if sym.ContainingType != nil && sym.ContainingType.CtorCount > 1 {
		return ctorName + strconv.Itoa(sym.OverloadIndex+1)
	}
	return ctorName
}

func localName(sym *resolved.Symbol) string {
	return identName(sym.Name)
}

func system(name string) luaast.Expr {
	return luaast.Dot(luaast.Ident(systemName), name)
}

func thisIdent() *luaast.Identifier {
	return luaast.Ident(thisName)
}

// luaString quotes s as a target string literal. Control bytes are written
// as three-digit decimal escapes; everything else is kept as is.
func luaString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03d`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// constExpr renders a folded constant.
func constExpr(c *resolved.Constant) luaast.Expr {
	if c == nil || c.Value == nil {
		return luaast.Nil()
	}
	switch v := c.Value.(type) {
	case string:
		return luaast.Lit(luaString(v))
	case float64:
		switch {
		case math.IsInf(v, 1):
			return luaast.Lit("math.huge")
		case math.IsInf(v, -1):
			return luaast.Lit("-math.huge")
		case math.IsNaN(v):
			return luaast.Lit("(0 / 0)")
		}
	}
	return luaast.Lit(c.Text())
}

// defaultValue is the zero value of typ.
func (t *Transformer) defaultValue(typ *resolved.Type) luaast.Expr {
	if typ == nil || typ.Nullable {
		return luaast.Nil()
	}
	switch {
	case typ.IsBoolean():
		return luaast.False()
	case typ.IsEnum(), typ.IsIntegerType(), typ.Special == resolved.SpecialChar:
		return luaast.Lit("0")
	case typ.IsFloatType(), typ.Special == resolved.SpecialDecimal:
		return luaast.Lit("0.0")
	case typ.Kind == resolved.KindStruct, typ.Kind == resolved.KindTypeParameter:
		return luaast.Call(system("default"), t.typeExpr(typ))
	}
	return luaast.Nil()
}
