// Package resolved models the symbol-annotated syntax tree handed over by the
// front end. Everything here is immutable once built; identity of *Type and
// *Symbol values is the identity of the resolved symbol.
package resolved

// TypeKind classifies a named type.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindStruct
	KindInterface
	KindEnum
	KindDelegate
	KindArray
	KindTypeParameter
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindDelegate:
		return "delegate"
	case KindArray:
		return "array"
	case KindTypeParameter:
		return "type parameter"
	}
	return "unknown"
}

// SpecialType marks the predefined types. The integer block is ordered from
// SByte to UInt64 and the numeric block from Char to Double, which the
// widening rules rely on.
type SpecialType int

const (
	SpecialNone SpecialType = iota
	SpecialObject
	SpecialBoolean
	SpecialChar
	SpecialSByte
	SpecialByte
	SpecialInt16
	SpecialUInt16
	SpecialInt32
	SpecialUInt32
	SpecialInt64
	SpecialUInt64
	SpecialDecimal
	SpecialSingle
	SpecialDouble
	SpecialString
	SpecialVoid
)

var specialNames = map[SpecialType]string{
	SpecialObject:  "Object",
	SpecialBoolean: "Boolean",
	SpecialChar:    "Char",
	SpecialSByte:   "SByte",
	SpecialByte:    "Byte",
	SpecialInt16:   "Int16",
	SpecialUInt16:  "UInt16",
	SpecialInt32:   "Int32",
	SpecialUInt32:  "UInt32",
	SpecialInt64:   "Int64",
	SpecialUInt64:  "UInt64",
	SpecialDecimal: "Decimal",
	SpecialSingle:  "Single",
	SpecialDouble:  "Double",
	SpecialString:  "String",
	SpecialVoid:    "Void",
}

func (s SpecialType) String() string {
	if n, ok := specialNames[s]; ok {
		return n
	}
	return "None"
}

// BitWidth returns the storage width of an integer type, 0 otherwise.
func (s SpecialType) BitWidth() int {
	switch s {
	case SpecialSByte, SpecialByte:
		return 8
	case SpecialInt16, SpecialUInt16, SpecialChar:
		return 16
	case SpecialInt32, SpecialUInt32, SpecialSingle:
		return 32
	case SpecialInt64, SpecialUInt64, SpecialDouble:
		return 64
	}
	return 0
}

// IsSigned reports whether an integer type is signed.
func (s SpecialType) IsSigned() bool {
	switch s {
	case SpecialSByte, SpecialInt16, SpecialInt32, SpecialInt64:
		return true
	}
	return false
}

// Type is a resolved type symbol.
type Type struct {
	Name      string // simple name, without arity
	FullName  string // namespace-qualified name
	Namespace string
	Kind      TypeKind
	Special   SpecialType
	Nullable  bool // Nullable<T>; Elem holds T

	Base       *Type
	Interfaces []*Type // directly declared interfaces
	TypeArgs   []*Type
	TypeParams []string
	Elem       *Type // array element or nullable underlying type

	HasStaticCtor bool
	CtorCount     int // visible instance constructors
	FromSource    bool
	Fragments     int // number of partial declarations; 0 or 1 for ordinary types
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.FullName != "" {
		return t.FullName
	}
	return t.Name
}

func (t *Type) IsInterface() bool { return t != nil && t.Kind == KindInterface }
func (t *Type) IsEnum() bool      { return t != nil && t.Kind == KindEnum }
func (t *Type) IsDelegate() bool  { return t != nil && t.Kind == KindDelegate }
func (t *Type) IsArray() bool     { return t != nil && t.Kind == KindArray }
func (t *Type) IsString() bool    { return t != nil && t.Special == SpecialString }
func (t *Type) IsBoolean() bool   { return t != nil && t.Special == SpecialBoolean }
func (t *Type) IsVoid() bool      { return t == nil || t.Special == SpecialVoid }
func (t *Type) IsGeneric() bool   { return t != nil && len(t.TypeArgs) > 0 }

// IsIntegerType reports SByte through UInt64.
func (t *Type) IsIntegerType() bool {
	return t != nil && t.Special >= SpecialSByte && t.Special <= SpecialUInt64
}

// IsFloatType reports Single and Double.
func (t *Type) IsFloatType() bool {
	return t != nil && (t.Special == SpecialSingle || t.Special == SpecialDouble)
}

func (t *Type) isBaseNumber() bool {
	return t != nil && t.Special >= SpecialChar && t.Special <= SpecialDouble
}

// IsValueType reports structs, enums, nullable and every predefined value type.
func (t *Type) IsValueType() bool {
	if t == nil {
		return false
	}
	if t.Kind == KindStruct || t.Kind == KindEnum || t.Nullable {
		return true
	}
	return t.Special >= SpecialBoolean && t.Special <= SpecialDouble
}

// IsImmutable reports types whose values can be shared without copying.
func (t *Type) IsImmutable() bool {
	return (t.IsValueType() && !t.IsGeneric()) || t.IsString() || t.IsDelegate()
}

// IsSubclassOf walks the base chain. A type is not its own subclass, and
// every type is a subclass of object.
func (t *Type) IsSubclassOf(parent *Type) bool {
	if parent == nil || t == nil {
		return false
	}
	if parent.Special == SpecialObject {
		return true
	}
	if t == parent {
		return false
	}
	for p := t; p != nil; p = p.Base {
		if p == parent {
			return true
		}
	}
	return false
}

// AllInterfaces returns every interface implemented by t, its bases and the
// interfaces themselves, without duplicates.
func (t *Type) AllInterfaces() []*Type {
	seen := make(map[*Type]bool)
	var out []*Type
	var visit func(i *Type)
	visit = func(i *Type) {
		if i == nil || seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, sub := range i.Interfaces {
			visit(sub)
		}
	}
	for p := t; p != nil; p = p.Base {
		for _, i := range p.Interfaces {
			visit(i)
		}
	}
	return out
}

// Implements reports whether t implements the interface iface.
func (t *Type) Implements(iface *Type) bool {
	for _, i := range t.AllInterfaces() {
		if i == iface {
			return true
		}
	}
	return false
}

func (t *Type) isNumberAssignableFrom(right *Type) bool {
	if !t.isBaseNumber() || !right.isBaseNumber() {
		return false
	}
	var begin SpecialType
	switch right.Special {
	case SpecialChar, SpecialSByte, SpecialByte:
		begin = SpecialInt16
	case SpecialInt16, SpecialUInt16:
		begin = SpecialInt32
	case SpecialInt32, SpecialUInt32:
		begin = SpecialInt64
	case SpecialInt64, SpecialUInt64:
		begin = SpecialDecimal
	default:
		begin = SpecialDouble
	}
	return t.Special >= begin && t.Special <= SpecialDouble
}

// IsAssignableFrom reports whether a value of type right can be stored in t
// without a conversion.
func (t *Type) IsAssignableFrom(right *Type) bool {
	if t == nil || right == nil {
		return false
	}
	if t == right {
		return true
	}
	if t.isNumberAssignableFrom(right) {
		return true
	}
	if right.IsSubclassOf(t) {
		return true
	}
	if t.IsInterface() {
		return right.Implements(t)
	}
	return false
}

// IsExtendSelf reports whether the generic base type carries a type argument
// that derives from t itself (class A : Base<B> where B : A).
func IsExtendSelf(t, base *Type) bool {
	if base == nil || !base.IsGeneric() {
		return false
	}
	for _, arg := range base.TypeArgs {
		if arg.Kind == KindTypeParameter || arg == t {
			continue
		}
		if t.IsAssignableFrom(arg) {
			return true
		}
	}
	return false
}

// GenericEnumerableArg returns T when t directly declares IEnumerable<T>.
func (t *Type) GenericEnumerableArg() (*Type, bool) {
	for _, i := range t.Interfaces {
		if i.FullName == "System.Collections.Generic.IEnumerable" && len(i.TypeArgs) == 1 {
			return i.TypeArgs[0], true
		}
	}
	return nil, false
}
