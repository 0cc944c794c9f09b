package resolved

import (
	"fmt"
	"strconv"
)

// SymbolKind classifies what an identifier resolved to.
type SymbolKind int

const (
	SymLocal SymbolKind = iota
	SymParameter
	SymField
	SymProperty
	SymEvent
	SymMethod
	SymNamedType
	SymNamespace
	SymTypeParameter
	SymLabel
)

func (k SymbolKind) String() string {
	switch k {
	case SymLocal:
		return "local"
	case SymParameter:
		return "parameter"
	case SymField:
		return "field"
	case SymProperty:
		return "property"
	case SymEvent:
		return "event"
	case SymMethod:
		return "method"
	case SymNamedType:
		return "named type"
	case SymNamespace:
		return "namespace"
	case SymTypeParameter:
		return "type parameter"
	case SymLabel:
		return "label"
	}
	return "unknown"
}

// RefKind is the by-reference mode of a parameter or argument.
type RefKind int

const (
	RefNone RefKind = iota
	RefRef
	RefOut
)

// Constant is a value folded by the front end.
// Value holds nil, bool, int64, uint64, float64, string or rune.
type Constant struct {
	Value any
}

// Int returns the constant as an int64 when it is integral.
func (c *Constant) Int() (int64, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case rune:
		return int64(v), true
	case uint64:
		if v > 1<<63-1 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// Text renders the constant the way a numeric or boolean literal is written.
func (c *Constant) Text() string {
	if c == nil || c.Value == nil {
		return "nil"
	}
	switch v := c.Value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case rune:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(c.Value)
}

// Parameter is a declared method, indexer or delegate parameter.
type Parameter struct {
	Name       string
	Type       *Type
	RefKind    RefKind
	IsParams   bool
	HasDefault bool
	Default    *Constant // nil value with HasDefault means `default`/`null`
}

// Symbol is a resolved declaration. Flags that do not apply to a kind stay false.
type Symbol struct {
	Kind SymbolKind
	Name string

	IsStatic   bool
	IsPrivate  bool
	IsReadOnly bool
	IsAbstract bool
	IsVirtual  bool
	IsOverride bool
	IsConst    bool
	FromSource bool

	// ImplementsInterface is set when the member implements an interface
	// member of its containing type.
	ImplementsInterface bool

	// Property and event shape.
	HasAccessorBodies  bool // at least one accessor has an explicit body
	IsExpressionBodied bool
	IsIndexer          bool
	IsFieldLikeEvent   bool // event backed by a compiler-synthesized field
	HasSetter          bool

	// Methods.
	IsExtension   bool
	ReducedFrom   *Symbol // static definition of a reduced extension method
	ReturnsVoid   bool
	IsConversion  bool // user-defined conversion operator
	IsConstructor bool
	OverloadIndex int
	Parameters    []*Parameter
	TypeArgs      []*Type
	IgnoreGeneric bool // do not pass type arguments at call sites

	ContainingType *Type
	Type           *Type // value type for fields/locals/properties, return type for methods
	Constant       *Constant
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.ContainingType != nil {
		return s.ContainingType.String() + "." + s.Name
	}
	return s.Name
}

// IsOverridable reports abstract, virtual and override instance members.
func (s *Symbol) IsOverridable() bool {
	return !s.IsStatic && (s.IsAbstract || s.IsVirtual || s.IsOverride)
}

// HasConstant reports whether the symbol carries a folded value.
func (s *Symbol) HasConstant() bool {
	return s.Constant != nil
}

// RefOrOutCount returns the number of by-reference parameters.
func (s *Symbol) RefOrOutCount() int {
	n := 0
	for _, p := range s.Parameters {
		if p.RefKind != RefNone {
			n++
		}
	}
	return n
}

// IsMainEntryPoint reports a static Main that can start the program.
func (s *Symbol) IsMainEntryPoint() bool {
	if s.Kind != SymMethod || !s.IsStatic || s.Name != "Main" || len(s.TypeArgs) > 0 {
		return false
	}
	if s.ContainingType != nil && len(s.ContainingType.TypeArgs) > 0 {
		return false
	}
	if !s.ReturnsVoid && (s.Type == nil || s.Type.Special != SpecialInt32) {
		return false
	}
	switch len(s.Parameters) {
	case 0:
		return true
	case 1:
		p := s.Parameters[0].Type
		return p != nil && p.IsArray() && p.Elem.IsString()
	}
	return false
}

// IsStaticLazy reports public static members of a type with a static
// constructor; their first access must go through the type.
func (s *Symbol) IsStaticLazy() bool {
	return s.IsStatic && !s.IsPrivate && s.ContainingType != nil && s.ContainingType.HasStaticCtor
}
