package resolved

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAssignableFromNumbers(t *testing.T) {
	i32 := &Type{Name: "Int32", Special: SpecialInt32}
	i64 := &Type{Name: "Int64", Special: SpecialInt64}
	byt := &Type{Name: "Byte", Special: SpecialByte}
	dbl := &Type{Name: "Double", Special: SpecialDouble}

	assert.True(t, i64.IsAssignableFrom(i32))
	assert.True(t, i32.IsAssignableFrom(byt))
	assert.True(t, dbl.IsAssignableFrom(i64))
	assert.False(t, i32.IsAssignableFrom(i64))
	assert.False(t, i32.IsAssignableFrom(dbl))
}

func TestIsAssignableFromClasses(t *testing.T) {
	object := &Type{Name: "Object", Special: SpecialObject}
	iface := &Type{Name: "IShape", Kind: KindInterface}
	shape := &Type{Name: "Shape", Base: object, Interfaces: []*Type{iface}}
	circle := &Type{Name: "Circle", Base: shape}

	assert.True(t, shape.IsAssignableFrom(circle))
	assert.False(t, circle.IsAssignableFrom(shape))
	assert.True(t, object.IsAssignableFrom(circle))
	assert.True(t, iface.IsAssignableFrom(circle))
	assert.False(t, circle.IsSubclassOf(circle))
}

func TestIsExtendSelf(t *testing.T) {
	a := &Type{Name: "A"}
	b := &Type{Name: "B", Base: a}
	generic := &Type{Name: "Base", TypeArgs: []*Type{b}}
	selfGeneric := &Type{Name: "Base", TypeArgs: []*Type{a}}

	assert.True(t, IsExtendSelf(a, generic))
	assert.False(t, IsExtendSelf(a, selfGeneric))
	assert.False(t, IsExtendSelf(a, &Type{Name: "Plain"}))
}

func TestIsMainEntryPoint(t *testing.T) {
	str := &Type{Name: "String", Special: SpecialString}
	args := &Type{Name: "String[]", Kind: KindArray, Elem: str}
	owner := &Type{Name: "Program"}

	main := &Symbol{Kind: SymMethod, Name: "Main", IsStatic: true, ReturnsVoid: true, ContainingType: owner,
		Parameters: []*Parameter{{Name: "args", Type: args}}}
	assert.True(t, main.IsMainEntryPoint())

	instance := *main
	instance.IsStatic = false
	assert.False(t, instance.IsMainEntryPoint())

	returnsString := *main
	returnsString.ReturnsVoid = false
	returnsString.Type = str
	assert.False(t, returnsString.IsMainEntryPoint())
}

func TestConstantText(t *testing.T) {
	assert.Equal(t, "3", (&Constant{Value: int64(3)}).Text())
	assert.Equal(t, "2.0", (&Constant{Value: float64(2)}).Text())
	assert.Equal(t, "0.5", (&Constant{Value: 0.5}).Text())
	assert.Equal(t, "true", (&Constant{Value: true}).Text())
	assert.Equal(t, `"hi"`, (&Constant{Value: "hi"}).Text())
	assert.Equal(t, "nil", (&Constant{}).Text())

	v, ok := (&Constant{Value: rune('a')}).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(97), v)
}
