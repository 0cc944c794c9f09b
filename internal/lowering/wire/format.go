// Package wire is the msgpack encoding of the resolved programs the front end
// hands over, and of the manifest the driver writes after lowering.
//
// Types and symbols are stored once in ID-indexed tables and referenced from
// nodes by ID. ID 0 means none; ID n is entry n-1 of its table. Identity of
// *resolved.Type and *resolved.Symbol values survives a round trip.
package wire

import "martianoff/sharplua/internal/lowering/resolved"

// SchemaVersion is bumped whenever a record layout changes.
const SchemaVersion uint16 = 1

// Program is the wire form of resolved.Program.
type Program struct {
	Schema  uint16       `msgpack:"schema"`
	Types   []*TypeRec   `msgpack:"types"`
	Symbols []*SymbolRec `msgpack:"symbols"`
	Units   []*UnitRec   `msgpack:"units"`
}

type UnitRec struct {
	Path  string  `msgpack:"path"`
	Decls []*Node `msgpack:"decls"`
}

type TypeRec struct {
	Name          string   `msgpack:"name"`
	FullName      string   `msgpack:"full,omitempty"`
	Namespace     string   `msgpack:"ns,omitempty"`
	Kind          uint8    `msgpack:"kind"`
	Special       uint8    `msgpack:"special,omitempty"`
	Nullable      bool     `msgpack:"nullable,omitempty"`
	Base          uint32   `msgpack:"base,omitempty"`
	Interfaces    []uint32 `msgpack:"ifaces,omitempty"`
	TypeArgs      []uint32 `msgpack:"targs,omitempty"`
	TypeParams    []string `msgpack:"tparams,omitempty"`
	Elem          uint32   `msgpack:"elem,omitempty"`
	HasStaticCtor bool     `msgpack:"cctor,omitempty"`
	CtorCount     int      `msgpack:"ctors,omitempty"`
	FromSource    bool     `msgpack:"src,omitempty"`
	Fragments     int      `msgpack:"frags,omitempty"`
}

// SymbolFlag packs the boolean facts of a symbol.
type SymbolFlag uint32

const (
	FlagStatic SymbolFlag = 1 << iota
	FlagPrivate
	FlagReadOnly
	FlagAbstract
	FlagVirtual
	FlagOverride
	FlagConst
	FlagFromSource
	FlagImplementsInterface
	FlagAccessorBodies
	FlagExpressionBodied
	FlagIndexer
	FlagFieldLikeEvent
	FlagSetter
	FlagExtension
	FlagReturnsVoid
	FlagConversion
	FlagConstructor
	FlagIgnoreGeneric
)

type flagField struct {
	flag SymbolFlag
	ptr  *bool
}

// flagFields pairs every flag with the field of s it stands for.
func flagFields(s *resolved.Symbol) []flagField {
	return []flagField{
		{FlagStatic, &s.IsStatic},
		{FlagPrivate, &s.IsPrivate},
		{FlagReadOnly, &s.IsReadOnly},
		{FlagAbstract, &s.IsAbstract},
		{FlagVirtual, &s.IsVirtual},
		{FlagOverride, &s.IsOverride},
		{FlagConst, &s.IsConst},
		{FlagFromSource, &s.FromSource},
		{FlagImplementsInterface, &s.ImplementsInterface},
		{FlagAccessorBodies, &s.HasAccessorBodies},
		{FlagExpressionBodied, &s.IsExpressionBodied},
		{FlagIndexer, &s.IsIndexer},
		{FlagFieldLikeEvent, &s.IsFieldLikeEvent},
		{FlagSetter, &s.HasSetter},
		{FlagExtension, &s.IsExtension},
		{FlagReturnsVoid, &s.ReturnsVoid},
		{FlagConversion, &s.IsConversion},
		{FlagConstructor, &s.IsConstructor},
		{FlagIgnoreGeneric, &s.IgnoreGeneric},
	}
}

type SymbolRec struct {
	Kind          uint8       `msgpack:"kind"`
	Name          string      `msgpack:"name"`
	Flags         SymbolFlag  `msgpack:"flags,omitempty"`
	OverloadIndex int         `msgpack:"overload,omitempty"`
	Params        []*ParamRec `msgpack:"params,omitempty"`
	TypeArgs      []uint32    `msgpack:"targs,omitempty"`
	ReducedFrom   uint32      `msgpack:"reduced,omitempty"`
	Containing    uint32      `msgpack:"owner,omitempty"`
	Type          uint32      `msgpack:"type,omitempty"`
	Constant      *Const      `msgpack:"const,omitempty"`
}

type ParamRec struct {
	Name       string `msgpack:"name"`
	Type       uint32 `msgpack:"type"`
	Ref        uint8  `msgpack:"ref,omitempty"`
	IsParams   bool   `msgpack:"params,omitempty"`
	HasDefault bool   `msgpack:"hasdef,omitempty"`
	Default    *Const `msgpack:"def,omitempty"`
}

// ConstKind keeps the Go type of a constant, which msgpack alone would lose
// for chars and unsigned values.
type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstUint
	ConstFloat
	ConstString
	ConstChar
)

type Const struct {
	Kind  ConstKind `msgpack:"k"`
	Int   int64     `msgpack:"i,omitempty"`
	Uint  uint64    `msgpack:"u,omitempty"`
	Float float64   `msgpack:"f,omitempty"`
	Str   string    `msgpack:"s,omitempty"`
	Bool  bool      `msgpack:"b,omitempty"`
}

// NodeKind selects the variant a Node encodes.
type NodeKind string

// Expressions. Every expression carries Type and Const.
//
//	literal     Value, Text
//	ident       Name, Sym
//	typename    Target
//	member      Kids[target], Name, Sym
//	call        Kids[target], Args, Sym=method
//	binary      Op, Kids[left, right], Sym=operator
//	unary       Op, Kids[operand], Flag=postfix
//	assign      Op, Kids[left, right]
//	cond        Kids[cond, whenTrue, whenFalse]
//	cast        Target, Kids[operand], Sym=conversion
//	paren       Kids[inner]
//	new         Args, Sym=ctor
//	newarray    Target=element, Kids[size], List=items
//	index       Kids[target], Args, Sym=indexer
//	lambda      Params, Kids[body, exprBody], Flag=returns void
//	checkedexpr Kids[inner], Flag=checked
const (
	KindLiteral     NodeKind = "literal"
	KindIdent       NodeKind = "ident"
	KindThis        NodeKind = "this"
	KindBase        NodeKind = "base"
	KindTypeName    NodeKind = "typename"
	KindMember      NodeKind = "member"
	KindCall        NodeKind = "call"
	KindBinary      NodeKind = "binary"
	KindUnary       NodeKind = "unary"
	KindAssign      NodeKind = "assign"
	KindCond        NodeKind = "cond"
	KindCast        NodeKind = "cast"
	KindParen       NodeKind = "paren"
	KindNew         NodeKind = "new"
	KindNewArray    NodeKind = "newarray"
	KindIndex       NodeKind = "index"
	KindLambda      NodeKind = "lambda"
	KindCheckedExpr NodeKind = "checkedexpr"
)

// Statements.
//
//	block     List=stmts
//	exprstmt  Kids[x]
//	local     Vars
//	return    Kids[value]
//	if        Kids[cond, then, else]
//	while     Kids[cond, body]
//	do        Kids[body, cond]
//	for       Kids[decl, cond, body], List=inits, Extra=incrementors
//	foreach   Sym=variable, Kids[collection, body]
//	switch    Kids[scrutinee], Sections
//	goto      Mode=goto kind, Name=label, Kids[case]
//	labeled   Name, Kids[body]
//	yield     Kids[value], Flag=break
//	checked   Kids[block], Flag=checked
//	throw     Kids[value]
const (
	KindBlock    NodeKind = "block"
	KindExprStmt NodeKind = "exprstmt"
	KindLocal    NodeKind = "local"
	KindReturn   NodeKind = "return"
	KindIf       NodeKind = "if"
	KindWhile    NodeKind = "while"
	KindDo       NodeKind = "do"
	KindFor      NodeKind = "for"
	KindForEach  NodeKind = "foreach"
	KindSwitch   NodeKind = "switch"
	KindBreak    NodeKind = "break"
	KindContinue NodeKind = "continue"
	KindGoto     NodeKind = "goto"
	KindLabeled  NodeKind = "labeled"
	KindYield    NodeKind = "yield"
	KindChecked  NodeKind = "checked"
	KindThrow    NodeKind = "throw"
	KindEmpty    NodeKind = "empty"
)

// Members and declarations.
//
//	field      Vars, Flag=event, Flag2=const, Attrs
//	property   Sym, Accessors, Kids[exprBody, init], Attrs
//	event      Sym, Accessors, Attrs
//	indexer    Sym, Accessors
//	method     Sym, TypeParams, Kids[body, exprBody], Attrs, Doc
//	ctor       Sym, Kids[body], Init
//	type       Target, Flag=partial, Attrs, Doc, Bases, List=members
//	enum       Target, Enum, Doc
//	namespace  Name, List=decls
const (
	KindField     NodeKind = "field"
	KindProperty  NodeKind = "property"
	KindEvent     NodeKind = "event"
	KindIndexer   NodeKind = "indexer"
	KindMethod    NodeKind = "method"
	KindCtor      NodeKind = "ctor"
	KindType      NodeKind = "type"
	KindEnum      NodeKind = "enum"
	KindNamespace NodeKind = "namespace"
)

// Node is the wire form of every resolved node; see the kind tables for the
// fields each variant uses. Kids keeps nil entries for absent children.
type Node struct {
	Kind NodeKind `msgpack:"k"`
	Line int      `msgpack:"ln,omitempty"`
	Col  int      `msgpack:"col,omitempty"`

	Type   uint32 `msgpack:"t,omitempty"`
	Const  *Const `msgpack:"c,omitempty"`
	Target uint32 `msgpack:"tt,omitempty"`
	Sym    uint32 `msgpack:"s,omitempty"`

	Op    string `msgpack:"op,omitempty"`
	Name  string `msgpack:"name,omitempty"`
	Text  string `msgpack:"text,omitempty"`
	Value *Const `msgpack:"v,omitempty"`
	Flag  bool   `msgpack:"f,omitempty"`
	Flag2 bool   `msgpack:"f2,omitempty"`
	Mode  uint8  `msgpack:"m,omitempty"`

	Kids  []*Node `msgpack:"kids,omitempty"`
	List  []*Node `msgpack:"list,omitempty"`
	Extra []*Node `msgpack:"extra,omitempty"`

	Args       []*ArgRec       `msgpack:"args,omitempty"`
	Vars       []*VarRec       `msgpack:"vars,omitempty"`
	Params     []uint32        `msgpack:"params,omitempty"`
	Sections   []*SectionRec   `msgpack:"sections,omitempty"`
	Accessors  []*AccessorRec  `msgpack:"accessors,omitempty"`
	Init       *InitRec        `msgpack:"init,omitempty"`
	Attrs      []*AttrRec      `msgpack:"attrs,omitempty"`
	Doc        []string        `msgpack:"doc,omitempty"`
	TypeParams []string        `msgpack:"tparams,omitempty"`
	Bases      []uint32        `msgpack:"bases,omitempty"`
	Enum       []*EnumValueRec `msgpack:"enum,omitempty"`
}

type ArgRec struct {
	Name  string `msgpack:"name,omitempty"`
	Ref   uint8  `msgpack:"ref,omitempty"`
	Value *Node  `msgpack:"value"`
}

type VarRec struct {
	Sym  uint32 `msgpack:"s"`
	Init *Node  `msgpack:"init,omitempty"`
}

// SectionRec is a switch section; a nil label is `default`.
type SectionRec struct {
	Labels []*Node `msgpack:"labels"`
	Body   []*Node `msgpack:"body"`
}

type AccessorRec struct {
	Kind  uint8      `msgpack:"kind"`
	Body  *Node      `msgpack:"body,omitempty"`
	Attrs []*AttrRec `msgpack:"attrs,omitempty"`
}

type InitRec struct {
	IsBase bool      `msgpack:"base,omitempty"`
	Ctor   uint32    `msgpack:"ctor,omitempty"`
	Args   []*ArgRec `msgpack:"args,omitempty"`
}

type AttrRec struct {
	Type uint32  `msgpack:"type"`
	Args []*Node `msgpack:"args,omitempty"`
}

type EnumValueRec struct {
	Name  string `msgpack:"name"`
	Value *Const `msgpack:"value"`
}
