package resolved

import "martianoff/sharplua/lowerr"

// Pos is a source position attached to every node.
type Pos struct {
	File   string
	Line   int
	Column int
}

// Location converts p for error reporting.
func (p Pos) Location() lowerr.Location {
	return lowerr.Location{File: p.File, Line: p.Line, Column: p.Column}
}

// Node is implemented by every resolved node.
type Node interface {
	Position() Pos
}

// Expr is the closed set of expression nodes.
type Expr interface {
	Node
	StaticType() *Type
	ConstValue() *Constant
	exprNode()
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Member is the closed set of type members.
type Member interface {
	Node
	memberNode()
}

// Decl is the closed set of declarations allowed in a unit or namespace.
type Decl interface {
	Node
	declNode()
}

// ExprBase carries the facts shared by every expression.
type ExprBase struct {
	Pos   Pos
	Type  *Type
	Const *Constant
}

func (b *ExprBase) Position() Pos         { return b.Pos }
func (b *ExprBase) StaticType() *Type     { return b.Type }
func (b *ExprBase) ConstValue() *Constant { return b.Const }
func (b *ExprBase) exprNode()             {}

// StmtBase carries the position of a statement.
type StmtBase struct {
	Pos Pos
}

func (b *StmtBase) Position() Pos { return b.Pos }
func (b *StmtBase) stmtNode()     {}

// MemberBase carries the position of a member declaration.
type MemberBase struct {
	Pos Pos
}

func (b *MemberBase) Position() Pos { return b.Pos }
func (b *MemberBase) memberNode()   {}

// --- expressions ---

// Literal is a literal token. Value holds nil, bool, string or rune; numeric
// literals keep their source spelling in Text.
type Literal struct {
	ExprBase
	Value any
	Text  string
}

// Identifier is a simple name.
type Identifier struct {
	ExprBase
	Name   string
	Symbol *Symbol
}

// This is the `this` expression.
type This struct{ ExprBase }

// Base is the `base` expression.
type Base struct{ ExprBase }

// TypeName is a type used in expression position.
type TypeName struct {
	ExprBase
	Target *Type
}

// MemberAccess is `Target.Name`. Symbol is nil on dynamic access.
type MemberAccess struct {
	ExprBase
	Target Expr
	Name   string
	Symbol *Symbol
}

// Argument is one call argument.
type Argument struct {
	Name    string // set for named arguments
	RefKind RefKind
	Value   Expr
}

// Invocation is a call. Method is nil for dynamic call sites.
type Invocation struct {
	ExprBase
	Target Expr
	Args   []*Argument
	Method *Symbol
}

// Binary is a binary operator. Operator is the resolved operator method, if any.
type Binary struct {
	ExprBase
	Op       string
	Left     Expr
	Right    Expr
	Operator *Symbol
}

// Unary is a prefix or postfix operator.
type Unary struct {
	ExprBase
	Op      string
	Operand Expr
	Postfix bool
}

// Assignment is simple or compound assignment.
type Assignment struct {
	ExprBase
	Op    string
	Left  Expr
	Right Expr
}

// Conditional is `Cond ? WhenTrue : WhenFalse`.
type Conditional struct {
	ExprBase
	Cond      Expr
	WhenTrue  Expr
	WhenFalse Expr
}

// Cast is an explicit conversion. Conversion holds a user-defined operator.
type Cast struct {
	ExprBase
	Target     *Type
	Operand    Expr
	Conversion *Symbol
}

// Parenthesized is `(Inner)`.
type Parenthesized struct {
	ExprBase
	Inner Expr
}

// ObjectCreation is `new T(args)`.
type ObjectCreation struct {
	ExprBase
	Ctor *Symbol
	Args []*Argument
}

// ArrayCreation is `new T[] { items }` or `new T[Size]`.
type ArrayCreation struct {
	ExprBase
	Elem  *Type
	Size  Expr
	Items []Expr
}

// ElementAccess is `Target[args]`. Indexer is nil for array access.
type ElementAccess struct {
	ExprBase
	Target  Expr
	Args    []*Argument
	Indexer *Symbol
}

// Lambda is an anonymous function with either a block or an expression body.
// ReturnsVoid is set when the target delegate returns nothing, which makes
// an expression body a statement.
type Lambda struct {
	ExprBase
	Params      []*Symbol
	Body        *Block
	ExprBody    Expr
	ReturnsVoid bool
}

// CheckedExpr is `checked(expr)` or `unchecked(expr)`.
type CheckedExpr struct {
	ExprBase
	Checked bool
	Inner   Expr
}

// --- statements ---

type Block struct {
	StmtBase
	Stmts []Stmt
}

type ExprStmt struct {
	StmtBase
	X Expr
}

// VarDeclarator declares one local, field or event.
type VarDeclarator struct {
	Symbol *Symbol
	Init   Expr
}

type LocalDecl struct {
	StmtBase
	Vars []*VarDeclarator
}

type Return struct {
	StmtBase
	Value Expr
}

type If struct {
	StmtBase
	Cond Expr
	Then Stmt
	Else Stmt
}

type While struct {
	StmtBase
	Cond Expr
	Body Stmt
}

type Do struct {
	StmtBase
	Body Stmt
	Cond Expr
}

type For struct {
	StmtBase
	Decl         *LocalDecl
	Inits        []Expr
	Cond         Expr
	Incrementors []Expr
	Body         Stmt
}

type ForEach struct {
	StmtBase
	Var        *Symbol
	Collection Expr
	Body       Stmt
}

// CaseLabel is one `case v:`; a nil Value is `default:`.
type CaseLabel struct {
	Value Expr
}

type SwitchSection struct {
	Labels []*CaseLabel
	Body   []Stmt
}

// IsDefault reports whether the section carries the default label.
func (s *SwitchSection) IsDefault() bool {
	for _, l := range s.Labels {
		if l.Value == nil {
			return true
		}
	}
	return false
}

type Switch struct {
	StmtBase
	Scrutinee Expr
	Sections  []*SwitchSection
}

type Break struct{ StmtBase }

type Continue struct{ StmtBase }

// GotoKind distinguishes the three goto forms.
type GotoKind int

const (
	GotoLabel GotoKind = iota
	GotoCase
	GotoDefault
)

type Goto struct {
	StmtBase
	Kind  GotoKind
	Label string
	Case  Expr
}

type Labeled struct {
	StmtBase
	Label string
	Body  Stmt
}

// Yield is `yield return Value` or `yield break`.
type Yield struct {
	StmtBase
	Value   Expr
	IsBreak bool
}

// Checked is a `checked { }` or `unchecked { }` block.
type Checked struct {
	StmtBase
	Checked bool
	Body    *Block
}

type Throw struct {
	StmtBase
	Value Expr
}

type Empty struct{ StmtBase }

// --- members ---

// Attribute is a custom attribute application.
type Attribute struct {
	Type *Type
	Args []Expr
}

// AccessorKind names property and event accessors.
type AccessorKind int

const (
	AccessorGet AccessorKind = iota
	AccessorSet
	AccessorAdd
	AccessorRemove
)

// Accessor is a get/set/add/remove accessor. Body is nil for auto accessors.
type Accessor struct {
	Kind       AccessorKind
	Body       *Block
	Attributes []*Attribute
}

type FieldDecl struct {
	MemberBase
	Vars       []*VarDeclarator
	IsEvent    bool
	IsConst    bool
	Attributes []*Attribute
}

type PropertyDecl struct {
	MemberBase
	Symbol     *Symbol
	Accessors  []*Accessor
	ExprBody   Expr
	Init       Expr
	Attributes []*Attribute
}

// IsReadOnlyAuto reports a single auto accessor (`{ get; }`).
func (p *PropertyDecl) IsReadOnlyAuto() bool {
	return len(p.Accessors) == 1 && p.Accessors[0].Body == nil
}

type EventDecl struct {
	MemberBase
	Symbol     *Symbol
	Accessors  []*Accessor
	Attributes []*Attribute
}

type IndexerDecl struct {
	MemberBase
	Symbol    *Symbol
	Accessors []*Accessor
}

type MethodDecl struct {
	MemberBase
	Symbol     *Symbol
	TypeParams []string
	Body       *Block
	ExprBody   Expr
	Attributes []*Attribute
	Doc        []string
}

// CtorInitializer is `: base(args)` or `: this(args)`.
type CtorInitializer struct {
	IsBase bool
	Ctor   *Symbol
	Args   []*Argument
}

type ConstructorDecl struct {
	MemberBase
	Symbol      *Symbol
	Body        *Block
	Initializer *CtorInitializer
}

// --- declarations ---

// TypeDecl is one class, struct or interface declaration; a partial type
// contributes one TypeDecl per fragment.
type TypeDecl struct {
	MemberBase
	Symbol     *Type
	IsPartial  bool
	Attributes []*Attribute
	Doc        []string
	BaseList   []*Type
	Members    []Member
}

func (*TypeDecl) declNode() {}

type EnumMember struct {
	Name  string
	Value *Constant
}

type EnumDecl struct {
	MemberBase
	Symbol  *Type
	Members []*EnumMember
	Doc     []string
}

func (*EnumDecl) declNode() {}

type NamespaceDecl struct {
	Pos     Pos
	Name    string
	Members []Decl
}

func (n *NamespaceDecl) Position() Pos { return n.Pos }
func (*NamespaceDecl) declNode()       {}

// CompilationUnit is one resolved source file.
type CompilationUnit struct {
	Path    string
	Members []Decl
}

// Program is every unit of one compilation.
type Program struct {
	Units []*CompilationUnit
}
