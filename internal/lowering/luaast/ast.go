// Package luaast is the output tree of the lowering pass. Every child is owned
// by exactly one parent. Identifiers are pointers: two references to the same
// generated label or temporary share one *Identifier.
package luaast

// Node is implemented by every output node.
type Node interface {
	luaNode()
}

// Expr is the closed set of expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the closed set of statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Member is the closed set of type-level members.
type Member interface {
	Node
	memberNode()
}

// Decl is the closed set of declarations held by a unit or namespace.
type Decl interface {
	Node
	declNode()
}

type expr struct{}

func (expr) luaNode()  {}
func (expr) exprNode() {}

type stmt struct{}

func (stmt) luaNode()  {}
func (stmt) stmtNode() {}

// --- expressions ---

type Identifier struct {
	expr
	Name string
}

// Ident creates a fresh identifier.
func Ident(name string) *Identifier {
	return &Identifier{Name: name}
}

// Literal is a literal in target syntax: `nil`, `true`, `3`, `"s"`.
type Literal struct {
	expr
	Text string
}

func Lit(text string) *Literal {
	return &Literal{Text: text}
}

// Nil, True and False return fresh literals.
func Nil() *Literal   { return Lit("nil") }
func True() *Literal  { return Lit("true") }
func False() *Literal { return Lit("false") }

// MemberAccess is `Target.Name`, or `Target:Name` when Colon is set.
type MemberAccess struct {
	expr
	Target Expr
	Name   *Identifier
	Colon  bool
}

// Dot builds `target.name`.
func Dot(target Expr, name string) *MemberAccess {
	return &MemberAccess{Target: target, Name: Ident(name)}
}

// Index is `Target[Key]`.
type Index struct {
	expr
	Target Expr
	Key    Expr
}

type Invocation struct {
	expr
	Target Expr
	Args   []Expr
}

// Call builds an invocation.
func Call(target Expr, args ...Expr) *Invocation {
	return &Invocation{Target: target, Args: args}
}

// Binary operators use target spelling: `and`, `or`, `~=`, `..`, `//`.
type Binary struct {
	expr
	Op    string
	Left  Expr
	Right Expr
}

func Bin(left Expr, op string, right Expr) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Unary operators: `not`, `-`, `~`, `#`.
type Unary struct {
	expr
	Op      string
	Operand Expr
}

type Paren struct {
	expr
	Inner Expr
}

// Function is a function expression.
type Function struct {
	expr
	Params []*Identifier
	Body   *Block
	Vararg bool
}

// Table is a table constructor with positional items.
type Table struct {
	expr
	Items []Expr
}

// AdapterKind selects the accessor a PropertyAdapter invokes.
type AdapterKind int

const (
	AdapterGet AdapterKind = iota
	AdapterSet
	AdapterAdd
	AdapterRemove
)

func (k AdapterKind) Prefix() string {
	switch k {
	case AdapterSet:
		return "set"
	case AdapterAdd:
		return "add"
	case AdapterRemove:
		return "remove"
	}
	return "get"
}

// PropertyAdapter is a call through an accessor pair:
// `Target:getName(Args...)` or `Target:setName(Args..., Value)`.
type PropertyAdapter struct {
	expr
	Target Expr
	Name   string
	Colon  bool
	Kind   AdapterKind
	Args   []Expr // indexer keys
	Value  Expr   // set/add/remove operand
}

// CloneAs returns an adapter for the same member with another accessor kind.
// Target and Args are shared; callers must only use one of the two in the tree
// unless the target is side-effect free.
func (p *PropertyAdapter) CloneAs(kind AdapterKind, value Expr) *PropertyAdapter {
	return &PropertyAdapter{Target: p.Target, Name: p.Name, Colon: p.Colon, Kind: kind, Args: p.Args, Value: value}
}

// Splice is verbatim target text with embedded expressions, produced by a
// member template. Parts are rendered back to back.
type Splice struct {
	expr
	Parts []Expr
}

// --- statements ---

type Block struct {
	Stmts []Stmt
}

func (b *Block) Add(s ...Stmt) {
	b.Stmts = append(b.Stmts, s...)
}

type ExprStmt struct {
	stmt
	X Expr
}

type Assignment struct {
	stmt
	Left  Expr
	Right Expr
}

// MultipleAssignment is `a, b = x, y`.
type MultipleAssignment struct {
	stmt
	Lefts  []Expr
	Rights []Expr
}

type LocalDecl struct {
	stmt
	Names  []*Identifier
	Values []Expr
}

// Local declares a single local.
func Local(name *Identifier, value Expr) *LocalDecl {
	d := &LocalDecl{Names: []*Identifier{name}}
	if value != nil {
		d.Values = []Expr{value}
	}
	return d
}

type LocalFunction struct {
	stmt
	Name *Identifier
	Fn   *Function
}

// Return carries zero or more values; more than one is a multiple return.
type Return struct {
	stmt
	Values []Expr
}

type ElseIf struct {
	Cond Expr
	Body *Block
}

type If struct {
	stmt
	Cond    Expr
	Body    *Block
	ElseIfs []*ElseIf
	Else    *Block
}

type While struct {
	stmt
	Cond Expr
	Body *Block
}

// Repeat is `repeat Body until Until`.
type Repeat struct {
	stmt
	Body  *Block
	Until Expr
}

type ForIn struct {
	stmt
	Names []*Identifier
	Iter  Expr
	Body  *Block
}

type Do struct {
	stmt
	Body *Block
}

type Break struct{ stmt }

type Goto struct {
	stmt
	Label *Identifier
}

type Label struct {
	stmt
	Name *Identifier
}

type Comment struct {
	stmt
	Text string
}

// LabeledBlock is a switch section that is also the target of a goto.
type LabeledBlock struct {
	Label *Identifier
	Body  *Block
}

// Switch is a linearized switch: the scrutinee held in Temp, the section
// chain, then the goto targets, inside a single-iteration repeat.
type Switch struct {
	stmt
	Temp    *Identifier
	Value   Expr
	Chain   *If
	Targets []*LabeledBlock
}

// --- declarations ---

type TypeKind int

const (
	Class TypeKind = iota
	Struct
	Interface
)

func (k TypeKind) String() string {
	switch k {
	case Struct:
		return "struct"
	case Interface:
		return "interface"
	}
	return "class"
}

type Field struct {
	Name     *Identifier
	Value    Expr
	Static   bool
	Private  bool
	ReadOnly bool
	Const    bool
}

func (*Field) luaNode()    {}
func (*Field) memberNode() {}

// Property is an accessor pair. A nil accessor is auto-implemented by the
// emitter. Events use Add and Remove in place of Get and Set.
type Property struct {
	Name    *Identifier
	Static  bool
	Private bool
	IsEvent bool
	Get     *Function
	Set     *Function
	HasSet  bool
	Value   Expr
}

func (*Property) luaNode()    {}
func (*Property) memberNode() {}

type Method struct {
	Name       *Identifier
	Fn         *Function
	Static     bool
	Private    bool
	Abstract   bool
	TypeParams []*Identifier
}

func (*Method) luaNode()    {}
func (*Method) memberNode() {}

type TypeDeclaration struct {
	Kind       TypeKind
	Name       *Identifier
	Namespace  string
	TypeParams []*Identifier
	BaseTypes  []Expr
	Attributes []Expr
	Doc        []string
	Members    []Member

	// ForceStaticCtor asks the emitter for an empty static constructor.
	ForceStaticCtor bool
	StructHelpers   bool

	// StaticReadOnlyAssigned lists static readonly fields written outside
	// their initializer.
	StaticReadOnlyAssigned []string
}

func (*TypeDeclaration) luaNode()    {}
func (*TypeDeclaration) memberNode() {}
func (*TypeDeclaration) declNode()   {}

// AddMember appends m.
func (t *TypeDeclaration) AddMember(m Member) {
	t.Members = append(t.Members, m)
}

// AddStaticReadOnlyAssigned records name once.
func (t *TypeDeclaration) AddStaticReadOnlyAssigned(name string) {
	for _, n := range t.StaticReadOnlyAssigned {
		if n == name {
			return
		}
	}
	t.StaticReadOnlyAssigned = append(t.StaticReadOnlyAssigned, name)
}

type EnumValue struct {
	Name  *Identifier
	Value Expr
}

type EnumDeclaration struct {
	Name      *Identifier
	Namespace string
	Values    []*EnumValue
	Doc       []string
}

func (*EnumDeclaration) luaNode()    {}
func (*EnumDeclaration) memberNode() {}
func (*EnumDeclaration) declNode()   {}

type Namespace struct {
	Name    string
	Members []Decl
}

func (*Namespace) luaNode()  {}
func (*Namespace) declNode() {}

// CompilationUnit is the lowered form of one source unit.
type CompilationUnit struct {
	Path    string
	Members []Decl
}

func (*CompilationUnit) luaNode() {}
