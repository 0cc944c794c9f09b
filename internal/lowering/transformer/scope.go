package transformer

import (
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

type unitFrame struct {
	path  string
	index int
	seq   int // declarations seen so far, orders partial fragments
}

type typeFrame struct {
	sym  *resolved.Type
	decl *luaast.TypeDeclaration

	ctors      []*ctorInfo
	staticCtor *luaast.Method

	// field initializers that cannot be folded into the declaration
	instanceInit *functionFrame
	staticInit   *functionFrame
}

type ctorInfo struct {
	fn        *luaast.Function
	chainThis bool // `: this(...)` runs the initializers already
	initAt    int  // body index after the base constructor call
}

// methodInfo threads by-reference parameters into every return of a method.
type methodInfo struct {
	sym  *resolved.Symbol
	refs []*luaast.Identifier
}

type functionFrame struct {
	fn           *luaast.Function
	temps        *tempArena
	method       *methodInfo
	isStaticCtor bool
	isCtor       bool
	loops        []*loopFrame
	switches     []*switchFrame
}

type loopFrame struct {
	sentinel *luaast.Identifier // nil when the body has no continue
	switches int                // switch depth when the loop was entered
}

type switchFrame struct {
	stmt     *resolved.Switch
	sections map[caseKey]int
	labels   map[int]*luaast.Identifier
	// continued is set when a continue inside the switch leaves it on its
	// way to the enclosing loop.
	continued bool
}

// --- compilation unit ---

func (t *Transformer) pushUnit(f *unitFrame) func() {
	t.units = append(t.units, f)
	return func() { t.units = t.units[:len(t.units)-1] }
}

func (t *Transformer) curUnit() (*unitFrame, error) {
	if len(t.units) == 0 {
		return nil, lowerr.NewInvariantError("no active compilation unit")
	}
	return t.units[len(t.units)-1], nil
}

// --- type declaration ---

func (t *Transformer) pushType(f *typeFrame) func() {
	t.types = append(t.types, f)
	return func() { t.types = t.types[:len(t.types)-1] }
}

func (t *Transformer) curType() (*typeFrame, error) {
	if len(t.types) == 0 {
		return nil, lowerr.NewInvariantError("no active type declaration")
	}
	return t.types[len(t.types)-1], nil
}

// curTypeSym returns the enclosing type symbol, or nil at unit level.
func (t *Transformer) curTypeSym() *resolved.Type {
	if len(t.types) == 0 {
		return nil
	}
	return t.types[len(t.types)-1].sym
}

// addMember appends a member to the enclosing type declaration.
func (t *Transformer) addMember(m luaast.Member) error {
	frame, err := t.curType()
	if err != nil {
		return err
	}
	frame.decl.AddMember(m)
	return nil
}

// --- function ---

func (t *Transformer) pushFunction(f *functionFrame) func() {
	if f.temps == nil {
		f.temps = newTempArena(t.tempLimit)
	}
	t.functions = append(t.functions, f)
	return func() { t.functions = t.functions[:len(t.functions)-1] }
}

func (t *Transformer) curFunction(pos resolved.Pos) (*functionFrame, error) {
	if len(t.functions) == 0 {
		return nil, lowerr.NewInvariantErrorAt(t.location(pos), "no active function")
	}
	return t.functions[len(t.functions)-1], nil
}

// inStaticCtor reports whether code is being lowered into a static
// constructor or a static field initializer.
func (t *Transformer) inStaticCtor() bool {
	return len(t.functions) > 0 && t.functions[len(t.functions)-1].isStaticCtor
}

// --- block ---

func (t *Transformer) pushBlock(b *luaast.Block) func() {
	t.blocks = append(t.blocks, b)
	return func() { t.blocks = t.blocks[:len(t.blocks)-1] }
}

// emit appends statements to the current block. Every lowering entry point
// opens a block first, so a missing one is a bug in the transformer.
func (t *Transformer) emit(s ...luaast.Stmt) {
	if len(t.blocks) == 0 {
		panic("transformer: emit outside of a block")
	}
	t.blocks[len(t.blocks)-1].Add(s...)
}

// inBlock lowers fn with b as the current block.
func (t *Transformer) inBlock(b *luaast.Block, fn func() error) error {
	pop := t.pushBlock(b)
	defer pop()
	return fn()
}

// capture lowers an expression into a scratch block and returns both, so the
// caller can decide where any hoisted statements go.
func (t *Transformer) capture(fn func() (luaast.Expr, error)) (luaast.Expr, *luaast.Block, error) {
	b := &luaast.Block{}
	var e luaast.Expr
	err := t.inBlock(b, func() error {
		var err error
		e, err = fn()
		return err
	})
	return e, b, err
}

// --- loops and switches ---

func (t *Transformer) pushLoop(pos resolved.Pos, l *loopFrame) (func(), error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	l.switches = len(f.switches)
	f.loops = append(f.loops, l)
	return func() { f.loops = f.loops[:len(f.loops)-1] }, nil
}

func (t *Transformer) curLoop(pos resolved.Pos) (*loopFrame, error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	if len(f.loops) == 0 {
		return nil, t.shapeErr(pos, "continue outside of a loop")
	}
	return f.loops[len(f.loops)-1], nil
}

// sentinelDepth counts the enclosing loops that already own a sentinel.
func (f *functionFrame) sentinelDepth() int {
	n := 0
	for _, l := range f.loops {
		if l.sentinel != nil {
			n++
		}
	}
	return n
}

func (t *Transformer) pushSwitch(pos resolved.Pos, s *switchFrame) (func(), error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	f.switches = append(f.switches, s)
	return func() { f.switches = f.switches[:len(f.switches)-1] }, nil
}

func (t *Transformer) curSwitch(pos resolved.Pos) (*switchFrame, error) {
	f, err := t.curFunction(pos)
	if err != nil {
		return nil, err
	}
	if len(f.switches) == 0 {
		return nil, t.shapeErr(pos, "goto case outside of a switch")
	}
	return f.switches[len(f.switches)-1], nil
}
