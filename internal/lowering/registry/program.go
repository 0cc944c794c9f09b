// Package registry holds the program-wide state shared by concurrent unit
// lowerings: the type and enum tables, the entry-point slot, member names and
// the partial-type coordinator.
//
// Thread-safe: all methods can be called concurrently.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// MemberKind is the representation chosen for a field, property or event.
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberAccessor
)

func (k MemberKind) String() string {
	if k == MemberAccessor {
		return "accessor"
	}
	return "field"
}

// MemberInfo records how a member is represented and what it is called.
type MemberInfo struct {
	Kind MemberKind
	Name string
}

// Program is the set of shared registries for one compilation.
type Program struct {
	mu sync.RWMutex

	// types maps a type symbol to its sealed declaration
	types map[*resolved.Type]*luaast.TypeDeclaration

	// enums maps an enum symbol to its declaration
	enums map[*resolved.Type]*luaast.EnumDeclaration

	// members caches member classification by symbol
	members map[*resolved.Symbol]MemberInfo

	entry atomic.Pointer[resolved.Symbol]
}

// NewProgram creates empty registries.
func NewProgram() *Program {
	return &Program{
		types:   make(map[*resolved.Type]*luaast.TypeDeclaration),
		enums:   make(map[*resolved.Type]*luaast.EnumDeclaration),
		members: make(map[*resolved.Symbol]MemberInfo),
	}
}

// RegisterType records decl for t. Registration is idempotent by symbol: the
// first declaration wins and later ones are reported as not added.
func (p *Program) RegisterType(t *resolved.Type, decl *luaast.TypeDeclaration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.types[t]; ok {
		return false
	}
	p.types[t] = decl
	return true
}

// LookupType returns the declaration registered for t.
func (p *Program) LookupType(t *resolved.Type) (*luaast.TypeDeclaration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.types[t]
	return d, ok
}

// RegisterEnum records decl for the enum e, idempotently.
func (p *Program) RegisterEnum(e *resolved.Type, decl *luaast.EnumDeclaration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.enums[e]; ok {
		return false
	}
	p.enums[e] = decl
	return true
}

// Types returns every registered type declaration ordered by full name.
func (p *Program) Types() []*luaast.TypeDeclaration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]*resolved.Type, 0, len(p.types))
	for t := range p.types {
		keys = append(keys, t)
	}
	sortTypes(keys)
	out := make([]*luaast.TypeDeclaration, len(keys))
	for i, t := range keys {
		out[i] = p.types[t]
	}
	return out
}

// Enums returns every registered enum declaration ordered by full name.
func (p *Program) Enums() []*luaast.EnumDeclaration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]*resolved.Type, 0, len(p.enums))
	for t := range p.enums {
		keys = append(keys, t)
	}
	sortTypes(keys)
	out := make([]*luaast.EnumDeclaration, len(keys))
	for i, t := range keys {
		out[i] = p.enums[t]
	}
	return out
}

// SetEntryPoint stores the program entry point. Only the first call succeeds.
func (p *Program) SetEntryPoint(main *resolved.Symbol) error {
	if p.entry.CompareAndSwap(nil, main) {
		return nil
	}
	prev := p.entry.Load()
	return lowerr.NewInvariantError(fmt.Sprintf("program has more than one entry point: %s and %s", prev, main))
}

// EntryPoint returns the registered entry point, or nil.
func (p *Program) EntryPoint() *resolved.Symbol {
	return p.entry.Load()
}

// RegisterMember records the representation of sym. When sym is already
// known the stored info is returned unchanged.
func (p *Program) RegisterMember(sym *resolved.Symbol, info MemberInfo) MemberInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.members[sym]; ok {
		return prev
	}
	p.members[sym] = info
	return info
}

// Member returns the recorded representation of sym.
func (p *Program) Member(sym *resolved.Symbol) (MemberInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.members[sym]
	return info, ok
}

func sortTypes(ts []*resolved.Type) {
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].String() < ts[j].String()
	})
}
