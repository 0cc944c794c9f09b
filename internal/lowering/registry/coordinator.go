package registry

import (
	"fmt"
	"sort"
	"sync"

	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// MergeState is the lifecycle of one logical partial type.
type MergeState int

const (
	Collecting MergeState = iota
	Merging
	Sealed
)

func (s MergeState) String() string {
	switch s {
	case Merging:
		return "merging"
	case Sealed:
		return "sealed"
	}
	return "collecting"
}

// Fragment is one partial declaration of a logical type.
type Fragment struct {
	Type      *resolved.Type
	Decl      *resolved.TypeDecl
	Unit      string
	UnitIndex int // position of the unit in the program
	Seq       int // position of the declaration inside its unit
	Namespace string
}

// Group is the immutable set of fragments of one logical type, in unit order.
type Group struct {
	Type      *resolved.Type
	Fragments []*Fragment
}

type group struct {
	fragments []*Fragment
	state     MergeState
	sealed    *luaast.TypeDeclaration
}

// Coordinator buffers partial-type fragments during the collection phase
// and drives the merge of each logical type exactly once afterwards.
type Coordinator struct {
	mu     sync.Mutex
	closed bool
	groups map[*resolved.Type]*group
}

// NewCoordinator creates a coordinator in the collection phase.
func NewCoordinator() *Coordinator {
	return &Coordinator{groups: make(map[*resolved.Type]*group)}
}

// Collect appends a fragment. It fails once Close has been called.
func (c *Coordinator) Collect(f *Fragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return lowerr.NewInvariantError(fmt.Sprintf("fragment of %s collected after all units were visited", f.Type))
	}
	g, ok := c.groups[f.Type]
	if !ok {
		g = &group{}
		c.groups[f.Type] = g
	}
	g.fragments = append(g.fragments, f)
	return nil
}

// Close signals that every unit has been visited. It verifies that each
// logical type received as many fragments as its symbol declares.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, t := range c.sortedKeys() {
		g := c.groups[t]
		if t.Fragments > 0 && len(g.fragments) != t.Fragments {
			errs = append(errs, lowerr.NewInvariantError(fmt.Sprintf(
				"partial type %s: collected %d of %d fragments", t, len(g.fragments), t.Fragments)))
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &lowerr.MultiError{Errors: errs}
}

// Groups returns every logical type with its fragments, ordered by type name.
// Fragments are ordered by unit and position, independent of the order in
// which concurrent workers collected them.
func (c *Coordinator) Groups() ([]Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		return nil, lowerr.NewInvariantError("partial types requested before all units were visited")
	}
	keys := c.sortedKeys()
	out := make([]Group, 0, len(keys))
	for _, t := range keys {
		frags := append([]*Fragment(nil), c.groups[t].fragments...)
		sort.SliceStable(frags, func(i, j int) bool {
			if frags[i].UnitIndex != frags[j].UnitIndex {
				return frags[i].UnitIndex < frags[j].UnitIndex
			}
			return frags[i].Seq < frags[j].Seq
		})
		out = append(out, Group{Type: t, Fragments: frags})
	}
	return out, nil
}

// Begin moves t from Collecting to Merging.
func (c *Coordinator) Begin(t *resolved.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		return lowerr.NewInvariantError(fmt.Sprintf("partial type %s merged before all units were visited", t))
	}
	g, ok := c.groups[t]
	if !ok {
		return lowerr.NewInvariantError(fmt.Sprintf("partial type %s has no fragments", t))
	}
	if g.state != Collecting {
		return lowerr.NewInvariantError(fmt.Sprintf("partial type %s merged more than once", t))
	}
	g.state = Merging
	return nil
}

// Seal stores the merged declaration of t and moves it to Sealed.
func (c *Coordinator) Seal(t *resolved.Type, decl *luaast.TypeDeclaration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[t]
	if !ok || g.state != Merging {
		return lowerr.NewInvariantError(fmt.Sprintf("partial type %s sealed without a merge in progress", t))
	}
	g.state = Sealed
	g.sealed = decl
	return nil
}

// State reports the merge state of t.
func (c *Coordinator) State(t *resolved.Type) (MergeState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[t]
	if !ok {
		return Collecting, false
	}
	return g.state, true
}

// Sealed returns the merged declaration of t once it is sealed.
func (c *Coordinator) Sealed(t *resolved.Type) (*luaast.TypeDeclaration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[t]
	if !ok || g.state != Sealed {
		return nil, false
	}
	return g.sealed, true
}

func (c *Coordinator) sortedKeys() []*resolved.Type {
	keys := make([]*resolved.Type, 0, len(c.groups))
	for t := range c.groups {
		keys = append(keys, t)
	}
	sortTypes(keys)
	return keys
}
