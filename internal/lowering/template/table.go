package template

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/lowerr"
)

// Provider looks up a template for a library member. Lowering falls through
// to the ordinary rules when no template exists.
type Provider interface {
	Lookup(sym *resolved.Symbol) (*Template, bool)
}

// None is a Provider without templates.
type None struct{}

func (None) Lookup(*resolved.Symbol) (*Template, bool) { return nil, false }

// Table is a Provider backed by TOML files of the form
//
//	[methods]
//	"System.Console.WriteLine" = "print({0})"
//	"System.Math.Max#2" = "math.max({0}, {1})"
//
//	[fields]
//	"System.Math.PI" = "math.pi"
//
// A key suffixed with #N only matches members with N parameters and wins
// over the plain key.
type Table struct {
	mu      sync.RWMutex
	methods map[string]*Template
	fields  map[string]*Template
}

func NewTable() *Table {
	return &Table{
		methods: make(map[string]*Template),
		fields:  make(map[string]*Template),
	}
}

type tableFile struct {
	Methods map[string]string `toml:"methods"`
	Fields  map[string]string `toml:"fields"`
}

// LoadFile adds every template declared in a TOML file.
func (t *Table) LoadFile(path string) error {
	var f tableFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return fmt.Errorf("failed to parse templates %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return lowerr.NewInvariantError(fmt.Sprintf("%s: unknown template keys: %s", path, strings.Join(keys, ", ")))
	}
	for key, src := range f.Methods {
		if err := t.AddMethod(key, src); err != nil {
			return err
		}
	}
	for key, src := range f.Fields {
		if err := t.AddField(key, src); err != nil {
			return err
		}
	}
	return nil
}

// AddMethod registers a method template under key.
func (t *Table) AddMethod(key, src string) error {
	return t.add(t.methods, key, src)
}

// AddField registers a field or property template under key.
func (t *Table) AddField(key, src string) error {
	return t.add(t.fields, key, src)
}

func (t *Table) add(m map[string]*Template, key, src string) error {
	tmpl, err := Parse(src)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m[key] = tmpl
	return nil
}

// Len returns the number of registered templates.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.methods) + len(t.fields)
}

func (t *Table) Lookup(sym *resolved.Symbol) (*Template, bool) {
	if sym == nil || sym.ContainingType == nil {
		return nil, false
	}
	if sym.ReducedFrom != nil {
		sym = sym.ReducedFrom
	}
	key := sym.ContainingType.String() + "." + sym.Name
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch sym.Kind {
	case resolved.SymMethod:
		if tmpl, ok := t.methods[key+"#"+strconv.Itoa(len(sym.Parameters))]; ok {
			return tmpl, true
		}
		tmpl, ok := t.methods[key]
		return tmpl, ok
	case resolved.SymField, resolved.SymProperty:
		tmpl, ok := t.fields[key]
		return tmpl, ok
	}
	return nil, false
}
