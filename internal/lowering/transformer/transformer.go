// Package transformer lowers resolved units into the luaast output tree.
//
// A Transformer is single-threaded: the driver gives each worker its own
// instance, and instances share state only through the registries in Env.
package transformer

import (
	"fmt"

	"martianoff/sharplua/internal/lowering"
	"martianoff/sharplua/internal/lowering/config"
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/template"
	"martianoff/sharplua/lowerr"
)

// Env is the program-wide state shared by every Transformer of one run.
type Env struct {
	Program   *registry.Program
	Partials  *registry.Coordinator
	Templates template.Provider
	Settings  *config.Settings
}

// NewEnv creates an Env with empty registries.
func NewEnv(settings *config.Settings, templates template.Provider) *Env {
	if settings == nil {
		settings = config.Default()
	}
	if templates == nil {
		templates = template.None{}
	}
	return &Env{
		Program:   registry.NewProgram(),
		Partials:  registry.NewCoordinator(),
		Templates: templates,
		Settings:  settings,
	}
}

type Transformer struct {
	env       *Env
	newest    bool
	tempLimit int

	units     []*unitFrame
	types     []*typeFrame
	functions []*functionFrame
	blocks    []*luaast.Block
}

// New creates a Transformer bound to env.
func New(env *Env) *Transformer {
	limit := env.Settings.TempLimit
	if limit <= 0 || limit > config.MaxTempLimit {
		limit = config.MaxTempLimit
	}
	return &Transformer{
		env:       env,
		newest:    env.Settings.Newest,
		tempLimit: limit,
	}
}

func (t *Transformer) reset() {
	t.units = nil
	t.types = nil
	t.functions = nil
	t.blocks = nil
}

// LowerUnit lowers one unit. Partial types are collected into the
// coordinator instead of being emitted in the unit.
func (t *Transformer) LowerUnit(unit *resolved.CompilationUnit, index int) (*luaast.CompilationUnit, error) {
	t.reset()
	return t.lowerUnit(unit, index)
}

// MergePartial assembles a logical partial type. Every unit must have been
// lowered and the coordinator closed.
func (t *Transformer) MergePartial(group registry.Group) (*luaast.TypeDeclaration, error) {
	t.reset()
	if err := t.env.Partials.Begin(group.Type); err != nil {
		return nil, err
	}
	decl, err := t.mergePartial(group)
	if err != nil {
		return nil, err
	}
	if err := t.env.Partials.Seal(group.Type, decl); err != nil {
		return nil, err
	}
	t.env.Program.RegisterType(group.Type, decl)
	return decl, nil
}

// shapeErr builds an input-shape error at pos.
func (t *Transformer) shapeErr(pos resolved.Pos, format string, args ...any) error {
	return lowerr.NewShapeErrorAt(t.location(pos), fmt.Sprintf(format, args...))
}

func (t *Transformer) location(pos resolved.Pos) lowerr.Location {
	loc := pos.Location()
	if loc.File == "" && len(t.units) > 0 {
		loc.File = t.units[len(t.units)-1].path
	}
	return loc
}

var (
	_ lowering.UnitLowerer   = (*Transformer)(nil)
	_ lowering.PartialMerger = (*Transformer)(nil)
)
