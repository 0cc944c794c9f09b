// Package driver runs the lowering of a whole program: every unit in
// parallel, then the merge of partial types once all units are visited.
package driver

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"martianoff/sharplua/internal/lowering"
	"martianoff/sharplua/internal/lowering/config"
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/registry"
	"martianoff/sharplua/internal/lowering/resolved"
	"martianoff/sharplua/internal/lowering/template"
	"martianoff/sharplua/internal/lowering/transformer"
	"martianoff/sharplua/internal/lowering/wire"
	"martianoff/sharplua/lowerr"
)

// Driver lowers one program. It is not reusable: the registries it owns
// belong to a single run.
type Driver struct {
	env *transformer.Env

	logMu sync.Mutex
	log   io.Writer
}

// New creates a driver. Progress lines go to log when settings.Verbose is
// set; log may be nil.
func New(settings *config.Settings, templates template.Provider, log io.Writer) *Driver {
	env := transformer.NewEnv(settings, templates)
	if !env.Settings.Verbose {
		log = nil
	}
	return &Driver{env: env, log: log}
}

// LoadTemplates reads the template files named by settings into one table.
func LoadTemplates(settings *config.Settings) (template.Provider, error) {
	if len(settings.Templates) == 0 {
		return template.None{}, nil
	}
	table := template.NewTable()
	for _, path := range settings.Templates {
		if err := table.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (d *Driver) logf(format string, args ...any) {
	if d.log == nil {
		return
	}
	d.logMu.Lock()
	defer d.logMu.Unlock()
	fmt.Fprintf(d.log, format+"\n", args...)
}

// Lower lowers every unit of prog and merges its partial types. Unit
// failures are collected so that one run reports all of them; any failure
// means no output.
func (d *Driver) Lower(ctx context.Context, prog *resolved.Program) (*lowering.Output, error) {
	units, err := d.collect(ctx, prog.Units)
	if err != nil {
		return nil, err
	}
	if err := d.env.Partials.Close(); err != nil {
		return nil, err
	}
	groups, err := d.env.Partials.Groups()
	if err != nil {
		return nil, err
	}
	types, err := d.merge(ctx, groups)
	if err != nil {
		return nil, err
	}

	out := &lowering.Output{
		Units: units,
		Types: types,
		Enums: d.env.Program.Enums(),
	}
	if main := d.env.Program.EntryPoint(); main != nil {
		out.EntryPoint = main.String()
		d.logf("entry point %s", out.EntryPoint)
	}
	return out, nil
}

func (d *Driver) jobs(n int) int {
	jobs := d.env.Settings.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

// collect is the first phase. Each unit gets its own transformer; the
// transformers meet only in the shared registries.
func (d *Driver) collect(ctx context.Context, units []*resolved.CompilationUnit) ([]*luaast.CompilationUnit, error) {
	out := make([]*luaast.CompilationUnit, len(units))
	errs := make([]error, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.jobs(len(units)))
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.logf("lowering %s", unit.Path)
			out[i], errs[i] = transformer.New(d.env).LowerUnit(unit, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := join(errs); err != nil {
		return nil, err
	}
	return out, nil
}

// merge is the second phase: every group is merged exactly once.
func (d *Driver) merge(ctx context.Context, groups []registry.Group) ([]*luaast.TypeDeclaration, error) {
	out := make([]*luaast.TypeDeclaration, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.jobs(len(groups)))
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.logf("merging partial type %s (%d fragments)", group.Type, len(group.Fragments))
			out[i], errs[i] = transformer.New(d.env).MergePartial(group)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := join(errs); err != nil {
		return nil, err
	}
	return out, nil
}

// join returns nil, the single error, or a MultiError in input order.
func join(errs []error) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	}
	return &lowerr.MultiError{Errors: failed}
}

// Manifest summarizes out together with every type registered during the
// run, including the ones declared in a single unit.
func (d *Driver) Manifest(out *lowering.Output) *wire.Manifest {
	m := &wire.Manifest{EntryPoint: out.EntryPoint}
	for _, u := range out.Units {
		m.Units = append(m.Units, u.Path)
	}
	for _, t := range d.env.Program.Types() {
		m.Types = append(m.Types, qualified(t.Namespace, t.Name.Name))
	}
	for _, e := range out.Enums {
		m.Enums = append(m.Enums, qualified(e.Namespace, e.Name.Name))
	}
	return m
}

func qualified(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}
