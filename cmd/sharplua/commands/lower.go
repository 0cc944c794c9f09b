package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/sharplua/internal/driver"
	"martianoff/sharplua/internal/lowering/config"
	"martianoff/sharplua/internal/lowering/luaast"
	"martianoff/sharplua/internal/lowering/wire"
)

type lowerOptions struct {
	configPath string
	newest     bool
	tempLimit  int
	jobs       int
	templates  []string
	verbose    bool
	dump       bool
	manifest   string
}

func newLowerCmd() *cobra.Command {
	o := &lowerOptions{}
	cmd := &cobra.Command{
		Use:   "lower <program.srp>",
		Short: "Lower a resolved program",
		Long: `Lower a resolved program written by the front end.

Settings come from --config, $SHARPLUA_CONFIG or ./sharplua.toml, in that
order; flags given on the command line override the file.

Examples:
  sharplua lower app.srp --dump
  sharplua lower app.srp --newest --jobs 4 -m app.manifest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "Path to the settings file")
	f.BoolVar(&o.newest, "newest", false, "Use native Lua 5.3 operators instead of runtime helpers")
	f.IntVar(&o.tempLimit, "temp-limit", config.MaxTempLimit, "Temporaries one function may allocate")
	f.IntVarP(&o.jobs, "jobs", "j", 0, "Units lowered in parallel (0 = GOMAXPROCS)")
	f.StringSliceVarP(&o.templates, "template", "t", nil, "Additional member template file")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Report progress on stderr")
	f.BoolVar(&o.dump, "dump", false, "Print the lowered tree")
	f.StringVarP(&o.manifest, "manifest", "m", "", "Write the msgpack manifest to this path")
	return cmd
}

// settings loads the settings file and applies the flags that were set.
func (o *lowerOptions) settings(cmd *cobra.Command) (*config.Settings, error) {
	s := config.Default()
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		s = loaded
	}

	f := cmd.Flags()
	if f.Changed("newest") {
		s.Newest = o.newest
	}
	if f.Changed("temp-limit") {
		s.TempLimit = o.tempLimit
	}
	if f.Changed("jobs") {
		s.Jobs = o.jobs
	}
	if f.Changed("verbose") {
		s.Verbose = o.verbose
	}
	s.Templates = append(s.Templates, o.templates...)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *lowerOptions) run(cmd *cobra.Command, input string) error {
	s, err := o.settings(cmd)
	if err != nil {
		return err
	}
	templates, err := driver.LoadTemplates(s)
	if err != nil {
		return err
	}
	prog, err := wire.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}

	d := driver.New(s, templates, cmd.ErrOrStderr())
	out, err := d.Lower(cmd.Context(), prog)
	if err != nil {
		return err
	}

	if o.dump {
		w := cmd.OutOrStdout()
		for _, u := range out.Units {
			fmt.Fprintln(w, luaast.Dump(u))
		}
		for _, t := range out.Types {
			fmt.Fprintln(w, luaast.Dump(t))
		}
	}
	if o.manifest != "" {
		if err := wire.WriteManifestFile(o.manifest, d.Manifest(out)); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	summary := fmt.Sprintf("lowered %d units, %d merged types, %d enums", len(out.Units), len(out.Types), len(out.Enums))
	if out.EntryPoint != "" {
		summary += ", entry point " + out.EntryPoint
	}
	fmt.Fprintln(cmd.ErrOrStderr(), statusColor.Sprint(summary))
	return nil
}
