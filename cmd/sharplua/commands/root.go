// Package commands provides the CLI commands for the sharplua tool.
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	statusColor = color.New(color.FgGreen)
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sharplua",
		Short: "Lower resolved C# programs to a Lua syntax tree",
		Long: `sharplua lowers the resolved program produced by the C# front end into the
Lua syntax tree consumed by the emitter.

Usage:
  sharplua lower program.srp              Lower and report a summary
  sharplua lower program.srp --dump       Print the lowered tree
  sharplua lower program.srp -m out.msgpack
  sharplua version                        Print version`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newLowerCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error:"), err)
		os.Exit(1)
	}
}
