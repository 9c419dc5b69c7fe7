// Package console is the fenix command line.
package console

import (
	"github.com/spf13/cobra"
)

type command interface {
	registerFlags() *cobra.Command
	run(cmd *cobra.Command, args []string) error
}

// NewRootCommand builds the fenix command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fenix",
		Short:         "fenix runs and demonstrates the service registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addCmd(root, &serveCmd{})
	addCmd(root, &demoCmd{})
	return root
}

func addCmd(root *cobra.Command, cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = cmd.run
	root.AddCommand(cobraCmd)
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
