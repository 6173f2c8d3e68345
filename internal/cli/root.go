package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"sensorfusion/internal/config"
	"sensorfusion/internal/printer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// Config is loaded by the root PersistentPreRunE.
	Config *config.Config
}

// NewRootCommand creates the root command for the sensorfusion CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sensorfusion",
		Short: "Fuse redundant sensor readings with quorum and reconciliation",
		Long: `sensorfusion reads a set of redundant temperature sensors, accepts the
mean of the readings that agree within a tolerance, and asks the coordinator
to reconcile every sensor to a common value when they do not.

Run one "sensor" per sensor id, one "coordinator", then any number of
"client" commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetFlags(log.LstdFlags | log.Lmicroseconds)

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "invalid configuration", err.Error(), nil)
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return printer.Error(c.ErrOrStderr(), err.Error(), "", []string{"Run '" + c.CommandPath() + " --help' for usage."})
	})

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewSensorCommand(opts))
	cmd.AddCommand(NewCoordinatorCommand(opts))
	cmd.AddCommand(NewClientCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewSamplingCommand(opts))

	return cmd
}

// Execute runs the command tree with args. Errors have already been printed
// to stderr when it returns.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// validated returns the loaded config after validation.
func (o *RootOptions) validated(cmd *cobra.Command) (*config.Config, error) {
	if err := o.Config.Validate(); err != nil {
		return nil, printer.Error(cmd.ErrOrStderr(), "invalid configuration", err.Error(), []string{
			"Fix the config file passed with --config",
		})
	}
	return o.Config, nil
}
