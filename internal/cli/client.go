package cli

import (
	"time"

	"github.com/spf13/cobra"

	"sensorfusion/internal/client"
	"sensorfusion/internal/node"
	"sensorfusion/internal/printer"
	"sensorfusion/internal/quorum"
)

const clientNodeID = "client"

type clientOptions struct {
	tolerance  float64
	required   int
	intervalMs int
	watch      bool
}

// NewClientCommand creates the client command.
func NewClientCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Read the sensors and report the fused value",
		Long: `Read every sensor and report the mean of the readings that lie within
--tol of the overall mean. When too few readings agree, ask the coordinator to
reconcile, then report the mean of a fresh read.

Examples:
  # One round with the default tolerance
  sensorfusion client

  # Report every two seconds until interrupted
  sensorfusion client --tol 0.5 --interval 2000 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.tolerance, "tol", quorum.DefaultTolerance, "inlier tolerance around the mean")
	cmd.Flags().IntVar(&opts.required, "required", 0, "inliers required to accept (0 = majority)")
	cmd.Flags().IntVar(&opts.intervalMs, "interval", int(client.DefaultInterval/time.Millisecond), "milliseconds between rounds with --watch")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "repeat rounds until interrupted")

	return cmd
}

func runClient(cmd *cobra.Command, rootOpts *RootOptions, opts *clientOptions) error {
	cfg := rootOpts.Config
	flags := cmd.Flags()
	if flags.Changed("tol") {
		cfg.Client.Tolerance = opts.tolerance
	}
	if flags.Changed("required") {
		cfg.Client.Required = opts.required
	}
	if flags.Changed("interval") {
		cfg.Client.Interval = time.Duration(opts.intervalMs) * time.Millisecond
	}
	if _, err := rootOpts.validated(cmd); err != nil {
		return err
	}

	cm := node.NewClientManager()
	defer cm.Close()

	endpoints, err := remoteSensors(cfg, cm)
	if err != nil {
		return printer.Error(cmd.ErrOrStderr(), "invalid sensors", err.Error(), nil)
	}

	loopOpts := cfg.ClientOptions()
	loopOpts.Watch = opts.watch
	loopOpts.Verbose = rootOpts.Verbose

	loop, err := client.NewLoop(clientNodeID, endpoints,
		node.NewRemoteCoordinator(cfg.Coordinator.Addr, cm),
		printer.New(cmd.OutOrStdout()), loopOpts)
	if err != nil {
		return printer.Error(cmd.ErrOrStderr(), "invalid client options", err.Error(), nil)
	}

	if err := loop.Run(cmd.Context()); err != nil {
		return printer.Error(cmd.ErrOrStderr(), "client failed", err.Error(), []string{
			"Check that every sensor is running: sensorfusion sensor --id <id>",
			"Check that the coordinator is running: sensorfusion coordinator",
		})
	}
	return nil
}
