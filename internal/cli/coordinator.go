package cli

import (
	"time"

	"github.com/spf13/cobra"

	"sensorfusion/internal/config"
	"sensorfusion/internal/node"
	"sensorfusion/internal/printer"
	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
)

const coordinatorNodeID = "coordinator"

type coordinatorOptions struct {
	listen string
	period time.Duration
}

// NewCoordinatorCommand creates the coordinator command.
func NewCoordinatorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &coordinatorOptions{}

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Serve the reconcile coordinator and run the scheduled trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoordinator(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default: coordinator.listen)")
	cmd.Flags().DurationVar(&opts.period, "period", 0, "reconcile period (default: coordinator.period)")

	return cmd
}

func runCoordinator(cmd *cobra.Command, rootOpts *RootOptions, opts *coordinatorOptions) error {
	cfg := rootOpts.Config
	if opts.listen != "" {
		cfg.Coordinator.Listen = opts.listen
	}
	if opts.period != 0 {
		cfg.Coordinator.Period = opts.period
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

	coord, err := reconcile.NewCoordinator(coordinatorNodeID, endpoints, cfg.Coordinator.SensorTimeout)
	if err != nil {
		return printer.Error(cmd.ErrOrStderr(), "failed to create coordinator", err.Error(), nil)
	}

	ctx := cmd.Context()
	trigger := reconcile.NewTrigger(coordinatorNodeID, coord, cfg.Coordinator.Period)
	trigger.Start(ctx)
	defer trigger.Stop()

	n := node.NewCoordinatorNode(coordinatorNodeID, cfg.Coordinator.Listen, coord)
	return serve(ctx, cmd, n, coordinatorNodeID)
}

// remoteSensors builds gRPC endpoints for every configured sensor.
func remoteSensors(cfg *config.Config, cm *node.ClientManager) ([]sensor.Endpoint, error) {
	sensors, err := cfg.SensorList()
	if err != nil {
		return nil, err
	}
	endpoints := make([]sensor.Endpoint, len(sensors))
	for i, s := range sensors {
		endpoints[i] = node.NewRemoteSensor(s.ID, s.Addr, cm)
	}
	return endpoints, nil
}
