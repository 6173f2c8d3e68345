package cli

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"sensorfusion/internal/node"
	"sensorfusion/internal/printer"
	"sensorfusion/internal/sensor"
	"sensorfusion/internal/storage"
)

type sensorOptions struct {
	id        string
	listen    string
	backend   string
	dsn       string
	noSampler bool
}

// NewSensorCommand creates the sensor command.
func NewSensorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sensorOptions{}

	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Serve one sensor endpoint",
		Long: `Serve the Sensor gRPC service for one sensor id.

The sensor records a synthetic reading every few seconds while sampling is
enabled, and stores reconciled values written by the coordinator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSensor(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.id, "id", "", "sensor id from the sensors list (required)")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default: the sensor's address)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "storage backend: memory, sqlite or redis")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "storage DSN; {id} is replaced by the sensor id")
	cmd.Flags().BoolVar(&opts.noSampler, "no-sampler", false, "do not record synthetic readings")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runSensor(cmd *cobra.Command, rootOpts *RootOptions, opts *sensorOptions) error {
	cfg := rootOpts.Config
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.dsn != "" {
		cfg.Storage.DSN = opts.dsn
	}
	if _, err := rootOpts.validated(cmd); err != nil {
		return err
	}

	self, err := cfg.FindSensor(opts.id)
	if err != nil {
		return printer.Error(cmd.ErrOrStderr(), "unknown sensor", err.Error(), nil)
	}
	listen := opts.listen
	if listen == "" {
		listen = self.Addr
	}

	ctx := cmd.Context()
	store, err := storage.Open(ctx, cfg.Storage.Backend, cfg.Storage.DSNFor(self.ID), self.ID)
	if err != nil {
		return printer.Error(cmd.ErrOrStderr(), "failed to open storage", err.Error(), nil)
	}
	defer store.Close()

	svc := sensor.NewService(self.ID, store)

	if !opts.noSampler {
		sampler := sensor.NewSampler(svc, cfg.Sampler.Settings(), nil)
		sampler.Start()
		defer sampler.Stop()
	}

	n := node.NewSensorNode(self.ID, listen, svc)
	return serve(ctx, cmd, n, self.ID)
}

// serve runs n until ctx is done.
func serve(ctx context.Context, cmd *cobra.Command, n *node.Node, nodeID string) error {
	go func() {
		<-ctx.Done()
		log.Printf("[%s] Shutting down", nodeID)
		n.Stop()
	}()

	if err := n.Start(); err != nil {
		return printer.Error(cmd.ErrOrStderr(), "node failed", err.Error(), nil)
	}
	return nil
}
