package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sensorfusion/internal/node"
	"sensorfusion/internal/printer"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sensorID string
		lookback time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print a sensor's readings over a lookback window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, cm, err := remoteSensor(cmd, rootOpts, sensorID)
			if err != nil {
				return err
			}
			defer cm.Close()

			snap, err := remote.GetSnapshot(cmd.Context(), lookback)
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "snapshot failed", err.Error(), nil)
			}

			values := make([]string, len(snap.Values))
			for i, v := range snap.Values {
				values[i] = fmt.Sprintf("%.3f", v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s .. %s (%d readings)\n",
				snap.SensorID, snap.From.Format(time.RFC3339), snap.To.Format(time.RFC3339), len(snap.Values))
			if len(values) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(values, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sensorID, "sensor", "", "sensor id (required)")
	cmd.Flags().DurationVar(&lookback, "lookback", time.Minute, "window size")
	_ = cmd.MarkFlagRequired("sensor")

	return cmd
}

var samplingState = map[string]string{"start": "started", "stop": "stopped"}

// NewSamplingCommand creates the sampling command.
func NewSamplingCommand(rootOpts *RootOptions) *cobra.Command {
	var sensorID string

	cmd := &cobra.Command{
		Use:       "sampling start|stop",
		Short:     "Enable or disable a sensor's sampling",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"start", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, cm, err := remoteSensor(cmd, rootOpts, sensorID)
			if err != nil {
				return err
			}
			defer cm.Close()

			if args[0] == "start" {
				err = remote.Start(cmd.Context())
			} else {
				err = remote.Stop(cmd.Context())
			}
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "sampling "+args[0]+" failed", err.Error(), nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s sampling %s\n", remote.ID(), samplingState[args[0]])
			return nil
		},
	}

	cmd.Flags().StringVar(&sensorID, "sensor", "", "sensor id (required)")
	_ = cmd.MarkFlagRequired("sensor")

	return cmd
}

func remoteSensor(cmd *cobra.Command, rootOpts *RootOptions, id string) (*node.RemoteSensor, *node.ClientManager, error) {
	s, err := rootOpts.Config.FindSensor(id)
	if err != nil {
		return nil, nil, printer.Error(cmd.ErrOrStderr(), "unknown sensor", err.Error(), nil)
	}
	cm := node.NewClientManager()
	return node.NewRemoteSensor(s.ID, s.Addr, cm), cm, nil
}
