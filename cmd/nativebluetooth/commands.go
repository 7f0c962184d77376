package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Southclaws/fault/fmsg"
	"github.com/spf13/cobra"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
	"github.com/blocinbloc/native-bluetooth/bridge"
	"github.com/blocinbloc/native-bluetooth/internal/trame"
	"github.com/blocinbloc/native-bluetooth/platform"
)

// errCommandFailed is returned when a bridge operation reports failure.
// The cause is delivered to the host as an OnBridgeError event.
var errCommandFailed = errors.New("operation failed")

// consoleHost prints every host event as a tab-separated line.
// With decode set, trames carrying a position are followed by a
// "Position" line holding the decoded fix.
func consoleHost(cmd *cobra.Command, decode bool) bluetooth.HostDispatcher {
	return bluetooth.HostDispatcherFunc(func(method, payload string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\t%s\n", method, payload)

		if !decode || method != bluetooth.EventTrameReceived.String() {
			return
		}

		sentence, err := trame.Parse(payload)
		if err != nil {
			return
		}

		if fix, ok := trame.Position(sentence); ok {
			fmt.Fprintf(out, "Position\t%s\n", fix)
		}
	})
}

func (c *common) newBridge(host bluetooth.HostDispatcher) (*bridge.Bridge, platform.PlatformInfo, error) {
	driver, info := platform.Driver(c.cfg)

	b, err := bridge.New(driver, host, nil, c.cfg)
	if err != nil {
		if issue := fmsg.GetIssue(err); issue != "" {
			return nil, info, errors.New(issue)
		}

		return nil, info, err
	}

	return b, info, nil
}

func newInfoCmd(comm *common) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the platform and the Bluetooth radio state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, info, err := comm.newBridge(nil)
			if err != nil {
				return err
			}
			defer b.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "os:\t%s\n", info.OS)
			fmt.Fprintf(out, "stack:\t%s\n", info.Stack)
			fmt.Fprintf(out, "radio:\t%s\n", b.ControllerState())

			return nil
		},
	}
}

func newDevicesCmd(comm *common) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the accessories that a session can be opened with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, err := comm.newBridge(nil)
			if err != nil {
				return err
			}
			defer b.Close()

			devices, err := b.EnumerateDevicesContext(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), devices)

			return nil
		},
	}
}

func newStreamCmd(comm *common) *cobra.Command {
	var (
		connectionID string
		duration     time.Duration
		decode       bool
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Open a session with an accessory and print its events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			b, _, err := comm.newBridge(consoleHost(cmd, decode))
			if err != nil {
				return err
			}
			defer b.Close()

			if !b.SetupController(connectionID) || !b.OpenSession() {
				return errCommandFailed
			}
			defer b.CloseSession()

			<-ctx.Done()

			return nil
		},
	}

	cmd.Flags().StringVarP(&connectionID, "id", "i", "", "connection identifier of the accessory")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop streaming after this duration")
	cmd.Flags().BoolVar(&decode, "decode", false, "print the position decoded from each trame")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
