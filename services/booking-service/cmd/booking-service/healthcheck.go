package main

import (
	"fmt"
	"time"

	"github.com/agendasalon/agenda/libs/config"
	"github.com/agendasalon/agenda/libs/grpcx"
	"github.com/spf13/cobra"
)

// healthcheckCmd is meant for container health probes: it exits non-zero
// unless the gRPC health service reports SERVING.
func healthcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Query the gRPC health service of a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			service, _ := cmd.Flags().GetString("service")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if addr == "" {
				addr = "127.0.0.1:" + config.String("GRPC_PORT", "9083")
			}
			if err := grpcx.CheckHealth(cmd.Context(), addr, service, timeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "host:port of the gRPC server (defaults to 127.0.0.1:$GRPC_PORT)")
	cmd.Flags().String("service", "", "health service name; empty checks the whole server")
	cmd.Flags().Duration("timeout", 3*time.Second, "dial and check timeout")
	return cmd
}
