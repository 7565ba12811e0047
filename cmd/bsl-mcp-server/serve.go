package main

import (
	"github.com/spf13/cobra"

	bslmcp "github.com/wagiedev/bsl-mcp-server"
	"github.com/wagiedev/bsl-mcp-server/internal/config"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bridge on the configured transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.load()
			if err != nil {
				return err
			}

			srv, err := bslmcp.New(cmd.Context(), bslmcp.WithOptions(opts))
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("transport", string(config.TransportStdio), "transport: stdio, http, sse or ndjson")
	flags.String("address", config.DefaultAddress, "listen address for HTTP based transports")
	flags.String("host-root", "", "host directory mounted into the container")
	flags.String("container-root", config.DefaultContainerRoot, "mount point of the host root")
	flags.Int("pool-max-size", config.DefaultPoolMaxSize, "maximum number of live sessions")
	flags.Duration("pool-ttl", config.DefaultPoolTTL, "idle time after which a session is removed")

	a.bind(cmd, map[string]string{
		config.KeyTransport:     "transport",
		config.KeyAddress:       "address",
		config.KeyHostRoot:      "host-root",
		config.KeyContainerRoot: "container-root",
		config.KeyPoolMaxSize:   "pool-max-size",
		config.KeyPoolTTL:       "pool-ttl",
	}, false)

	return cmd
}
