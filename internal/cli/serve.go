package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/server"
	"github.com/matzehuels/hlsched/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		persist bool
		timeout time.Duration
		lib     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Routes:
  GET  /healthz       liveness
  GET  /version       build information
  POST /v1/schedule   schedule a problem
  POST /v1/verify     check a schedule against a problem
  GET  /v1/runs       list stored runs (requires --store)

The server shares the result cache with the other commands and stops
gracefully on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			library, err := c.library(lib)
			if err != nil {
				return fmt.Errorf("load library: %w", err)
			}
			opts := []server.Option{server.WithLibrary(library), server.WithTimeout(timeout)}

			if persist {
				sc, err := c.cfg().storeConfig()
				if err != nil {
					return err
				}
				st, err := store.Open(ctx, sc, c.Logger)
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, server.WithStore(st))
			}

			printInfo("Listening on %s", StyleHighlight.Render(addr))
			return server.New(runner, c.Logger, opts...).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&persist, "store", false, "record runs in the configured store and enable /v1/runs")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time per schedule request")
	cmd.Flags().StringVar(&lib, "lib", "", "resource library file (TOML or legacy text)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
