package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/hlsched/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the schedule cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached schedules and renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ch.Close()

			cl, ok := ch.(cache.Clearer)
			if !ok {
				printInfo("Caching is disabled")
				return nil
			}
			if err := cl.Clear(cmd.Context()); err != nil {
				return err
			}

			printSuccess("Cache cleared")
			switch v := ch.(type) {
			case *cache.FileCache:
				printDetail("Directory: %s", v.Dir())
			case *cache.RedisCache:
				printDetail("Redis: %s", c.cfg().Cache.RedisURL)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg().Cache.Dir
			if dir == "" {
				d, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				dir = d
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
