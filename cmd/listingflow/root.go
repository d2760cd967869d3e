package main

import (
	"github.com/spf13/cobra"

	"ListingFlow/internal/config"
)

type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads .env files, then the YAML config, once per process.
func (c *commandContext) ensureConfig() config.Config {
	if c.cfg != nil {
		return *c.cfg
	}
	config.LoadDotEnv("")
	var cfg config.Config
	if c.configFlag != nil && *c.configFlag != "" {
		cfg = config.LoadFile(*c.configFlag)
	} else {
		cfg = config.Load()
	}
	c.cfg = &cfg
	return cfg
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "listingflow",
		Short:         "Editorial workflow engine for travel listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (defaults to $LISTINGFLOW_CONFIG)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newChecklistCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
