package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"logship/pkg/index"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the resolved document store address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cfg.File.Enabled {
				fmt.Fprintf(out, "file:     %s (threshold %s, queue %d)\n", cfg.File.Path, cfg.File.Threshold, cfg.File.QueueSize)
			}
			if cfg.Document.Enabled {
				builder, err := index.Open(cfg.Document.Repository, cfg.Document.ConnectionString, cfg.Document.BufferSize, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "document: %s (threshold %s)\n", builder.Resolve(""), cfg.Document.Threshold)
			}
			fmt.Fprintln(out, "configuration OK")
			return nil
		},
	}
}
