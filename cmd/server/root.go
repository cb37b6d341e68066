package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "prospector",
		Short:         "Address enrichment and salesperson account service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files loaded before the environment is parsed")

	cmd.AddCommand(newServeCmd(&envFiles))
	cmd.AddCommand(newMigrateCmd(&envFiles))
	cmd.AddCommand(newBootstrapAdminCmd(&envFiles))
	return cmd
}
