package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prospector/internal/accounts/authz"
	accountsService "prospector/internal/accounts/service"
	"prospector/internal/platform/config"
	"prospector/pkg/platform/audit"
)

func newBootstrapAdminCmd(envFiles *[]string) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create a super_admin account",
		Long:  "Create a super_admin account. The password is read from ADMIN_PASSWORD.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return errMemoryBootstrap
			}
			password := os.Getenv("ADMIN_PASSWORD")

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			identitySvc, err := a.newIdentity()
			if err != nil {
				return err
			}
			guard, err := authz.NewGuard(a.docs)
			if err != nil {
				return err
			}
			publisher, err := audit.NewPublisher(a.auditStore)
			if err != nil {
				return err
			}
			accounts, err := accountsService.New(guard, identitySvc, a.docs,
				accountsService.WithLogger(a.logger),
				accountsService.WithAuditPublisher(publisher),
			)
			if err != nil {
				return err
			}

			adminID, err := accounts.BootstrapAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "super_admin %s created with id %s\n", email, adminID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
