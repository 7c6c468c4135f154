package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/infrastructure/persistence"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
	"github.com/JomsTrinidad/master-data-utility/pkg/composables"
	"github.com/JomsTrinidad/master-data-utility/pkg/configuration"
)

var knownCapabilities = map[string]bool{
	permissions.CapMaker:         true,
	permissions.CapSteward:       true,
	permissions.CapApprover:      true,
	permissions.CapBusinessOwner: true,
}

func newGrantCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "grant <user-uuid> <capability>",
		Short: "Grant (or revoke) a capability for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("user id must be a uuid: %w", err)
			}
			capability := args[1]
			if !knownCapabilities[capability] {
				return fmt.Errorf("unknown capability %q", capability)
			}

			conf := configuration.Use()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := pgxpool.New(ctx, conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx = composables.WithPool(ctx, pool)

			caps := persistence.NewCapabilityRepository()
			if revoke {
				if err := caps.Revoke(ctx, userID, capability); err != nil {
					return err
				}
				fmt.Printf("revoked %s from %s\n", capability, userID)
				return nil
			}
			if err := caps.Grant(ctx, userID, capability); err != nil {
				return err
			}
			fmt.Printf("granted %s to %s\n", capability, userID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke the capability instead of granting it")
	return cmd
}
