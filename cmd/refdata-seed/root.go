package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "refdata-seed",
		Short:         "Seed and administer a master data utility database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newGrantCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
