package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/absmach/dpsshare/dpsshared"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dpsshared",
		Short: "DPSShare Daemon",
		Long:  `DPSShare Daemon is a daemon that manages the lifecycle of DPSShare components.`,
	}

	rootCmd.AddCommand(dpsshared.NewAuthorityCmd())
	rootCmd.AddCommand(dpsshared.NewLeaderCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
