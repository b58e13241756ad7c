package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/absmach/dpsshare/cli"
	"github.com/absmach/dpsshare/pkg/sdk"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dpsshare-cli",
		Short: "DPSShare CLI",
		Long:  `DPSShare CLI is a command line interface for interacting with DPSShare components.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				AuthorityURL:    cli.DefAuthorityURL,
				LeaderURL:       cli.DefLeaderURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.AddCommand(cli.NewFacilitiesCmd())
	rootCmd.AddCommand(cli.NewModelsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
