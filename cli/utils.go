package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func logJSONCmd(cmd cobra.Command, iface any) {
	out, err := json.MarshalIndent(iface, "", "  ")
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
}

func logErrorCmd(cmd cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %s\n\n", err.Error())
}

func logOKCmd(cmd cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nok\n\n")
}

func logSuccessCmd(cmd cobra.Command, msg string) {
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nusage: %s\n\n", u)
}
