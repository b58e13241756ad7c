package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/absmach/dpsshare/pkg/puzzle"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/round"
)

var (
	DefTLSVerification        = false
	DefAuthorityURL           = "http://localhost:7070"
	DefLeaderURL              = "http://localhost:7071"
	defOffset          uint64 = 0
	defLimit           uint64 = 10
	regDifficulty      uint   = 4
	attributePairs     []string
)

var dsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	dsdk = s
}

func attributesFromPairs(pairs []string) map[string]string {
	attrs := make(map[string]string)
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if ok {
			attrs[k] = v
		}
	}

	return attrs
}

var facilitiesCmd = []cobra.Command{
	{
		Use:   "register <id>",
		Short: "Register facility",
		Long:  `Solve the admission puzzle and register a facility with the authority.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			nonce, err := puzzle.Solve(cmd.Context(), args[0], round.RegistrationContext, regDifficulty)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Solved admission puzzle")

			reg, err := dsdk.Register(args[0], nonce, attributesFromPairs(attributePairs))
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, reg)
		},
	},
	{
		Use:   "view <id>",
		Short: "View facility",
		Long:  `View a facility's admission record.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			f, err := dsdk.GetFacility(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, f)
		},
	},
	{
		Use:   "list",
		Short: "List facilities",
		Long:  `List registered facilities.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := dsdk.ListFacilities(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	},
	{
		Use:   "report-failure <id>",
		Short: "Report signature failure",
		Long:  `Report a signature verification failure against a facility.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			f, err := dsdk.ReportSignatureFailure(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, f)
		},
	},
}

func NewFacilitiesCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "facilities [register|view|list|report-failure]",
		Short: "Facilities management",
		Long:  `Register, view, list facilities and report signature failures.`,
	}

	for i := range facilitiesCmd {
		cmd.AddCommand(&facilitiesCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&DefAuthorityURL,
		"authority-url",
		"a",
		DefAuthorityURL,
		"Authority URL",
	)

	cmd.PersistentFlags().UintVarP(
		&regDifficulty,
		"reg-difficulty",
		"d",
		regDifficulty,
		"Registration puzzle difficulty",
	)

	cmd.PersistentFlags().StringSliceVarP(
		&attributePairs,
		"attr",
		"A",
		[]string{"region=eu"},
		"Facility attributes as key=value pairs",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	cmd.PersistentFlags().BoolVarP(
		&DefTLSVerification,
		"tls-verification",
		"v",
		DefTLSVerification,
		"TLS Verification",
	)

	return &cmd
}
