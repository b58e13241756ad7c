package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var defModelLen = 4

var roundsCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start round",
		Long:  `Ask the leader to open a new aggregation round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := dsdk.StartRound(defModelLen)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, map[string]uint64{"round": r})
		},
	},
	{
		Use:   "view <round>",
		Short: "View round",
		Long:  `View the decided record for one round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			rec, err := dsdk.GetRound(r)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, rec)
		},
	},
	{
		Use:   "list",
		Short: "List rounds",
		Long:  `List decided rounds.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := dsdk.ListRounds(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	},
	{
		Use:   "status",
		Short: "Leader status",
		Long:  `Show the leader's open round and partial count.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			st, err := dsdk.LeaderStatus()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, st)
		},
	},
}

func NewRoundsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "rounds [start|view|list|status]",
		Short: "Rounds management",
		Long:  `Start rounds and inspect the round log.`,
	}

	for i := range roundsCmd {
		cmd.AddCommand(&roundsCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&DefLeaderURL,
		"leader-url",
		"u",
		DefLeaderURL,
		"Leader URL",
	)

	cmd.PersistentFlags().IntVarP(
		&defModelLen,
		"model-len",
		"n",
		defModelLen,
		"Model vector length",
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

	return &cmd
}
