package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var (
	defSecurityParam = 128
	policyPairs      []string
	setupAttributes  []string
)

var modelsCmd = []cobra.Command{
	{
		Use:   "setup",
		Short: "Initialize authority",
		Long:  `Run the authority's one-time session initialization.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			pp, err := dsdk.Setup(defSecurityParam, nil, setupAttributes)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, pp)
		},
	},
	{
		Use:   "publish <weight>...",
		Short: "Publish seed model",
		Long: `Publish the policy-encrypted seed model.

Examples:
  dpsshare-cli models publish 0.5 0.5 --policy region=eu`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			model := make([]float64, len(args))
			for i, arg := range args {
				w, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				model[i] = w
			}

			ct, err := dsdk.PublishSeedModel(model, attributesFromPairs(policyPairs))
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, ct)
		},
	},
	{
		Use:   "seed",
		Short: "Fetch seed model",
		Long:  `Fetch the published seed model ciphertext.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			ct, err := dsdk.SeedModel()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, ct)
		},
	},
}

func NewModelsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "models [setup|publish|seed]",
		Short: "Seed model management",
		Long:  `Initialize the authority and manage the seed model.`,
	}

	for i := range modelsCmd {
		cmd.AddCommand(&modelsCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&DefAuthorityURL,
		"authority-url",
		"a",
		DefAuthorityURL,
		"Authority URL",
	)

	cmd.PersistentFlags().IntVarP(
		&defSecurityParam,
		"security-param",
		"s",
		defSecurityParam,
		"Security parameter",
	)

	cmd.PersistentFlags().StringSliceVarP(
		&policyPairs,
		"policy",
		"P",
		[]string{"region=eu"},
		"Access policy as key=value pairs",
	)

	cmd.PersistentFlags().StringSliceVarP(
		&setupAttributes,
		"attributes",
		"A",
		[]string{"region"},
		"Attribute universe for setup",
	)

	return &cmd
}
