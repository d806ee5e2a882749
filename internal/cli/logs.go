package cli

import (
	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewLogsCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print load balancer request logs matched against the policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			act := actions.NewLogs(args.log, pctx)
			act.Status = args.status
			act.DeniedOnly = args.deniedOnly
			act.Since = args.since
			act.Limit = args.limit
			act.Follow = args.follow

			return apiHint(act.Run(cmd.Context()))
		},
	}

	cmd.Flags().IntVar(&args.status, statusFlag, 0, "only entries with this response status")
	cmd.Flags().BoolVar(&args.deniedOnly, deniedOnlyFlag, false, "only entries denied by the policy")
	cmd.Flags().DurationVar(&args.since, sinceFlag, 0, "lookback window, e.g. 15m or 2h")
	cmd.Flags().IntVar(&args.limit, limitFlag, 0, "maximum number of entries to print")
	cmd.Flags().BoolVar(&args.follow, followFlag, false, "stream new entries until interrupted")
	cmd.MarkFlagsMutuallyExclusive(statusFlag, deniedOnlyFlag)
	cmd.MarkFlagsMutuallyExclusive(followFlag, sinceFlag)
	cmd.MarkFlagsMutuallyExclusive(followFlag, limitFlag)

	return cmd
}
