package cli

import (
	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewLoadgenCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Fire a burst of requests at the load balancer",
		Long: `Issues a batch of GETs against the load balancer with bounded concurrency
and prints the status code distribution. Useful to make denied and passed
traffic show up in the logs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			_, err = actions.NewLoad(args.log, pctx).Run(cmd.Context())

			return apiHint(err)
		},
	}

	cmd.Flags().IntVar(&args.requests, requestsFlag, 0, "total number of requests to send")
	cmd.Flags().IntVar(&args.concurrency, concurrencyFlag, 0, "number of parallel workers")

	return cmd
}
