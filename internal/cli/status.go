package cli

import (
	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewStatusCommand(args *inArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of the lab resources",
		Long: `Reports the load balancer address, backend health, the security policy and
its rules, and the probe VM without changing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			_, err = actions.NewStatus(args.log, pctx).Run(cmd.Context())

			return apiHint(err)
		},
	}
}
