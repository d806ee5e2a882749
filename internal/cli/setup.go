package cli

import (
	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewSetupCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision the probe VM and the edge policy, then verify enforcement",
		Long: `Runs the full lab pipeline: checks the project and required APIs, waits for
the backend to be healthy and the load balancer to serve, creates the probe
VM, denies its address in a Cloud Armor policy attached to the backend and
finally probes the block from both sides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			act := actions.NewSetup(args.log, pctx)
			act.SkipVerify = args.skipVerify

			_, err = act.Run(cmd.Context())

			return err
		},
	}

	cmd.Flags().BoolVar(&args.skipVerify, skipVerifyFlag, false, "skip the verification probes after setup")
	cmd.Flags().BoolVar(&args.uptimeCheck, uptimeCheckFlag, false, "also create an uptime check against the load balancer")
	cmd.Flags().StringVar(&args.alertEmail, alertEmailFlag, "", "email to alert when the uptime check fails")

	return cmd
}
