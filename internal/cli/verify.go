package cli

import (
	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewVerifyCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Probe the load balancer from the VM and from here",
		Long: `Checks that the policy is enforced: a request from the probe VM must come
back with the deny status while a request from this host gets the normal
response. Mismatches are reported as warnings, not failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			_, err = actions.NewVerify(args.log, pctx, args.wait).Run(cmd.Context())

			return apiHint(err)
		},
	}

	cmd.Flags().BoolVar(&args.wait, waitFlag, false, "sleep out the policy propagation delay before probing")

	return cmd
}
