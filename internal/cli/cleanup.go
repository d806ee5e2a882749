package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/edgelabs/armorlab/actions"
	"github.com/spf13/cobra"
)

func NewCleanupCommand(args *inArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Tear down the lab resources",
		Long: `Detaches and deletes the security policy, the probe VM and its SSH firewall
rule. The backend service and the load balancer are left alone. Pass
--with-uptime-check to also remove the uptime check and its alert.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pctx, err := args.lab(cmd.Context())
			if err != nil {
				return err
			}

			s := pctx.Settings()

			if !args.yes {
				question := fmt.Sprintf("delete policy '%s' and instance '%s' in project '%s'?", s.PolicyName, s.ProbeVM, s.Project)
				if !confirm(cmd, question) {
					return fmt.Errorf("cleanup aborted")
				}
			}

			_, err = actions.NewCleanup(args.log, pctx).Run(cmd.Context())

			return apiHint(err)
		},
	}

	cmd.Flags().BoolVar(&args.yes, yesFlag, false, "delete without asking")
	cmd.Flags().BoolVar(&args.uptimeCheck, uptimeCheckFlag, false, "also remove the uptime check and its alert")

	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}

	return false
}
