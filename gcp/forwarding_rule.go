package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
)

// GlobalForwardingRuleIP resolves the external address of the load balancer
// frontend. A rule without an address is unusable for the probes and treated
// as an error.
func GlobalForwardingRuleIP(ctx context.Context, pctx *config.LabContext, project, name string) (string, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return "", fmt.Errorf("error creating gcp compute client: %w", err)
	}

	rule, err := cli.GlobalForwardingRules.Get(project, name).Do()
	if err != nil {
		return "", fmt.Errorf("error getting forwarding rule '%s': %w", name, err)
	}

	if rule.IPAddress == "" {
		return "", fmt.Errorf("forwarding rule '%s' has no address assigned", name)
	}

	return rule.IPAddress, nil
}
