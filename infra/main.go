// The declarative variant of the lab edge: a Pulumi stack holding the Cloud
// Armor policy and the health check firewall, pointed at an existing backend
// service.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edgelabs/armorlab/infra/edge"
	"github.com/pulumi/pulumi-gcp/sdk/v6/go/gcp/compute"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		cfg := config.New(ctx, "")

		project := config.Get(ctx, "gcp:project")
		if project == "" {
			return errors.New("no gcp project set, run 'pulumi config set gcp:project <id>'")
		}

		backendName := getOr(cfg, "backendService", "web-backend")
		policyName := getOr(cfg, "policy", "blocklist-probe")
		network := getOr(cfg, "network", "default")
		backendTag := getOr(cfg, "backendTag", "lb-backend")
		backendPort := getOr(cfg, "backendPort", "80")

		denyStatus := cfg.GetInt("denyStatus")
		if denyStatus == 0 {
			denyStatus = 404
		}

		basePriority := cfg.GetInt("basePriority")
		if basePriority == 0 {
			basePriority = 1000
		}

		deniedRanges := splitList(cfg.Get("deniedRanges"))
		deniedExprs := splitList(cfg.Get("deniedExprs"))

		if len(deniedRanges)+len(deniedExprs) == 0 {
			return errors.New("nothing to deny, set deniedRanges or deniedExprs")
		}

		// The backend service must exist before the policy makes sense.
		backend, err := compute.LookupBackendService(ctx, &compute.LookupBackendServiceArgs{
			Name:    backendName,
			Project: &project,
		})
		if err != nil {
			return fmt.Errorf("error looking up backend service '%s': %w", backendName, err)
		}

		policy, err := edge.NewPolicy(ctx, policyName, &edge.PolicyArgs{
			Project:      project,
			Description:  "armorlab edge policy",
			DenyStatus:   denyStatus,
			BasePriority: basePriority,
			DeniedRanges: deniedRanges,
			DeniedExprs:  deniedExprs,
		})
		if err != nil {
			return err
		}

		firewallName := fmt.Sprintf("%s-allow-health-checks", network)

		_, err = edge.NewHealthCheckFirewall(ctx, firewallName, &edge.FirewallArgs{
			Project:   project,
			Network:   network,
			TargetTag: backendTag,
			Port:      backendPort,
		})
		if err != nil {
			return err
		}

		ctx.Export("backendService", pulumi.String(backend.SelfLink))
		ctx.Export("policySelfLink", policy.SelfLink)

		// The provider cannot set the policy on a backend service it does not
		// manage, attaching stays a one-liner against the live service.
		ctx.Export("attachCommand", pulumi.Sprintf(
			"gcloud compute backend-services update %s --global --security-policy=%s", backendName, policy.Name))

		return nil
	})
}

func getOr(cfg *config.Config, key, def string) string {
	if v := cfg.Get(key); v != "" {
		return v
	}

	return def
}

func splitList(v string) []string {
	var out []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
