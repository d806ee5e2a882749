package edge

import (
	"fmt"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v6/go/gcp/compute"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// FirewallArgs describes the health check ingress rule.
type FirewallArgs struct {
	Project   string
	Network   string
	TargetTag string
	Port      string
}

// NewHealthCheckFirewall lets Google's health checkers reach the tagged
// backends. Without it the backend service never turns healthy and the load
// balancer serves nothing.
func NewHealthCheckFirewall(ctx *pulumi.Context, name string, args *FirewallArgs) (*compute.Firewall, error) {
	ranges := make(pulumi.StringArray, 0, len(gcp.HealthCheckSourceRanges))
	for _, r := range gcp.HealthCheckSourceRanges {
		ranges = append(ranges, pulumi.String(r))
	}

	firewall, err := compute.NewFirewall(ctx, name, &compute.FirewallArgs{
		Name:        pulumi.String(name),
		Project:     pulumi.String(args.Project),
		Network:     pulumi.String(args.Network),
		Description: pulumi.String("allow google health checks onto the backends"),
		Allows: compute.FirewallAllowArray{
			&compute.FirewallAllowArgs{
				Protocol: pulumi.String("tcp"),
				Ports:    pulumi.StringArray{pulumi.String(args.Port)},
			},
		},
		SourceRanges: ranges,
		TargetTags:   pulumi.StringArray{pulumi.String(args.TargetTag)},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating firewall '%s': %w", name, err)
	}

	return firewall, nil
}
