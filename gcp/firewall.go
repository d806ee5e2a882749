package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/compute/v1"
)

func makeHealthCheckFirewall(project, name, network string, targetTags []string) *compute.Firewall {
	return &compute.Firewall{
		Name:    name,
		Network: fmt.Sprintf("projects/%s/global/networks/%s", project, network),
		Allowed: []*compute.FirewallAllowed{
			{
				IPProtocol: "tcp",
				Ports:      []string{"80"},
			},
		},
		SourceRanges: HealthCheckSourceRanges,
		TargetTags:   targetTags,
	}
}

func makeSSHFirewall(project, name, network string, targetTags []string) *compute.Firewall {
	return &compute.Firewall{
		Name:    name,
		Network: fmt.Sprintf("projects/%s/global/networks/%s", project, network),
		Allowed: []*compute.FirewallAllowed{
			{
				IPProtocol: "tcp",
				Ports:      []string{"22"},
			},
		},
		SourceRanges: []string{"0.0.0.0/0"},
		TargetTags:   targetTags,
	}
}

// EnsureFirewall creates the rule when missing. Returns whether it was
// created.
func EnsureFirewall(ctx context.Context, pctx *config.LabContext, project string, fw *compute.Firewall) (bool, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return false, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	_, err = cli.Firewalls.Get(project, fw.Name).Do()
	if err == nil {
		return false, nil
	}

	if !ErrIs404(err) {
		return false, fmt.Errorf("error getting firewall '%s': %w", fw.Name, err)
	}

	oper, err := cli.Firewalls.Insert(project, fw).Do()
	if ErrIs409(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("error creating firewall '%s': %w", fw.Name, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return false, fmt.Errorf("error waiting for firewall '%s': %w", fw.Name, err)
	}

	return true, nil
}

// EnsureHealthCheckFirewall opens port 80 from the Google frontend ranges so
// load balancer health checks can reach tagged backends.
func EnsureHealthCheckFirewall(ctx context.Context, pctx *config.LabContext, project, name, network string, targetTags []string) (bool, error) {
	return EnsureFirewall(ctx, pctx, project, makeHealthCheckFirewall(project, name, network, targetTags))
}

// EnsureSSHFirewall opens port 22 to the tagged probe VM.
func EnsureSSHFirewall(ctx context.Context, pctx *config.LabContext, project, name, network string, targetTags []string) (bool, error) {
	return EnsureFirewall(ctx, pctx, project, makeSSHFirewall(project, name, network, targetTags))
}

func DeleteFirewall(ctx context.Context, pctx *config.LabContext, project, name string) error {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp compute client: %w", err)
	}

	oper, err := cli.Firewalls.Delete(project, name).Do()
	if err != nil {
		return fmt.Errorf("error deleting firewall '%s': %w", name, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return fmt.Errorf("error waiting for firewall '%s' deletion: %w", name, err)
	}

	return nil
}
