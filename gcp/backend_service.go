package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/compute/v1"
)

// BackendHealth summarizes one health poll of a backend service.
type BackendHealth struct {
	Healthy int
	Total   int
}

func (h BackendHealth) String() string {
	return fmt.Sprintf("%d/%d healthy", h.Healthy, h.Total)
}

func GetBackendService(ctx context.Context, pctx *config.LabContext, project, name string) (*compute.BackendService, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	svc, err := cli.BackendServices.Get(project, name).Do()
	if err != nil {
		return nil, fmt.Errorf("error getting backend service '%s': %w", name, err)
	}

	return svc, nil
}

// BackendServiceHealth asks every backend group of the service for its health
// status and tallies the instances that report healthy.
func BackendServiceHealth(ctx context.Context, pctx *config.LabContext, project, name string) (BackendHealth, error) {
	var health BackendHealth

	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return health, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	svc, err := cli.BackendServices.Get(project, name).Do()
	if err != nil {
		return health, fmt.Errorf("error getting backend service '%s': %w", name, err)
	}

	for _, b := range svc.Backends {
		res, err := cli.BackendServices.GetHealth(project, name, &compute.ResourceGroupReference{Group: b.Group}).Do()
		if err != nil {
			return health, fmt.Errorf("error getting health of backend group '%s': %w", b.Group, err)
		}

		for _, hs := range res.HealthStatus {
			health.Total++

			if hs.HealthState == HealthStateHealthy {
				health.Healthy++
			}
		}
	}

	return health, nil
}

// AttachSecurityPolicy points the backend service at the given security
// policy. An empty policyURL detaches any policy currently in place.
func AttachSecurityPolicy(ctx context.Context, pctx *config.LabContext, project, name, policyURL string) error {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp compute client: %w", err)
	}

	ref := &compute.SecurityPolicyReference{SecurityPolicy: policyURL}
	if policyURL == "" {
		ref.ForceSendFields = []string{"SecurityPolicy"}
	}

	oper, err := cli.BackendServices.SetSecurityPolicy(project, name, ref).Do()
	if err != nil {
		return fmt.Errorf("error setting security policy on backend service '%s': %w", name, err)
	}

	err = WaitForGlobalComputeOperation(cli, project, oper.Name)
	if err != nil {
		return fmt.Errorf("error waiting for security policy change on '%s': %w", name, err)
	}

	return nil
}

func DetachSecurityPolicy(ctx context.Context, pctx *config.LabContext, project, name string) error {
	return AttachSecurityPolicy(ctx, pctx, project, name, "")
}
