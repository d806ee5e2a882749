package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/cloudresourcemanager/v1"
)

// CheckProject verifies that the configured project exists, is active and the
// caller can see it.
func CheckProject(ctx context.Context, pctx *config.LabContext, project string) (*cloudresourcemanager.Project, error) {
	cli, err := pctx.GCPCloudResourceManagerClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating cloud resource manager client: %w", err)
	}

	proj, err := cli.Projects.Get(project).Do()
	if ErrIs404(err) || ErrIs403(err) {
		return nil, fmt.Errorf("project '%s' not found or caller lacks permissions", project)
	} else if err != nil {
		return nil, fmt.Errorf("error getting project '%s': %w", project, err)
	}

	if proj.LifecycleState != ProjectActive {
		return nil, fmt.Errorf("project '%s' is not active, lifecycle state: %s", project, proj.LifecycleState)
	}

	return proj, nil
}
