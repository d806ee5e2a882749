package gcp

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/serviceusage/v1"
)

// EnsureAPIEnabled enables a service API if it is not already on. Returns
// whether anything had to change.
func EnsureAPIEnabled(ctx context.Context, pctx *config.LabContext, project, name string) (bool, error) {
	cli, err := pctx.GCPServiceUsageClient(ctx)
	if err != nil {
		return false, fmt.Errorf("error creating gcp service usage client: %w", err)
	}

	id := fmt.Sprintf("projects/%s/services/%s", project, name)

	res, err := cli.Services.Get(id).Do()
	if err != nil {
		return false, fmt.Errorf("error checking state of api '%s': %w", name, err)
	}

	if res.State == APIServiceEnabled {
		return false, nil
	}

	op, err := cli.Services.Enable(id, &serviceusage.EnableServiceRequest{}).Do()
	if err != nil {
		return false, fmt.Errorf("error enabling api '%s': %w", name, err)
	}

	err = WaitForServiceUsageOperation(ctx, cli, op)
	if err != nil {
		return false, fmt.Errorf("error waiting for api '%s' to enable: %w", name, err)
	}

	return true, nil
}
