package gcp

import (
	"context"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/compute/v1"
)

type InstanceOptions struct {
	Name          string
	MachineType   string `default:"e2-micro"`
	ImageFamily   string `default:"projects/debian-cloud/global/images/family/debian-12"`
	Network       string `default:"default"`
	Subnetwork    string
	Tags          []string
	SSHPublicKey  string
	StartupScript string
}

func makeInstance(project, zone string, opts *InstanceOptions) *compute.Instance {
	err := defaults.Set(opts)
	if err != nil {
		panic(err)
	}

	inst := &compute.Instance{
		Name:        opts.Name,
		MachineType: fmt.Sprintf("projects/%s/zones/%s/machineTypes/%s", project, zone, opts.MachineType),
		Disks: []*compute.AttachedDisk{
			{
				Boot:       true,
				AutoDelete: true,
				InitializeParams: &compute.AttachedDiskInitializeParams{
					SourceImage: opts.ImageFamily,
				},
			},
		},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network:    fmt.Sprintf("projects/%s/global/networks/%s", project, opts.Network),
				Subnetwork: opts.Subnetwork,
				AccessConfigs: []*compute.AccessConfig{
					{
						Type: AccessConfigNAT,
						Name: AccessConfigName,
					},
				},
			},
		},
	}

	if len(opts.Tags) > 0 {
		inst.Tags = &compute.Tags{Items: opts.Tags}
	}

	var items []*compute.MetadataItems

	if opts.SSHPublicKey != "" {
		key := opts.SSHPublicKey
		items = append(items, &compute.MetadataItems{Key: "ssh-keys", Value: &key})
	}

	if opts.StartupScript != "" {
		script := opts.StartupScript
		items = append(items, &compute.MetadataItems{Key: "startup-script", Value: &script})
	}

	if len(items) > 0 {
		inst.Metadata = &compute.Metadata{Items: items}
	}

	return inst
}

// EnsureInstance creates the probe VM unless one with the same name already
// exists in the zone. Returns the live instance and whether it pre-existed.
func EnsureInstance(ctx context.Context, pctx *config.LabContext, project, zone string, opts *InstanceOptions) (*compute.Instance, bool, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	inst, err := cli.Instances.Get(project, zone, opts.Name).Do()
	if err == nil {
		return inst, true, nil
	}

	if !ErrIs404(err) {
		return nil, false, fmt.Errorf("error getting instance '%s': %w", opts.Name, err)
	}

	oper, err := cli.Instances.Insert(project, zone, makeInstance(project, zone, opts)).Do()
	if ErrIs409(err) {
		inst, err = cli.Instances.Get(project, zone, opts.Name).Do()
		if err != nil {
			return nil, false, fmt.Errorf("error getting instance '%s': %w", opts.Name, err)
		}

		return inst, true, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("error creating instance '%s': %w", opts.Name, err)
	}

	err = WaitForZoneComputeOperation(cli, project, zone, oper.Name)
	if err != nil {
		return nil, false, fmt.Errorf("error waiting for instance '%s': %w", opts.Name, err)
	}

	inst, err = cli.Instances.Get(project, zone, opts.Name).Do()
	if err != nil {
		return nil, false, fmt.Errorf("error getting instance '%s': %w", opts.Name, err)
	}

	return inst, false, nil
}

func GetInstance(ctx context.Context, pctx *config.LabContext, project, zone, name string) (*compute.Instance, error) {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp compute client: %w", err)
	}

	inst, err := cli.Instances.Get(project, zone, name).Do()
	if err != nil {
		return nil, fmt.Errorf("error getting instance '%s': %w", name, err)
	}

	return inst, nil
}

// InstanceExternalIP returns the NAT address of the first interface, empty
// when the instance has no external connectivity.
func InstanceExternalIP(inst *compute.Instance) string {
	for _, nic := range inst.NetworkInterfaces {
		for _, ac := range nic.AccessConfigs {
			if ac.NatIP != "" {
				return ac.NatIP
			}
		}
	}

	return ""
}

func DeleteInstance(ctx context.Context, pctx *config.LabContext, project, zone, name string) error {
	cli, err := pctx.GCPComputeClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp compute client: %w", err)
	}

	oper, err := cli.Instances.Delete(project, zone, name).Do()
	if err != nil {
		return fmt.Errorf("error deleting instance '%s': %w", name, err)
	}

	err = WaitForZoneComputeOperation(cli, project, zone, oper.Name)
	if err != nil {
		return fmt.Errorf("error waiting for instance '%s' deletion: %w", name, err)
	}

	return nil
}
