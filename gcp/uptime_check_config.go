package gcp

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/protobuf/types/known/durationpb"
)

func makeUptimeCheckConfig(project, displayName, host, checkPath string) *monitoringpb.UptimeCheckConfig {
	if checkPath == "" {
		checkPath = "/"
	}

	return &monitoringpb.UptimeCheckConfig{
		DisplayName: displayName,
		Resource: &monitoringpb.UptimeCheckConfig_MonitoredResource{
			MonitoredResource: &monitoredres.MonitoredResource{
				Type: "uptime_url",
				Labels: map[string]string{
					"project_id": project,
					"host":       host,
				},
			},
		},
		CheckRequestType: &monitoringpb.UptimeCheckConfig_HttpCheck_{
			HttpCheck: &monitoringpb.UptimeCheckConfig_HttpCheck{
				RequestMethod: monitoringpb.UptimeCheckConfig_HttpCheck_GET,
				UseSsl:        false,
				Path:          checkPath,
			},
		},
		Period:  durationpb.New(60 * time.Second),
		Timeout: durationpb.New(10 * time.Second),
	}
}

// UptimeCheckID extracts the check id from a full config resource name.
func UptimeCheckID(name string) string {
	return path.Base(name)
}

// FindUptimeCheckConfig looks a check up by display name, nil when absent.
func FindUptimeCheckConfig(ctx context.Context, pctx *config.LabContext, project, displayName string) (*monitoringpb.UptimeCheckConfig, error) {
	cli, err := pctx.GCPMonitoringUptimeCheckClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	iter := cli.ListUptimeCheckConfigs(ctx, &monitoringpb.ListUptimeCheckConfigsRequest{
		Parent: fmt.Sprintf("projects/%s", project),
	})

	for {
		cfg, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil, nil
			}

			return nil, fmt.Errorf("error listing uptime checks: %w", err)
		}

		if cfg.DisplayName == displayName {
			return cfg, nil
		}
	}
}

// EnsureUptimeCheckConfig creates an HTTP uptime check against host unless one
// with the same display name exists. Returns the config and whether it
// pre-existed.
func EnsureUptimeCheckConfig(ctx context.Context, pctx *config.LabContext, project, displayName, host, checkPath string) (*monitoringpb.UptimeCheckConfig, bool, error) {
	cfg, err := FindUptimeCheckConfig(ctx, pctx, project, displayName)
	if err != nil {
		return nil, false, err
	}

	if cfg != nil {
		return cfg, true, nil
	}

	cli, err := pctx.GCPMonitoringUptimeCheckClient(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	cfg, err = cli.CreateUptimeCheckConfig(ctx, &monitoringpb.CreateUptimeCheckConfigRequest{
		Parent:            fmt.Sprintf("projects/%s", project),
		UptimeCheckConfig: makeUptimeCheckConfig(project, displayName, host, checkPath),
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating uptime check '%s': %w", displayName, err)
	}

	return cfg, false, nil
}

func DeleteUptimeCheckConfig(ctx context.Context, pctx *config.LabContext, name string) error {
	cli, err := pctx.GCPMonitoringUptimeCheckClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	err = cli.DeleteUptimeCheckConfig(ctx, &monitoringpb.DeleteUptimeCheckConfigRequest{
		Name: name,
	})
	if err != nil {
		return fmt.Errorf("error deleting uptime check '%s': %w", name, err)
	}

	return nil
}
