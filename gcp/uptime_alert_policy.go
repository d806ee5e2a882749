package gcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/durationpb"
)

func makeUptimeAlertPolicy(displayName, checkID string, channels []string) *monitoringpb.AlertPolicy {
	return &monitoringpb.AlertPolicy{
		DisplayName: displayName,
		Conditions: []*monitoringpb.AlertPolicy_Condition{
			{
				DisplayName: "uptime check",
				Condition: &monitoringpb.AlertPolicy_Condition_ConditionThreshold{
					ConditionThreshold: &monitoringpb.AlertPolicy_Condition_MetricThreshold{
						Filter:         fmt.Sprintf("resource.type = \"uptime_url\" AND metric.type = \"monitoring.googleapis.com/uptime_check/check_passed\" AND metric.labels.check_id = \"%s\"", checkID),
						Duration:       durationpb.New(60 * time.Second),
						Comparison:     monitoringpb.ComparisonType_COMPARISON_GT,
						ThresholdValue: 2,

						Aggregations: []*monitoringpb.Aggregation{
							{
								AlignmentPeriod:    durationpb.New(1200 * time.Second),
								CrossSeriesReducer: monitoringpb.Aggregation_REDUCE_COUNT_FALSE,
								PerSeriesAligner:   monitoringpb.Aggregation_ALIGN_NEXT_OLDER,
								GroupByFields:      []string{"resource.*"},
							},
						},
					},
				},
			},
		},
		Combiner:             monitoringpb.AlertPolicy_OR,
		NotificationChannels: channels,
	}
}

// FindAlertPolicy looks an alert policy up by display name, nil when absent.
func FindAlertPolicy(ctx context.Context, pctx *config.LabContext, project, displayName string) (*monitoringpb.AlertPolicy, error) {
	cli, err := pctx.GCPMonitoringAlertPolicyClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	iter := cli.ListAlertPolicies(ctx, &monitoringpb.ListAlertPoliciesRequest{
		Name: fmt.Sprintf("projects/%s", project),
	})

	for {
		p, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil, nil
			}

			return nil, fmt.Errorf("error listing alert policies: %w", err)
		}

		if p.DisplayName == displayName {
			return p, nil
		}
	}
}

// EnsureUptimeAlertPolicy alerts through the given channels when the uptime
// check starts failing. An existing policy with the same display name is
// reused.
func EnsureUptimeAlertPolicy(ctx context.Context, pctx *config.LabContext, project, displayName, checkID string, channels []string) (*monitoringpb.AlertPolicy, bool, error) {
	p, err := FindAlertPolicy(ctx, pctx, project, displayName)
	if err != nil {
		return nil, false, err
	}

	if p != nil {
		return p, true, nil
	}

	cli, err := pctx.GCPMonitoringAlertPolicyClient(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	p, err = cli.CreateAlertPolicy(ctx, &monitoringpb.CreateAlertPolicyRequest{
		Name:        fmt.Sprintf("projects/%s", project),
		AlertPolicy: makeUptimeAlertPolicy(displayName, checkID, channels),
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating alert policy '%s': %w", displayName, err)
	}

	return p, false, nil
}

func DeleteAlertPolicy(ctx context.Context, pctx *config.LabContext, name string) error {
	cli, err := pctx.GCPMonitoringAlertPolicyClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	err = cli.DeleteAlertPolicy(ctx, &monitoringpb.DeleteAlertPolicyRequest{
		Name: name,
	})
	if err != nil {
		return fmt.Errorf("error deleting alert policy '%s': %w", name, err)
	}

	return nil
}
