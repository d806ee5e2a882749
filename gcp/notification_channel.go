package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/edgelabs/armorlab/internal/config"
	"google.golang.org/api/iterator"
)

func makeEmailNotificationChannel(displayName, email string) *monitoringpb.NotificationChannel {
	return &monitoringpb.NotificationChannel{
		DisplayName: displayName,
		Type:        "email",
		Labels: map[string]string{
			"email_address": email,
		},
	}
}

// FindNotificationChannel looks a channel up by display name, nil when absent.
func FindNotificationChannel(ctx context.Context, pctx *config.LabContext, project, displayName string) (*monitoringpb.NotificationChannel, error) {
	cli, err := pctx.GCPMonitoringNotificationChannelClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	iter := cli.ListNotificationChannels(ctx, &monitoringpb.ListNotificationChannelsRequest{
		Name: fmt.Sprintf("projects/%s", project),
	})

	for {
		ch, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				return nil, nil
			}

			return nil, fmt.Errorf("error listing notification channels: %w", err)
		}

		if ch.DisplayName == displayName {
			return ch, nil
		}
	}
}

// EnsureEmailNotificationChannel creates an email channel unless one with the
// same display name exists. Returns the channel and whether it pre-existed.
func EnsureEmailNotificationChannel(ctx context.Context, pctx *config.LabContext, project, displayName, email string) (*monitoringpb.NotificationChannel, bool, error) {
	ch, err := FindNotificationChannel(ctx, pctx, project, displayName)
	if err != nil {
		return nil, false, err
	}

	if ch != nil {
		return ch, true, nil
	}

	cli, err := pctx.GCPMonitoringNotificationChannelClient(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	ch, err = cli.CreateNotificationChannel(ctx, &monitoringpb.CreateNotificationChannelRequest{
		Name:                fmt.Sprintf("projects/%s", project),
		NotificationChannel: makeEmailNotificationChannel(displayName, email),
	})
	if err != nil {
		return nil, false, fmt.Errorf("error creating notification channel '%s': %w", displayName, err)
	}

	return ch, false, nil
}

func DeleteNotificationChannel(ctx context.Context, pctx *config.LabContext, name string) error {
	cli, err := pctx.GCPMonitoringNotificationChannelClient(ctx)
	if err != nil {
		return fmt.Errorf("error creating gcp monitoring client: %w", err)
	}

	err = cli.DeleteNotificationChannel(ctx, &monitoringpb.DeleteNotificationChannelRequest{
		Name: name,
	})
	if err != nil {
		return fmt.Errorf("error deleting notification channel '%s': %w", name, err)
	}

	return nil
}
