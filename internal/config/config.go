package config

import (
	"context"

	logging "cloud.google.com/go/logging/apiv2"
	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/serviceusage/v1"
)

func GoogleCredentials(ctx context.Context, scopes ...string) (*google.Credentials, error) {
	return google.FindDefaultCredentials(ctx, scopes...)
}

func clientOptions(cred *google.Credentials, opts []option.ClientOption) []option.ClientOption {
	if cred != nil {
		opts = append([]option.ClientOption{option.WithCredentials(cred)}, opts...)
	}

	return opts
}

func NewGCPComputeClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*compute.Service, error) {
	return compute.NewService(ctx, clientOptions(cred, opts)...)
}

func NewGCPCloudResourceManagerClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*cloudresourcemanager.Service, error) {
	return cloudresourcemanager.NewService(ctx, clientOptions(cred, opts)...)
}

func NewGCPServiceUsageClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*serviceusage.Service, error) {
	return serviceusage.NewService(ctx, clientOptions(cred, opts)...)
}

func NewGCPLoggingClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*logging.Client, error) {
	return logging.NewClient(ctx, clientOptions(cred, opts)...)
}

func NewGCPMonitoringUptimeCheckClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*monitoring.UptimeCheckClient, error) {
	return monitoring.NewUptimeCheckClient(ctx, clientOptions(cred, opts)...)
}

func NewGCPMonitoringAlertPolicyClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*monitoring.AlertPolicyClient, error) {
	return monitoring.NewAlertPolicyClient(ctx, clientOptions(cred, opts)...)
}

func NewGCPMonitoringNotificationChannelClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*monitoring.NotificationChannelClient, error) {
	return monitoring.NewNotificationChannelClient(ctx, clientOptions(cred, opts)...)
}

func NewStorageClient(ctx context.Context, cred *google.Credentials, opts ...option.ClientOption) (*storage.Client, error) {
	return storage.NewClient(ctx, clientOptions(cred, opts)...)
}
