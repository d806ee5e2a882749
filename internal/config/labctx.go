package config

import (
	"context"
	"sync"

	logging "cloud.google.com/go/logging/apiv2"
	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/serviceusage/v1"
)

// LabContext carries the resolved credentials and settings plus lazily created
// API clients shared by all lab commands.
type LabContext struct {
	gcred    *google.Credentials
	settings *Settings
	opts     []option.ClientOption

	computeCli  *compute.Service
	crmCli      *cloudresourcemanager.Service
	suCli       *serviceusage.Service
	loggingCli  *logging.Client
	uptimeCli   *monitoring.UptimeCheckClient
	alertCli    *monitoring.AlertPolicyClient
	notifierCli *monitoring.NotificationChannelClient
	storageCli  *storage.Client

	once struct {
		computeCli, crmCli, suCli, loggingCli, uptimeCli, alertCli, notifierCli, storageCli sync.Once
	}
	errs struct {
		computeCli, crmCli, suCli, loggingCli, uptimeCli, alertCli, notifierCli, storageCli error
	}
}

// NewLabContext wires settings and credentials together. Extra client options
// are passed to every API client created through it, tests use that to point
// clients at local fakes.
func NewLabContext(gcred *google.Credentials, settings *Settings, opts ...option.ClientOption) *LabContext {
	return &LabContext{
		gcred:    gcred,
		settings: settings,
		opts:     opts,
	}
}

func (c *LabContext) Settings() *Settings {
	return c.settings
}

func (c *LabContext) GoogleCredentials() *google.Credentials {
	return c.gcred
}

func (c *LabContext) GCPComputeClient(ctx context.Context) (*compute.Service, error) {
	c.once.computeCli.Do(func() {
		c.computeCli, c.errs.computeCli = NewGCPComputeClient(ctx, c.gcred, c.opts...)
	})

	return c.computeCli, c.errs.computeCli
}

func (c *LabContext) GCPCloudResourceManagerClient(ctx context.Context) (*cloudresourcemanager.Service, error) {
	c.once.crmCli.Do(func() {
		c.crmCli, c.errs.crmCli = NewGCPCloudResourceManagerClient(ctx, c.gcred, c.opts...)
	})

	return c.crmCli, c.errs.crmCli
}

func (c *LabContext) GCPServiceUsageClient(ctx context.Context) (*serviceusage.Service, error) {
	c.once.suCli.Do(func() {
		c.suCli, c.errs.suCli = NewGCPServiceUsageClient(ctx, c.gcred, c.opts...)
	})

	return c.suCli, c.errs.suCli
}

func (c *LabContext) GCPLoggingClient(ctx context.Context) (*logging.Client, error) {
	c.once.loggingCli.Do(func() {
		c.loggingCli, c.errs.loggingCli = NewGCPLoggingClient(ctx, c.gcred, c.opts...)
	})

	return c.loggingCli, c.errs.loggingCli
}

func (c *LabContext) GCPMonitoringUptimeCheckClient(ctx context.Context) (*monitoring.UptimeCheckClient, error) {
	c.once.uptimeCli.Do(func() {
		c.uptimeCli, c.errs.uptimeCli = NewGCPMonitoringUptimeCheckClient(ctx, c.gcred, c.opts...)
	})

	return c.uptimeCli, c.errs.uptimeCli
}

func (c *LabContext) GCPMonitoringAlertPolicyClient(ctx context.Context) (*monitoring.AlertPolicyClient, error) {
	c.once.alertCli.Do(func() {
		c.alertCli, c.errs.alertCli = NewGCPMonitoringAlertPolicyClient(ctx, c.gcred, c.opts...)
	})

	return c.alertCli, c.errs.alertCli
}

func (c *LabContext) GCPMonitoringNotificationChannelClient(ctx context.Context) (*monitoring.NotificationChannelClient, error) {
	c.once.notifierCli.Do(func() {
		c.notifierCli, c.errs.notifierCli = NewGCPMonitoringNotificationChannelClient(ctx, c.gcred, c.opts...)
	})

	return c.notifierCli, c.errs.notifierCli
}

func (c *LabContext) StorageClient(ctx context.Context) (*storage.Client, error) {
	c.once.storageCli.Do(func() {
		c.storageCli, c.errs.storageCli = NewStorageClient(ctx, c.gcred, c.opts...)
	})

	return c.storageCli, c.errs.storageCli
}
