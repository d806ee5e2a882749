package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"
)

// Settings holds everything the lab commands need. Values come from the
// environment (ARMORLAB_*), then flags may override individual fields.
type Settings struct {
	Project string `envconfig:"ARMORLAB_PROJECT"`
	Region  string `envconfig:"ARMORLAB_REGION" default:"us-central1"`
	Zone    string `envconfig:"ARMORLAB_ZONE" default:"us-central1-a"`

	BackendService string `envconfig:"ARMORLAB_BACKEND_SERVICE" default:"web-backend"`
	BackendTag     string `envconfig:"ARMORLAB_BACKEND_TAG" default:"lb-backend"`
	ForwardingRule string `envconfig:"ARMORLAB_FORWARDING_RULE" default:"web-rule"`

	PolicyName   string `envconfig:"ARMORLAB_POLICY" default:"blocklist-probe"`
	RulePriority int64  `envconfig:"ARMORLAB_RULE_PRIORITY" default:"1000"`
	DenyStatus   int    `envconfig:"ARMORLAB_DENY_STATUS" default:"404"`

	ProbeVM       string        `envconfig:"ARMORLAB_PROBE_VM" default:"armorlab-probe"`
	MachineType   string        `envconfig:"ARMORLAB_MACHINE_TYPE" default:"e2-micro"`
	ImageFamily   string        `envconfig:"ARMORLAB_IMAGE_FAMILY" default:"projects/debian-cloud/global/images/family/debian-12"`
	Network       string        `envconfig:"ARMORLAB_NETWORK" default:"default"`
	Subnetwork    string        `envconfig:"ARMORLAB_SUBNETWORK"`
	ProbeTag      string        `envconfig:"ARMORLAB_PROBE_TAG" default:"armorlab-probe"`
	SSHUser       string        `envconfig:"ARMORLAB_SSH_USER" default:"armorlab"`
	SSHKeyPath    string        `envconfig:"ARMORLAB_SSH_KEY"`
	SSHPort       string        `envconfig:"ARMORLAB_SSH_PORT" default:"22"`
	SSHWaitPeriod time.Duration `envconfig:"ARMORLAB_SSH_WAIT" default:"2m"`

	HealthyThreshold   int           `envconfig:"ARMORLAB_HEALTHY_THRESHOLD" default:"1"`
	HealthPollAttempts int           `envconfig:"ARMORLAB_HEALTH_ATTEMPTS" default:"30"`
	HealthPollInterval time.Duration `envconfig:"ARMORLAB_HEALTH_INTERVAL" default:"10s"`

	ReachAttempts int           `envconfig:"ARMORLAB_REACH_ATTEMPTS" default:"24"`
	ReachInterval time.Duration `envconfig:"ARMORLAB_REACH_INTERVAL" default:"5s"`
	ProbeTimeout  time.Duration `envconfig:"ARMORLAB_PROBE_TIMEOUT" default:"10s"`
	ExpectBody    string        `envconfig:"ARMORLAB_EXPECT_BODY"`

	PropagationDelay time.Duration `envconfig:"ARMORLAB_PROPAGATION_DELAY" default:"120s"`

	LogLookback time.Duration `envconfig:"ARMORLAB_LOG_LOOKBACK" default:"30m"`
	LogLimit    int           `envconfig:"ARMORLAB_LOG_LIMIT" default:"20"`

	LoadRequests    int `envconfig:"ARMORLAB_LOAD_REQUESTS" default:"100"`
	LoadConcurrency int `envconfig:"ARMORLAB_LOAD_CONCURRENCY" default:"10"`

	ReportBucket string `envconfig:"ARMORLAB_REPORT_BUCKET"`
	ReportPrefix string `envconfig:"ARMORLAB_REPORT_PREFIX" default:"armorlab/reports"`

	UptimeCheck bool   `envconfig:"ARMORLAB_UPTIME_CHECK"`
	AlertEmail  string `envconfig:"ARMORLAB_ALERT_EMAIL"`
}

// DenyStatuses are the HTTP statuses Cloud Armor can return for a deny action.
var DenyStatuses = []interface{}{403, 404, 502}

func NewSettings() (*Settings, error) {
	s := &Settings{}

	err := envconfig.Process("", s)
	if err != nil {
		return nil, fmt.Errorf("error reading settings from environment: %w", err)
	}

	err = defaults.Set(s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Project, validation.Required),
		validation.Field(&s.Region, validation.Required),
		validation.Field(&s.Zone, validation.Required, validation.By(s.checkZoneInRegion)),
		validation.Field(&s.BackendService, validation.Required),
		validation.Field(&s.PolicyName, validation.Required),
		validation.Field(&s.RulePriority, validation.Min(0), validation.Max(2147483646)),
		validation.Field(&s.DenyStatus, validation.In(DenyStatuses...)),
		validation.Field(&s.SSHPort, is.Port),
		validation.Field(&s.HealthyThreshold, validation.Min(1)),
		validation.Field(&s.HealthPollAttempts, validation.Min(1)),
		validation.Field(&s.ReachAttempts, validation.Min(1)),
		validation.Field(&s.LogLimit, validation.Min(1)),
		validation.Field(&s.LoadRequests, validation.Min(1)),
		validation.Field(&s.LoadConcurrency, validation.Min(1)),
	)
}

func (s *Settings) checkZoneInRegion(interface{}) error {
	if !strings.HasPrefix(s.Zone, s.Region+"-") {
		return fmt.Errorf("zone %s does not belong to region %s", s.Zone, s.Region)
	}

	return nil
}

// DenyAction renders the policy action string, e.g. "deny(404)".
func (s *Settings) DenyAction() string {
	return fmt.Sprintf("deny(%d)", s.DenyStatus)
}
