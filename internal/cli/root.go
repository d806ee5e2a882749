// Package cli defines the armorlab subcommands, their flags and their behavior.
//
// The cobra Run methods are used as follows (order corresponds to execution
// order):
//  1. PersistentPreRun (root) - initialize the logger
//  2. RunE (subcommands) - load settings, resolve credentials and run the
//     matching action
//
// All flags are overrides: settings come from the ARMORLAB_* environment
// first, a flag left at its zero value changes nothing.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/edgelabs/armorlab/internal/util"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/compute/v1"
)

var version = "dev"

const (
	logLevelFlag       = "log-level"
	projectFlag        = "project"
	regionFlag         = "region"
	zoneFlag           = "zone"
	backendServiceFlag = "backend-service"
	forwardingRuleFlag = "forwarding-rule"
	policyFlag         = "policy"
	denyStatusFlag     = "deny-status"
	probeVMFlag        = "probe-vm"
	sshKeyFlag         = "ssh-key"
	reportBucketFlag   = "report-bucket"

	skipVerifyFlag  = "skip-verify"
	uptimeCheckFlag = "with-uptime-check"
	alertEmailFlag  = "alert-email"
	waitFlag        = "wait"

	statusFlag     = "status"
	sinceFlag      = "since"
	limitFlag      = "limit"
	deniedOnlyFlag = "denied-only"
	followFlag     = "follow"

	requestsFlag    = "requests"
	concurrencyFlag = "concurrency"
	yesFlag         = "yes"
)

// inArgs holds parsed flag values plus the logger built from them.
type inArgs struct {
	logLevel string
	log      zerolog.Logger

	project        string
	region         string
	zone           string
	backendService string
	forwardingRule string
	policy         string
	denyStatus     int
	probeVM        string
	sshKey         string
	reportBucket   string

	skipVerify  bool
	uptimeCheck bool
	alertEmail  string
	wait        bool

	status     int
	since      time.Duration
	limit      int
	deniedOnly bool
	follow     bool

	requests    int
	concurrency int

	yes bool
}

// apply copies the flag overrides onto s. Zero values are skipped so the
// environment and defaults stay in effect for anything not passed.
func (a *inArgs) apply(s *config.Settings) {
	if a.project != "" {
		s.Project = a.project
	}

	if a.region != "" {
		s.Region = a.region
	}

	if a.zone != "" {
		s.Zone = a.zone
	}

	if a.backendService != "" {
		s.BackendService = a.backendService
	}

	if a.forwardingRule != "" {
		s.ForwardingRule = a.forwardingRule
	}

	if a.policy != "" {
		s.PolicyName = a.policy
	}

	if a.denyStatus != 0 {
		s.DenyStatus = a.denyStatus
	}

	if a.probeVM != "" {
		s.ProbeVM = a.probeVM
	}

	if a.sshKey != "" {
		s.SSHKeyPath = a.sshKey
	}

	if a.reportBucket != "" {
		s.ReportBucket = a.reportBucket
	}

	if a.uptimeCheck {
		s.UptimeCheck = true
	}

	if a.alertEmail != "" {
		s.AlertEmail = a.alertEmail
	}

	if a.requests != 0 {
		s.LoadRequests = a.requests
	}

	if a.concurrency != 0 {
		s.LoadConcurrency = a.concurrency
	}
}

// lab builds the shared context every subcommand runs against: settings from
// the environment with flag overrides applied, validated, plus application
// default credentials.
func (a *inArgs) lab(ctx context.Context) (*config.LabContext, error) {
	s, err := config.NewSettings()
	if err != nil {
		return nil, err
	}

	a.apply(s)

	err = s.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if !util.StringSliceContains(gcp.ValidRegions, s.Region) {
		return nil, fmt.Errorf("'%s' is not a valid region", s.Region)
	}

	cred, err := config.GoogleCredentials(ctx, compute.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("error getting google credentials, did you install and set up gcloud?")
	}

	return config.NewLabContext(cred, s), nil
}

// apiHint points at setup when a call failed only because a service API is
// still disabled in the project.
func apiHint(err error) error {
	if err == nil {
		return nil
	}

	if api := gcp.ErrExtractMissingAPI(err); api != "" {
		return fmt.Errorf("%w: api '%s' is disabled, run 'armorlab setup' to enable it", err, api)
	}

	return err
}

func NewRootCommand() *cobra.Command {
	args := &inArgs{}

	rootCmd := &cobra.Command{
		Use:   "armorlab",
		Short: "armorlab wires a Cloud Armor blocklist lab around an existing load balancer",
		Long: `armorlab configures a Cloud Armor security policy in front of an existing
HTTP load balancer, boots a throwaway probe VM, denies the VM's address at
the edge and checks that the block actually holds while normal traffic
still passes.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level, err := zerolog.ParseLevel(args.logLevel)
			if err != nil {
				level = zerolog.InfoLevel
			}

			args.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Logger().
				Level(level)
		},
	}

	rootCmd.PersistentFlags().StringVar(&args.logLevel, logLevelFlag, "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&args.project, projectFlag, "", "GCP project id, overrides ARMORLAB_PROJECT")
	rootCmd.PersistentFlags().StringVar(&args.region, regionFlag, "", "region of the lab, overrides ARMORLAB_REGION")
	rootCmd.PersistentFlags().StringVar(&args.zone, zoneFlag, "", "zone for the probe VM, overrides ARMORLAB_ZONE")
	rootCmd.PersistentFlags().StringVar(&args.backendService, backendServiceFlag, "", "backend service behind the load balancer")
	rootCmd.PersistentFlags().StringVar(&args.forwardingRule, forwardingRuleFlag, "", "global forwarding rule holding the LB address")
	rootCmd.PersistentFlags().StringVar(&args.policy, policyFlag, "", "security policy name")
	rootCmd.PersistentFlags().IntVar(&args.denyStatus, denyStatusFlag, 0, "HTTP status for denied requests (403, 404 or 502)")
	rootCmd.PersistentFlags().StringVar(&args.probeVM, probeVMFlag, "", "probe VM instance name")
	rootCmd.PersistentFlags().StringVar(&args.sshKey, sshKeyFlag, "", "private key for SSH probes from the VM")
	rootCmd.PersistentFlags().StringVar(&args.reportBucket, reportBucketFlag, "", "GCS bucket for run reports")
	rootCmd.PersistentFlags().SortFlags = false

	rootCmd.AddCommand(NewSetupCommand(args))
	rootCmd.AddCommand(NewVerifyCommand(args))
	rootCmd.AddCommand(NewStatusCommand(args))
	rootCmd.AddCommand(NewLogsCommand(args))
	rootCmd.AddCommand(NewLoadgenCommand(args))
	rootCmd.AddCommand(NewCleanupCommand(args))
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true}) // disable help command. should use --help flag instead

	return rootCmd
}
