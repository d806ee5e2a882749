// Package actions implements the workflows behind the armorlab commands:
// setting the lab up, verifying the policy from both sides, inspecting state
// and logs, generating traffic and tearing everything down.
package actions

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/rs/zerolog"
)

func lbURL(addr string) string {
	return fmt.Sprintf("http://%s/", addr)
}

func sshFirewallName(s *config.Settings) string {
	return fmt.Sprintf("%s-allow-ssh", s.ProbeVM)
}

func healthCheckFirewallName(s *config.Settings) string {
	return fmt.Sprintf("%s-allow-health-checks", s.Network)
}

func uptimeCheckName(s *config.Settings) string {
	return fmt.Sprintf("%s-uptime", s.PolicyName)
}

func alertPolicyName(s *config.Settings) string {
	return fmt.Sprintf("%s-uptime-alert", s.PolicyName)
}

func notificationChannelName(s *config.Settings) string {
	return fmt.Sprintf("%s-alerts", s.PolicyName)
}

// manualCleanupCommands are the gcloud equivalents of what `armorlab cleanup`
// does, printed in the summary so the lab can be torn down without the tool.
func manualCleanupCommands(s *config.Settings) []string {
	return []string{
		fmt.Sprintf(`gcloud compute backend-services update %s --global --security-policy=""`, s.BackendService),
		fmt.Sprintf("gcloud compute security-policies delete %s --quiet", s.PolicyName),
		fmt.Sprintf("gcloud compute instances delete %s --zone=%s --quiet", s.ProbeVM, s.Zone),
		fmt.Sprintf("gcloud compute firewall-rules delete %s --quiet", sshFirewallName(s)),
	}
}

// readSSHPublicKey returns the public half of the configured key pair in the
// user:key form instance metadata wants, empty when unavailable.
func readSSHPublicKey(s *config.Settings) string {
	if s.SSHKeyPath == "" {
		return ""
	}

	key, err := os.ReadFile(s.SSHKeyPath + ".pub")
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%s:%s", s.SSHUser, strings.TrimSpace(string(key)))
}

func uploadReport(ctx context.Context, log zerolog.Logger, pctx *config.LabContext, rep *Report) {
	s := pctx.Settings()
	if s.ReportBucket == "" {
		return
	}

	data, err := rep.JSON()
	if err != nil {
		log.Warn().Err(err).Msg("skipping report upload")

		return
	}

	object := fmt.Sprintf("%s/%s-%s.json", s.ReportPrefix, rep.Action, rep.StartedAt.UTC().Format("20060102-150405"))

	url, err := gcp.UploadReport(ctx, pctx, s.ReportBucket, object, data)
	if err != nil {
		log.Warn().Err(err).Msg("report upload failed")

		return
	}

	log.Info().Str("url", url).Msg("report uploaded")
}
