package actions

import (
	"context"
	"fmt"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/edgelabs/armorlab/internal/netutil"
	"github.com/edgelabs/armorlab/internal/poll"
	"github.com/rs/zerolog"
)

// SetupAction drives the full lab pipeline: preflight, backend health, probe
// VM, edge policy, verification and the closing summary.
//
// Precondition failures (project, backend never healthy, unresolvable
// addresses) abort the run. Resources that already exist are reused with a
// warning, so the pipeline can be re-run after a partial failure.
type SetupAction struct {
	log  zerolog.Logger
	pctx *config.LabContext

	// SkipVerify leaves out the post-configuration probes.
	SkipVerify bool
}

func NewSetup(log zerolog.Logger, pctx *config.LabContext) *SetupAction {
	return &SetupAction{
		log:  log,
		pctx: pctx,
	}
}

func (a *SetupAction) Run(ctx context.Context) (*Report, error) {
	s := a.pctx.Settings()
	rep := NewReport("setup", s.Project, s.PolicyName)

	err := a.preflight(ctx, rep)
	if err != nil {
		return rep, err
	}

	addr, err := a.awaitBackend(ctx, rep)
	if err != nil {
		return rep, err
	}

	probeIP, err := a.provisionProbeVM(ctx, rep)
	if err != nil {
		return rep, err
	}

	err = a.provisionPolicy(ctx, rep, probeIP)
	if err != nil {
		return rep, err
	}

	if s.UptimeCheck {
		a.provisionUptimeCheck(ctx, rep, addr)
	}

	if !a.SkipVerify {
		err = NewVerify(a.log, a.pctx, true).runInto(ctx, rep, addr, probeIP)
		if err != nil {
			return rep, err
		}
	}

	a.summarize(ctx, rep, addr)

	return rep, nil
}

func (a *SetupAction) preflight(ctx context.Context, rep *Report) error {
	s := a.pctx.Settings()

	a.log.Info().Str("project", s.Project).Msg("checking project")

	proj, err := gcp.CheckProject(ctx, a.pctx, s.Project)
	if err != nil {
		return err
	}

	rep.Ok("project", "project '%s' (%d) is active", s.Project, proj.ProjectNumber)

	for _, api := range gcp.APISRequired {
		enabled, err := gcp.EnsureAPIEnabled(ctx, a.pctx, s.Project, api)
		if err != nil {
			return fmt.Errorf("error enabling api '%s': %w", api, err)
		}

		if enabled {
			a.log.Info().Str("api", api).Msg("enabled api")
		}
	}

	rep.Ok("apis", "%d required apis enabled", len(gcp.APISRequired))

	return nil
}

// awaitBackend resolves the load balancer address, then blocks until the
// backend service is healthy and actually answering on it.
func (a *SetupAction) awaitBackend(ctx context.Context, rep *Report) (string, error) {
	s := a.pctx.Settings()

	addr, err := gcp.GlobalForwardingRuleIP(ctx, a.pctx, s.Project, s.ForwardingRule)
	if err != nil {
		return "", err
	}

	rep.LBAddress = addr
	rep.Ok("lb-address", "forwarding rule '%s' resolves to %s", s.ForwardingRule, addr)

	created, err := gcp.EnsureHealthCheckFirewall(ctx, a.pctx, s.Project, healthCheckFirewallName(s), s.Network, []string{s.BackendTag})
	if err != nil {
		return "", err
	}

	if created {
		a.log.Info().Str("firewall", healthCheckFirewallName(s)).Msg("created health check firewall")
	}

	a.log.Info().
		Str("backend_service", s.BackendService).
		Int("threshold", s.HealthyThreshold).
		Msg("waiting for healthy backends")

	var health gcp.BackendHealth

	err = poll.Until(ctx, s.HealthPollAttempts, s.HealthPollInterval, func(ctx context.Context) (bool, error) {
		var err error

		health, err = gcp.BackendServiceHealth(ctx, a.pctx, s.Project, s.BackendService)
		if err != nil {
			return false, err
		}

		a.log.Debug().Stringer("health", health).Msg("backend health")

		return health.Healthy >= s.HealthyThreshold, nil
	})
	if err != nil {
		return "", fmt.Errorf("backend service '%s' never became healthy: %w", s.BackendService, err)
	}

	rep.Ok("backend-health", "backend service '%s' is %s", s.BackendService, health)

	url := lbURL(addr)

	a.log.Info().Str("url", url).Msg("waiting for the load balancer to serve")

	err = poll.Until(ctx, s.ReachAttempts, s.ReachInterval, func(ctx context.Context) (bool, error) {
		res, err := netutil.ProbeHTTP(ctx, url, s.ProbeTimeout)
		if err != nil {
			return false, err
		}

		return res.OK() && res.BodyContains(s.ExpectBody), nil
	})
	if err != nil {
		return "", fmt.Errorf("load balancer at %s is not serving yet: %w", url, err)
	}

	rep.Ok("lb-reachable", "GET %s answers as expected", url)

	return addr, nil
}

// probeStartupScript makes sure curl is present for the probe from the vm.
const probeStartupScript = `#!/bin/sh
command -v curl >/dev/null 2>&1 || (apt-get update -qq && apt-get install -y -qq curl)
`

func (a *SetupAction) provisionProbeVM(ctx context.Context, rep *Report) (string, error) {
	s := a.pctx.Settings()

	opts := &gcp.InstanceOptions{
		Name:          s.ProbeVM,
		MachineType:   s.MachineType,
		ImageFamily:   s.ImageFamily,
		Network:       s.Network,
		Subnetwork:    s.Subnetwork,
		Tags:          []string{s.ProbeTag},
		SSHPublicKey:  readSSHPublicKey(s),
		StartupScript: probeStartupScript,
	}

	inst, existed, err := gcp.EnsureInstance(ctx, a.pctx, s.Project, s.Zone, opts)
	if err != nil {
		return "", err
	}

	if existed {
		a.log.Warn().Str("instance", s.ProbeVM).Msg("probe vm already exists, reusing it")
		rep.Warn("probe-vm", "instance '%s' already exists, reusing it", s.ProbeVM)
	} else {
		rep.Ok("probe-vm", "instance '%s' created in %s", s.ProbeVM, s.Zone)
	}

	probeIP := gcp.InstanceExternalIP(inst)
	if probeIP == "" {
		return "", fmt.Errorf("instance '%s' has no external address to block", s.ProbeVM)
	}

	rep.ProbeIP = probeIP

	if s.SSHKeyPath != "" {
		created, err := gcp.EnsureSSHFirewall(ctx, a.pctx, s.Project, sshFirewallName(s), s.Network, []string{s.ProbeTag})
		if err != nil {
			return "", err
		}

		if created {
			a.log.Info().Str("firewall", sshFirewallName(s)).Msg("created ssh firewall")
		}
	}

	return probeIP, nil
}

func (a *SetupAction) provisionPolicy(ctx context.Context, rep *Report, probeIP string) error {
	s := a.pctx.Settings()

	created, err := gcp.EnsureSecurityPolicy(ctx, a.pctx, s.Project, s.PolicyName, "armorlab edge policy")
	if err != nil {
		return err
	}

	if created {
		rep.Ok("policy", "security policy '%s' created", s.PolicyName)
	} else {
		a.log.Warn().Str("policy", s.PolicyName).Msg("security policy already exists, reusing it")
		rep.Warn("policy", "security policy '%s' already exists, reusing it", s.PolicyName)
	}

	cidr := gcp.SingleIPRange(probeIP)

	changed, err := gcp.EnsureIPDenyRule(ctx, a.pctx, s.Project, s.PolicyName, s.RulePriority, cidr, s.DenyAction(), "deny the probe vm")
	if err != nil {
		return err
	}

	if changed {
		rep.Ok("deny-rule", "%s for %s at priority %d", s.DenyAction(), cidr, s.RulePriority)
	} else {
		rep.Ok("deny-rule", "rule at priority %d already denies %s", s.RulePriority, cidr)
	}

	err = gcp.AttachSecurityPolicy(ctx, a.pctx, s.Project, s.BackendService, gcp.SecurityPolicyURL(s.Project, s.PolicyName))
	if err != nil {
		return err
	}

	rep.Ok("attach", "policy attached to backend service '%s'", s.BackendService)

	return nil
}

// provisionUptimeCheck is best effort, the lab works without monitoring.
func (a *SetupAction) provisionUptimeCheck(ctx context.Context, rep *Report, addr string) {
	s := a.pctx.Settings()

	cfg, existed, err := gcp.EnsureUptimeCheckConfig(ctx, a.pctx, s.Project, uptimeCheckName(s), addr, "/")
	if err != nil {
		a.log.Warn().Err(err).Msg("uptime check setup failed")
		rep.Warn("uptime-check", "%v", err)

		return
	}

	if existed {
		rep.Ok("uptime-check", "uptime check '%s' already exists", uptimeCheckName(s))
	} else {
		rep.Ok("uptime-check", "uptime check '%s' created", uptimeCheckName(s))
	}

	if s.AlertEmail == "" {
		return
	}

	ch, _, err := gcp.EnsureEmailNotificationChannel(ctx, a.pctx, s.Project, notificationChannelName(s), s.AlertEmail)
	if err != nil {
		a.log.Warn().Err(err).Msg("notification channel setup failed")
		rep.Warn("uptime-alert", "%v", err)

		return
	}

	_, _, err = gcp.EnsureUptimeAlertPolicy(ctx, a.pctx, s.Project, alertPolicyName(s), gcp.UptimeCheckID(cfg.Name), []string{ch.Name})
	if err != nil {
		a.log.Warn().Err(err).Msg("alert policy setup failed")
		rep.Warn("uptime-alert", "%v", err)

		return
	}

	rep.Ok("uptime-alert", "alerting to %s", s.AlertEmail)
}

func (a *SetupAction) summarize(ctx context.Context, rep *Report, addr string) {
	s := a.pctx.Settings()

	rep.Finish()

	a.log.Info().
		Str("lb", addr).
		Str("probe_vm", s.ProbeVM).
		Str("probe_ip", rep.ProbeIP).
		Str("policy", s.PolicyName).
		Str("attached_to", s.BackendService).
		Msg("lab is set up")

	rep.Log(a.log)

	a.log.Info().Msg("cleanup: run 'armorlab cleanup', or manually:")

	for _, cmd := range manualCleanupCommands(s) {
		a.log.Info().Msg("  " + cmd)
	}

	uploadReport(ctx, a.log, a.pctx, rep)
}
