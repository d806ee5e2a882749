package actions

import (
	"context"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/rs/zerolog"
)

// CleanupAction tears the lab down: detach the policy, delete it, delete the
// probe VM and the resources created around it. Every step tolerates targets
// that are already gone, so cleanup can be re-run until it comes back clean.
type CleanupAction struct {
	log  zerolog.Logger
	pctx *config.LabContext
}

func NewCleanup(log zerolog.Logger, pctx *config.LabContext) *CleanupAction {
	return &CleanupAction{
		log:  log,
		pctx: pctx,
	}
}

func (a *CleanupAction) Run(ctx context.Context) (*Report, error) {
	s := a.pctx.Settings()
	rep := NewReport("cleanup", s.Project, s.PolicyName)

	a.detachPolicy(ctx, rep)
	a.deletePolicy(ctx, rep)
	a.deleteProbeVM(ctx, rep)
	a.deleteSSHFirewall(ctx, rep)

	if s.UptimeCheck {
		a.deleteUptimeCheck(ctx, rep)
	}

	rep.Finish()
	rep.Log(a.log)

	if rep.Warnings() > 0 {
		a.log.Warn().Msg("some resources could not be removed, finish up manually:")

		for _, cmd := range manualCleanupCommands(s) {
			a.log.Info().Msg("  " + cmd)
		}
	}

	uploadReport(ctx, a.log, a.pctx, rep)

	return rep, nil
}

func (a *CleanupAction) detachPolicy(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	err := gcp.DetachSecurityPolicy(ctx, a.pctx, s.Project, s.BackendService)

	switch {
	case err == nil:
		rep.Ok("detach", "policy detached from backend service '%s'", s.BackendService)
	case gcp.ErrIs404(err):
		rep.Skip("detach", "backend service '%s' is gone", s.BackendService)
	default:
		a.log.Warn().Err(err).Msg("detach failed")
		rep.Warn("detach", "%v", err)
	}
}

func (a *CleanupAction) deletePolicy(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	err := gcp.DeleteSecurityPolicy(ctx, a.pctx, s.Project, s.PolicyName)

	switch {
	case err == nil:
		rep.Ok("policy", "security policy '%s' deleted", s.PolicyName)
	case gcp.ErrIs404(err):
		rep.Skip("policy", "security policy '%s' is already gone", s.PolicyName)
	default:
		a.log.Warn().Err(err).Msg("policy deletion failed, it may still be attached somewhere")
		rep.Warn("policy", "%v", err)
	}
}

func (a *CleanupAction) deleteProbeVM(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	err := gcp.DeleteInstance(ctx, a.pctx, s.Project, s.Zone, s.ProbeVM)

	switch {
	case err == nil:
		rep.Ok("probe-vm", "instance '%s' deleted", s.ProbeVM)
	case gcp.ErrIs404(err):
		rep.Skip("probe-vm", "instance '%s' is already gone", s.ProbeVM)
	default:
		a.log.Warn().Err(err).Msg("instance deletion failed")
		rep.Warn("probe-vm", "%v", err)
	}
}

func (a *CleanupAction) deleteSSHFirewall(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	err := gcp.DeleteFirewall(ctx, a.pctx, s.Project, sshFirewallName(s))

	switch {
	case err == nil:
		rep.Ok("ssh-firewall", "firewall '%s' deleted", sshFirewallName(s))
	case gcp.ErrIs404(err):
		rep.Skip("ssh-firewall", "firewall '%s' is already gone", sshFirewallName(s))
	default:
		rep.Warn("ssh-firewall", "%v", err)
	}
}

func (a *CleanupAction) deleteUptimeCheck(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	cfg, err := gcp.FindUptimeCheckConfig(ctx, a.pctx, s.Project, uptimeCheckName(s))
	if err != nil {
		rep.Warn("uptime-check", "%v", err)
	} else if cfg == nil {
		rep.Skip("uptime-check", "uptime check '%s' is already gone", uptimeCheckName(s))
	} else if err = gcp.DeleteUptimeCheckConfig(ctx, a.pctx, cfg.Name); err != nil {
		rep.Warn("uptime-check", "%v", err)
	} else {
		rep.Ok("uptime-check", "uptime check '%s' deleted", uptimeCheckName(s))
	}

	alert, err := gcp.FindAlertPolicy(ctx, a.pctx, s.Project, alertPolicyName(s))
	if err != nil {
		rep.Warn("uptime-alert", "%v", err)
	} else if alert != nil {
		if err = gcp.DeleteAlertPolicy(ctx, a.pctx, alert.Name); err != nil {
			rep.Warn("uptime-alert", "%v", err)
		} else {
			rep.Ok("uptime-alert", "alert policy '%s' deleted", alertPolicyName(s))
		}
	}

	ch, err := gcp.FindNotificationChannel(ctx, a.pctx, s.Project, notificationChannelName(s))
	if err != nil {
		rep.Warn("uptime-alert", "%v", err)
	} else if ch != nil {
		if err = gcp.DeleteNotificationChannel(ctx, a.pctx, ch.Name); err != nil {
			rep.Warn("uptime-alert", "%v", err)
		}
	}
}
