package actions

import (
	"context"
	"path"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/rs/zerolog"
)

// StatusAction reports the lab state without changing anything: the load
// balancer address, the policy and its rules, the attachment, backend health
// and the probe VM. Missing pieces are warnings, not errors, so status works
// at any point of the lab's life.
type StatusAction struct {
	log  zerolog.Logger
	pctx *config.LabContext
}

func NewStatus(log zerolog.Logger, pctx *config.LabContext) *StatusAction {
	return &StatusAction{
		log:  log,
		pctx: pctx,
	}
}

func (a *StatusAction) Run(ctx context.Context) (*Report, error) {
	s := a.pctx.Settings()
	rep := NewReport("status", s.Project, s.PolicyName)

	addr, err := gcp.GlobalForwardingRuleIP(ctx, a.pctx, s.Project, s.ForwardingRule)
	if err != nil {
		rep.Warn("lb-address", "%v", err)
	} else {
		rep.LBAddress = addr
		rep.Ok("lb-address", "forwarding rule '%s' resolves to %s", s.ForwardingRule, addr)
	}

	a.backendStatus(ctx, rep)
	a.policyStatus(ctx, rep)
	a.probeVMStatus(ctx, rep)

	rep.Finish()
	rep.Log(a.log)

	return rep, nil
}

func (a *StatusAction) backendStatus(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	bs, err := gcp.GetBackendService(ctx, a.pctx, s.Project, s.BackendService)
	if err != nil {
		rep.Warn("backend", "%v", err)

		return
	}

	switch {
	case bs.SecurityPolicy == "":
		rep.Warn("attachment", "backend service '%s' has no security policy attached", s.BackendService)
	case path.Base(bs.SecurityPolicy) == s.PolicyName:
		rep.Ok("attachment", "policy '%s' attached to backend service '%s'", s.PolicyName, s.BackendService)
	default:
		rep.Warn("attachment", "backend service '%s' uses another policy: %s", s.BackendService, path.Base(bs.SecurityPolicy))
	}

	health, err := gcp.BackendServiceHealth(ctx, a.pctx, s.Project, s.BackendService)
	if err != nil {
		rep.Warn("backend-health", "%v", err)

		return
	}

	rep.Ok("backend-health", "backend service '%s' is %s", s.BackendService, health)
}

func (a *StatusAction) policyStatus(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	pol, err := gcp.GetSecurityPolicy(ctx, a.pctx, s.Project, s.PolicyName)

	switch {
	case gcp.ErrIs404(err):
		rep.Warn("policy", "security policy '%s' does not exist", s.PolicyName)

		return
	case err != nil:
		rep.Warn("policy", "%v", err)

		return
	}

	rep.Ok("policy", "security policy '%s' has %d rules", s.PolicyName, len(pol.Rules))

	for _, rule := range pol.Rules {
		a.log.Info().
			Int64("priority", rule.Priority).
			Str("action", rule.Action).
			Strs("src_ranges", gcp.RuleSrcRanges(rule)).
			Str("description", rule.Description).
			Msg("rule")
	}
}

func (a *StatusAction) probeVMStatus(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	inst, err := gcp.GetInstance(ctx, a.pctx, s.Project, s.Zone, s.ProbeVM)

	switch {
	case gcp.ErrIs404(err):
		rep.Warn("probe-vm", "instance '%s' does not exist", s.ProbeVM)

		return
	case err != nil:
		rep.Warn("probe-vm", "%v", err)

		return
	}

	ip := gcp.InstanceExternalIP(inst)
	if ip == "" {
		rep.Warn("probe-vm", "instance '%s' is %s but has no external address", s.ProbeVM, inst.Status)

		return
	}

	rep.ProbeIP = ip
	rep.Ok("probe-vm", "instance '%s' is %s at %s", s.ProbeVM, inst.Status, ip)
}
