package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/edgelabs/armorlab/internal/config"
	"github.com/edgelabs/armorlab/internal/netutil"
	"github.com/edgelabs/armorlab/internal/sshutil"
	"github.com/rs/zerolog"
)

// VerifyAction checks the deployed policy from both sides: requests from the
// probe VM must be denied, requests from anywhere else must pass, and the
// denials must show up in Cloud Logging.
//
// Every mismatch is recorded as a warning, never as a failure. Policies take
// time to propagate to the edge and a slow rollout is not a broken lab.
type VerifyAction struct {
	log  zerolog.Logger
	pctx *config.LabContext

	// Wait enables the propagation delay before the first probe.
	Wait bool

	dial      func(ctx context.Context, host string) (sshutil.Runner, error)
	countLogs func(ctx context.Context, filter string) (int, error)
}

func NewVerify(log zerolog.Logger, pctx *config.LabContext, wait bool) *VerifyAction {
	a := &VerifyAction{
		log:  log,
		pctx: pctx,
		Wait: wait,
	}

	a.dial = a.dialProbeVM
	a.countLogs = a.countPolicyLogs

	return a
}

func (a *VerifyAction) Run(ctx context.Context) (*Report, error) {
	s := a.pctx.Settings()
	rep := NewReport("verify", s.Project, s.PolicyName)

	addr, err := gcp.GlobalForwardingRuleIP(ctx, a.pctx, s.Project, s.ForwardingRule)
	if err != nil {
		return rep, err
	}

	rep.LBAddress = addr

	inst, err := gcp.GetInstance(ctx, a.pctx, s.Project, s.Zone, s.ProbeVM)
	if err != nil {
		return rep, fmt.Errorf("probe vm is missing, run setup first: %w", err)
	}

	probeIP := gcp.InstanceExternalIP(inst)
	if probeIP == "" {
		return rep, fmt.Errorf("instance '%s' has no external address", s.ProbeVM)
	}

	rep.ProbeIP = probeIP

	err = a.runInto(ctx, rep, addr, probeIP)
	if err != nil {
		return rep, err
	}

	rep.Finish()
	rep.Log(a.log)

	return rep, nil
}

// runInto performs the verification steps against a resolved address pair,
// recording outcomes on rep. Only context cancellation aborts it.
func (a *VerifyAction) runInto(ctx context.Context, rep *Report, addr, probeIP string) error {
	s := a.pctx.Settings()

	if a.Wait {
		a.log.Info().Dur("delay", s.PropagationDelay).Msg("waiting for the policy to propagate")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PropagationDelay):
		}
	}

	a.remoteProbe(ctx, rep, addr, probeIP)
	a.localProbe(ctx, rep, addr)
	a.checkLogs(ctx, rep)

	return nil
}

// remoteProbe curls the load balancer from inside the probe VM and expects
// the configured deny status back.
func (a *VerifyAction) remoteProbe(ctx context.Context, rep *Report, addr, probeIP string) {
	s := a.pctx.Settings()

	if s.SSHKeyPath == "" {
		rep.Skip("remote-probe", "no ssh key configured, skipping the probe from the vm")

		return
	}

	runner, err := a.dial(ctx, probeIP)
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot reach the probe vm over ssh")
		rep.Warn("remote-probe", "ssh to %s failed: %v", probeIP, err)

		return
	}

	cmd := fmt.Sprintf("curl -s -o /dev/null -w '%%{http_code}' --max-time %d %s", int(s.ProbeTimeout.Seconds()), lbURL(addr))

	stdout, stderr, err := runner.Run(ctx, cmd)
	if err != nil {
		a.log.Warn().Err(err).Str("stderr", strings.TrimSpace(stderr)).Msg("remote probe failed")
		rep.Warn("remote-probe", "probe command failed on %s: %v", probeIP, err)

		return
	}

	code, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		rep.Warn("remote-probe", "unexpected probe output %q", strings.TrimSpace(stdout))

		return
	}

	if code == s.DenyStatus {
		rep.Ok("remote-probe", "request from the vm denied with %d", code)
	} else {
		rep.Warn("remote-probe", "expected %d from the vm, got %d", s.DenyStatus, code)
	}
}

// localProbe expects the normal service response from this host, which the
// deny rule must not affect.
func (a *VerifyAction) localProbe(ctx context.Context, rep *Report, addr string) {
	s := a.pctx.Settings()

	res, err := netutil.ProbeHTTP(ctx, lbURL(addr), s.ProbeTimeout)
	if err != nil {
		rep.Warn("local-probe", "probe from this host failed: %v", err)

		return
	}

	if res.OK() && res.BodyContains(s.ExpectBody) {
		rep.Ok("local-probe", "request from this host passed with %d", res.StatusCode)
	} else {
		rep.Warn("local-probe", "expected the normal response from this host, got %d", res.StatusCode)
	}
}

func (a *VerifyAction) checkLogs(ctx context.Context, rep *Report) {
	s := a.pctx.Settings()

	filter := gcp.BuildPolicyLogFilter(s.PolicyName, s.DenyStatus, time.Now().Add(-s.LogLookback))

	n, err := a.countLogs(ctx, filter)
	if err != nil {
		rep.Warn("log-check", "log query failed: %v", err)

		return
	}

	if n == 0 {
		rep.Warn("log-check", "no denied requests logged in the last %s, logs may lag", s.LogLookback)

		return
	}

	rep.Ok("log-check", "%d denied requests logged", n)
}

func (a *VerifyAction) dialProbeVM(ctx context.Context, host string) (sshutil.Runner, error) {
	s := a.pctx.Settings()

	client, err := sshutil.NewClient(host, s.SSHUser, s.SSHKeyPath, s.SSHPort)
	if err != nil {
		return nil, err
	}

	err = client.AwaitServer(ctx, s.SSHWaitPeriod)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (a *VerifyAction) countPolicyLogs(ctx context.Context, filter string) (int, error) {
	s := a.pctx.Settings()

	entries, err := gcp.QueryPolicyLogs(ctx, a.pctx, s.Project, filter, s.LogLimit)
	if err != nil {
		return 0, err
	}

	return len(entries), nil
}
