package actions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/edgelabs/armorlab/internal/config"
	"github.com/edgelabs/armorlab/internal/sshutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
)

// newVerifyFake stands up the control plane pieces verify needs: a resolvable
// forwarding rule, the probe VM, and a backend answering with backendStatus.
func newVerifyFake(t *testing.T, s *config.Settings, backendStatus int) *config.LabContext {
	t.Helper()

	var lbHost string

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(backendStatus)
		fmt.Fprint(w, "hello from the backend")
	})
	mux.HandleFunc("/projects/demo/global/forwardingRules/web-rule", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.ForwardingRule{IPAddress: lbHost})
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances/armorlab-probe", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.Instance{
			Name:   "armorlab-probe",
			Status: "RUNNING",
			NetworkInterfaces: []*compute.NetworkInterface{
				{AccessConfigs: []*compute.AccessConfig{{NatIP: "203.0.113.10"}}},
			},
		})
	})

	pctx, srv := newTestContext(t, s, mux)
	lbHost = strings.TrimPrefix(srv.URL, "http://")

	return pctx
}

func TestVerifyPolicyEnforced(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	s.SSHKeyPath = "id_ed25519"

	pctx := newVerifyFake(t, s, 200)

	a := NewVerify(zerolog.Nop(), pctx, false)
	a.dial = func(context.Context, string) (sshutil.Runner, error) {
		return &fakeRunner{stdout: "404\n"}, nil
	}
	a.countLogs = func(context.Context, string) (int, error) {
		return 3, nil
	}

	rep, err := a.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.10", rep.ProbeIP)
	assert.Zero(t, rep.Warnings())

	for _, name := range []string{"remote-probe", "local-probe", "log-check"} {
		st := rep.Step(name)
		require.NotNil(t, st, name)
		assert.Equal(t, StepOK, st.Status, name)
	}
}

func TestVerifyMismatchesWarn(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	s.SSHKeyPath = "id_ed25519"

	pctx := newVerifyFake(t, s, 503)

	a := NewVerify(zerolog.Nop(), pctx, true)
	a.dial = func(context.Context, string) (sshutil.Runner, error) {
		return &fakeRunner{stdout: "200"}, nil
	}
	a.countLogs = func(context.Context, string) (int, error) {
		return 0, nil
	}

	rep, err := a.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Warnings())
	assert.Contains(t, rep.Step("remote-probe").Detail, "expected 404 from the vm, got 200")
	assert.Contains(t, rep.Step("local-probe").Detail, "got 503")
	assert.Contains(t, rep.Step("log-check").Detail, "no denied requests logged")
}

func TestVerifySSHFailureWarns(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	s.SSHKeyPath = "id_ed25519"

	pctx := newVerifyFake(t, s, 200)

	a := NewVerify(zerolog.Nop(), pctx, false)
	a.dial = func(context.Context, string) (sshutil.Runner, error) {
		return nil, fmt.Errorf("connection refused")
	}
	a.countLogs = func(context.Context, string) (int, error) {
		return 1, nil
	}

	rep, err := a.Run(ctx)
	require.NoError(t, err)

	st := rep.Step("remote-probe")
	require.NotNil(t, st)
	assert.Equal(t, StepWarn, st.Status)
	assert.Contains(t, st.Detail, "ssh to 203.0.113.10 failed")
}

func TestVerifySkipsRemoteProbeWithoutKey(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	s.SSHKeyPath = ""

	pctx := newVerifyFake(t, s, 200)

	a := NewVerify(zerolog.Nop(), pctx, false)
	a.countLogs = func(context.Context, string) (int, error) {
		return 1, nil
	}

	rep, err := a.Run(ctx)
	require.NoError(t, err)

	st := rep.Step("remote-probe")
	require.NotNil(t, st)
	assert.Equal(t, StepSkipped, st.Status)
}

func TestVerifyMissingProbeVM(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/forwardingRules/web-rule", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.ForwardingRule{IPAddress: "198.51.100.7"})
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances/armorlab-probe", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 404, "not found")
	})

	pctx, _ := newTestContext(t, s, mux)

	_, err := NewVerify(zerolog.Nop(), pctx, false).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run setup first")
}
