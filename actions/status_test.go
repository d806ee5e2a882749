package actions

import (
	"context"
	"net/http"
	"testing"

	"github.com/edgelabs/armorlab/gcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
)

func TestStatusRun(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/forwardingRules/web-rule", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.ForwardingRule{IPAddress: "198.51.100.7"})
	})
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.BackendService{
			Name:           "web-backend",
			Backends:       []*compute.Backend{{Group: "ig-a"}},
			SecurityPolicy: gcp.SecurityPolicyURL("demo", "blocklist-probe"),
		})
	})
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend/getHealth", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.BackendServiceGroupHealth{
			HealthStatus: []*compute.HealthStatus{{HealthState: gcp.HealthStateHealthy}},
		})
	})
	mux.HandleFunc("/projects/demo/global/securityPolicies/blocklist-probe", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.SecurityPolicy{
			Name: "blocklist-probe",
			Rules: []*compute.SecurityPolicyRule{
				{
					Priority: 1000,
					Action:   "deny(404)",
					Match: &compute.SecurityPolicyRuleMatcher{
						Config: &compute.SecurityPolicyRuleMatcherConfig{SrcIpRanges: []string{"203.0.113.10/32"}},
					},
				},
				{
					Priority: 2147483647,
					Action:   "allow",
					Match: &compute.SecurityPolicyRuleMatcher{
						Config: &compute.SecurityPolicyRuleMatcherConfig{SrcIpRanges: []string{"*"}},
					},
				},
			},
		})
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

	pctx, _ := newTestContext(t, s, mux)

	rep, err := NewStatus(zerolog.Nop(), pctx).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "198.51.100.7", rep.LBAddress)
	assert.Equal(t, "203.0.113.10", rep.ProbeIP)
	assert.Zero(t, rep.Warnings())

	for _, name := range []string{"lb-address", "attachment", "backend-health", "policy", "probe-vm"} {
		st := rep.Step(name)
		require.NotNil(t, st, name)
		assert.Equal(t, StepOK, st.Status, name)
	}

	assert.Contains(t, rep.Step("policy").Detail, "2 rules")
}

func TestStatusReportsMissingPieces(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/forwardingRules/web-rule", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.ForwardingRule{IPAddress: "198.51.100.7"})
	})
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.BackendService{Name: "web-backend"})
	})
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend/getHealth", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &compute.BackendServiceGroupHealth{})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 404, "not found")
	})

	pctx, _ := newTestContext(t, s, mux)

	rep, err := NewStatus(zerolog.Nop(), pctx).Run(ctx)
	require.NoError(t, err)

	assert.Contains(t, rep.Step("attachment").Detail, "no security policy attached")
	assert.Contains(t, rep.Step("policy").Detail, "does not exist")
	assert.Contains(t, rep.Step("probe-vm").Detail, "does not exist")
}
