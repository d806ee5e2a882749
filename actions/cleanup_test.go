package actions

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/compute/v1"
)

func TestCleanupRun(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)

	var detachRefs []string

	policies := map[string]bool{"blocklist-probe": true}
	instances := map[string]bool{"armorlab-probe": true}
	firewalls := map[string]bool{"armorlab-probe-allow-ssh": true}

	deleteHandler := func(existing map[string]bool, name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)

			if !existing[name] {
				apiError(w, 404, "not found")

				return
			}

			delete(existing, name)

			writeJSON(t, w, doneOp())
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/projects/demo/global/backendServices/web-backend/setSecurityPolicy", func(w http.ResponseWriter, r *http.Request) {
		var ref compute.SecurityPolicyReference

		require.NoError(t, json.NewDecoder(r.Body).Decode(&ref))

		detachRefs = append(detachRefs, ref.SecurityPolicy)

		writeJSON(t, w, doneOp())
	})
	mux.HandleFunc("/projects/demo/global/securityPolicies/blocklist-probe", deleteHandler(policies, "blocklist-probe"))
	mux.HandleFunc("/projects/demo/zones/us-central1-a/instances/armorlab-probe", deleteHandler(instances, "armorlab-probe"))
	mux.HandleFunc("/projects/demo/global/firewalls/armorlab-probe-allow-ssh", deleteHandler(firewalls, "armorlab-probe-allow-ssh"))
	mux.HandleFunc("/projects/demo/global/operations/op-0/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, doneOp())
	})
	mux.HandleFunc("/projects/demo/zones/us-central1-a/operations/op-0/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, doneOp())
	})

	pctx, _ := newTestContext(t, s, mux)

	rep, err := NewCleanup(zerolog.Nop(), pctx).Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, rep.Warnings())

	for _, name := range []string{"detach", "policy", "probe-vm", "ssh-firewall"} {
		st := rep.Step(name)
		require.NotNil(t, st, name)
		assert.Equal(t, StepOK, st.Status, name)
	}

	require.Len(t, detachRefs, 1)
	assert.Empty(t, detachRefs[0])
	assert.Empty(t, policies)
	assert.Empty(t, instances)

	// Re-running cleanup finds nothing left and still succeeds.
	rep, err = NewCleanup(zerolog.Nop(), pctx).Run(ctx)
	require.NoError(t, err)

	assert.Zero(t, rep.Warnings())
	assert.Equal(t, StepSkipped, rep.Step("policy").Status)
	assert.Equal(t, StepSkipped, rep.Step("probe-vm").Status)
	assert.Equal(t, StepSkipped, rep.Step("ssh-firewall").Status)
}

func TestCleanupToleratesFailures(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, 400, "policy is in use by a backend service")
	})

	pctx, _ := newTestContext(t, s, mux)

	rep, err := NewCleanup(zerolog.Nop(), pctx).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Warnings())
	assert.Contains(t, rep.Step("policy").Detail, "in use")
}
